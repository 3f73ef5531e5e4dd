/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package dockerclient

import (
	"context"
	"testing"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

func TestCreateExecReturnsID(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api, logging.NewNopLogger())

	id, err := c.CreateExec(context.Background(), "container1", ExecOptions{
		Cmd: []string{"ls", "/"}, AttachStdout: true, AttachStderr: true,
	})
	if err != nil {
		t.Fatalf("CreateExec(...): unexpected error: %v", err)
	}
	if id != "exec1" {
		t.Errorf("CreateExec(...): id = %q, want %q", id, "exec1")
	}
}

func TestStartExecReturnsStream(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api, logging.NewNopLogger())

	stream, err := c.StartExec(context.Background(), "exec1", false)
	if err != nil {
		t.Fatalf("StartExec(...): unexpected error: %v", err)
	}
	if stream == nil || stream.Reader == nil {
		t.Fatalf("StartExec(...): got nil stream or reader")
	}
}

func TestAttachReturnsStream(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api, logging.NewNopLogger())

	stream, err := c.Attach(context.Background(), "container1")
	if err != nil {
		t.Fatalf("Attach(...): unexpected error: %v", err)
	}
	if stream == nil || stream.Reader == nil {
		t.Fatalf("Attach(...): got nil stream or reader")
	}
}
