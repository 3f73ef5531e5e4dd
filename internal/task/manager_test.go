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

package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAddReplacesRunningTask(t *testing.T) {
	m := New(nil)

	var mu sync.Mutex
	var canceled []int

	started := make(chan struct{}, 2)

	m.Add("cargo/web", func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		mu.Lock()
		canceled = append(canceled, 1)
		mu.Unlock()
		return ctx.Err()
	}, func(key string, err error) {
		t.Errorf("onErr called for a replaced task: %v", err)
	})

	<-started

	done := make(chan struct{})
	m.Add("cargo/web", func(ctx context.Context) error {
		close(done)
		return nil
	}, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replacement task never ran")
	}

	if err := m.Wait(context.Background(), "cargo/web"); err != nil {
		t.Fatalf("Wait(...): unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(canceled) != 1 {
		t.Errorf("got %d canceled old tasks, want 1", len(canceled))
	}
}

func TestAddCallsOnErrorOnGenuineFailure(t *testing.T) {
	m := New(nil)

	errCh := make(chan error, 1)
	m.Add("vm/db", func(ctx context.Context) error {
		return errors.New("boom")
	}, func(key string, err error) {
		errCh <- err
	})

	select {
	case err := <-errCh:
		if err.Error() != "boom" {
			t.Errorf("onErr got %v, want boom", err)
		}
	case <-time.After(time.Second):
		t.Fatal("onErr was never called")
	}

	if err := m.Wait(context.Background(), "vm/db"); err != nil {
		t.Fatalf("Wait(...): unexpected error: %v", err)
	}
	if m.IsRunning("vm/db") {
		t.Error("IsRunning(...): task should be removed after it returns")
	}
}

func TestWaitReturnsImmediatelyWhenNoTask(t *testing.T) {
	m := New(nil)
	if err := m.Wait(context.Background(), "missing"); err != nil {
		t.Errorf("Wait(...): unexpected error: %v", err)
	}
}

func TestCancelStopsTask(t *testing.T) {
	m := New(nil)

	started := make(chan struct{})
	stopped := make(chan struct{})
	m.Add("job/migrate", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}, nil)

	<-started
	m.Cancel("job/migrate")

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Cancel(...) did not stop the task")
	}

	if m.IsRunning("job/migrate") {
		t.Error("IsRunning(...): canceled task should no longer be tracked")
	}
}
