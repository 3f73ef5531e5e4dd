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
	"bufio"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	typesimage "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

type fakeAPI struct {
	images      []types.ImageSummary
	pulled      []string
	created     []container.Config
	createdName string
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, _ *container.HostConfig, _ *container.NetworkConfig, _ any, name string) (container.CreateResponse, error) {
	f.created = append(f.created, *cfg)
	f.createdName = name
	return container.CreateResponse{ID: "abc123"}, nil
}

func (f *fakeAPI) ContainerStart(context.Context, string, container.StartOptions) error { return nil }
func (f *fakeAPI) ContainerStop(context.Context, string, container.StopOptions) error    { return nil }
func (f *fakeAPI) ContainerRemove(context.Context, string, container.RemoveOptions) error {
	return nil
}
func (f *fakeAPI) ContainerInspect(context.Context, string) (types.ContainerJSON, error) {
	return types.ContainerJSON{}, nil
}
func (f *fakeAPI) ContainerList(context.Context, container.ListOptions) ([]types.Container, error) {
	return nil, nil
}
func (f *fakeAPI) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
func (f *fakeAPI) ContainerStats(context.Context, string, bool) (types.ContainerStats, error) {
	return types.ContainerStats{Body: io.NopCloser(strings.NewReader("{}"))}, nil
}
func (f *fakeAPI) ContainerKill(context.Context, string, string) error { return nil }
func (f *fakeAPI) ContainerRestart(context.Context, string, container.StopOptions) error {
	return nil
}
func (f *fakeAPI) ContainerWait(context.Context, string, container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	ch := make(chan container.WaitResponse, 1)
	ch <- container.WaitResponse{StatusCode: 0}
	return ch, make(chan error, 1)
}

func (f *fakeAPI) ContainerExecCreate(context.Context, string, container.ExecOptions) (types.IDResponse, error) {
	return types.IDResponse{ID: "exec1"}, nil
}

func (f *fakeAPI) ContainerExecAttach(context.Context, string, container.ExecStartOptions) (types.HijackedResponse, error) {
	return types.HijackedResponse{Reader: bufio.NewReader(strings.NewReader(""))}, nil
}

func (f *fakeAPI) ContainerExecInspect(context.Context, string) (container.ExecInspect, error) {
	return container.ExecInspect{}, nil
}

func (f *fakeAPI) ContainerAttach(context.Context, string, container.AttachOptions) (types.HijackedResponse, error) {
	return types.HijackedResponse{Reader: bufio.NewReader(strings.NewReader(""))}, nil
}

func (f *fakeAPI) ImagePull(_ context.Context, ref string, _ typesimage.PullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	return io.NopCloser(strings.NewReader("{}")), nil
}

func (f *fakeAPI) ImageList(context.Context, typesimage.ListOptions) ([]types.ImageSummary, error) {
	return f.images, nil
}

func (f *fakeAPI) Events(context.Context, events.ListOptions) (<-chan events.Message, <-chan error) {
	return nil, nil
}

func (f *fakeAPI) Ping(context.Context) (types.Ping, error) { return types.Ping{}, nil }

func (f *fakeAPI) NetworkCreate(context.Context, string, network.CreateOptions) (network.CreateResponse, error) {
	return network.CreateResponse{}, nil
}
func (f *fakeAPI) NetworkRemove(context.Context, string) error { return nil }
func (f *fakeAPI) NetworkInspect(context.Context, string, network.InspectOptions) (network.Inspect, error) {
	return network.Inspect{}, nil
}

func TestEnsureImagePullNeverSkipsPull(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api, logging.NewNopLogger())

	if err := c.ensureImage(context.Background(), "nginx:latest", v1.PullNever); err != nil {
		t.Fatalf("ensureImage(...): unexpected error: %v", err)
	}
	if len(api.pulled) != 0 {
		t.Errorf("ensureImage(Never): pulled %v, want none", api.pulled)
	}
}

func TestEnsureImageIfNotPresentSkipsWhenPresent(t *testing.T) {
	api := &fakeAPI{images: []types.ImageSummary{{ID: "sha256:x"}}}
	c := NewWithAPI(api, logging.NewNopLogger())

	if err := c.ensureImage(context.Background(), "nginx:latest", v1.PullIfNotPresent); err != nil {
		t.Fatalf("ensureImage(...): unexpected error: %v", err)
	}
	if len(api.pulled) != 0 {
		t.Errorf("ensureImage(IfNotPresent, present): pulled %v, want none", api.pulled)
	}
}

func TestEnsureImageIfNotPresentPullsWhenMissing(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api, logging.NewNopLogger())

	if err := c.ensureImage(context.Background(), "nginx:latest", v1.PullIfNotPresent); err != nil {
		t.Fatalf("ensureImage(...): unexpected error: %v", err)
	}
	if len(api.pulled) != 1 || api.pulled[0] != "nginx:latest" {
		t.Errorf("ensureImage(IfNotPresent, missing): pulled %v, want [nginx:latest]", api.pulled)
	}
}

func TestEnsureImageAlwaysAlwaysPulls(t *testing.T) {
	api := &fakeAPI{images: []types.ImageSummary{{ID: "sha256:x"}}}
	c := NewWithAPI(api, logging.NewNopLogger())

	if err := c.ensureImage(context.Background(), "nginx:latest", v1.PullAlways); err != nil {
		t.Fatalf("ensureImage(...): unexpected error: %v", err)
	}
	if len(api.pulled) != 1 {
		t.Errorf("ensureImage(Always): pulled %v, want exactly one pull", api.pulled)
	}
}

func TestCreateMergesKindLabels(t *testing.T) {
	api := &fakeAPI{images: []types.ImageSummary{{ID: "sha256:x"}}}
	c := NewWithAPI(api, logging.NewNopLogger())

	id, err := c.Create(context.Background(), CreateOptions{
		Name: "web-1",
		Spec: v1.ContainerSpec{
			Image:  "nginx:latest",
			Labels: map[string]string{"custom": "v"},
		},
		ImagePullPolicy: v1.PullIfNotPresent,
		KindLabels:      map[string]string{LabelKind: "cargo", LabelKindKey: "web.global"},
	})
	if err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}
	if id != "abc123" {
		t.Errorf("Create(...): got id %q, want abc123", id)
	}
	if api.createdName != "web-1" {
		t.Errorf("Create(...): container name = %q, want web-1", api.createdName)
	}

	got := api.created[0].Labels
	if got["custom"] != "v" || got[LabelKind] != "cargo" || got[LabelKindKey] != "web.global" {
		t.Errorf("Create(...): labels = %v, want custom+kind labels merged", got)
	}
}
