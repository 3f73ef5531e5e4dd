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

// Package dockerclient is the thin wrapper over the docker/docker client the
// reconciler uses to turn a ContainerSpec into a running container, and to
// ingest the daemon's event stream. It knows nothing about cargoes, VMs or
// jobs; internal/reconciler owns that mapping.
package dockerclient

import (
	"context"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	typesimage "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// LabelPrefix namespaces every label nanocld writes onto containers it
// manages, so the inbound reconciler can recognize its own processes among
// whatever else is running on the node.
const LabelPrefix = "io.nanocl."

// Well-known container labels.
const (
	LabelKind    = LabelPrefix + "k"  // cargo | vm | job
	LabelKindKey = LabelPrefix + "ik" // owning object's key
	LabelNode    = LabelPrefix + "n"
)

// APIClient is the slice of *docker/docker/client.Client methods Client
// depends on, narrow enough to satisfy with a fake in tests.
type APIClient interface {
	ContainerCreate(ctx context.Context, cfg *container.Config, hcfg *container.HostConfig, ncfg *container.NetworkConfig, platform any, name string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, id string, opts container.StartOptions) error
	ContainerStop(ctx context.Context, id string, opts container.StopOptions) error
	ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error
	ContainerInspect(ctx context.Context, id string) (types.ContainerJSON, error)
	ContainerList(ctx context.Context, opts container.ListOptions) ([]types.Container, error)
	ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error)
	ContainerStats(ctx context.Context, id string, stream bool) (types.ContainerStats, error)
	ContainerKill(ctx context.Context, id, signal string) error
	ContainerRestart(ctx context.Context, id string, opts container.StopOptions) error
	ContainerWait(ctx context.Context, id string, cond container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerExecCreate(ctx context.Context, id string, cfg container.ExecOptions) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, cfg container.ExecStartOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	ContainerAttach(ctx context.Context, id string, opts container.AttachOptions) (types.HijackedResponse, error)

	ImagePull(ctx context.Context, ref string, opts typesimage.PullOptions) (io.ReadCloser, error)
	ImageList(ctx context.Context, opts typesimage.ListOptions) ([]types.ImageSummary, error)

	Events(ctx context.Context, opts events.ListOptions) (<-chan events.Message, <-chan error)
	Ping(ctx context.Context) (types.Ping, error)

	NetworkCreate(ctx context.Context, name string, opts network.CreateOptions) (network.CreateResponse, error)
	NetworkRemove(ctx context.Context, id string) error
	NetworkInspect(ctx context.Context, id string, opts network.InspectOptions) (network.Inspect, error)
}

// Client wraps a docker client with the subset of operations the reconciler
// needs, so callers can be tested against a fake without a real daemon.
type Client struct {
	api APIClient
	log logging.Logger
}

// New dials the docker daemon using the standard DOCKER_HOST / TLS
// environment variables and negotiates the API version, same as every other
// docker CLI tool.
func New(log logging.Logger) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "cannot create docker client")
	}
	return &Client{api: cli, log: log}, nil
}

// NewWithAPI builds a Client around an already-constructed APIClient, for
// tests that substitute a fake.
func NewWithAPI(api APIClient, log logging.Logger) *Client {
	return &Client{api: api, log: log}
}

// Ping verifies the daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.Ping(ctx)
	return errors.Wrap(err, "cannot reach docker daemon")
}

// labelFilter builds a docker filters.Args matching containers carrying
// LabelKindKey=key.
func labelFilter(key string) filters.Args {
	f := filters.NewArgs()
	f.Add("label", LabelKindKey+"="+key)
	return f
}
