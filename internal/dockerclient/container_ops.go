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

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

// CreateOptions is everything Create needs to translate a ContainerSpec into
// a docker container.
type CreateOptions struct {
	Name string // docker container name, usually "{object-key}-{n}"

	Spec            v1.ContainerSpec
	ImagePullPolicy v1.ImagePullPolicy

	// KindLabels is merged into Spec.Labels with LabelKind/LabelKindKey/
	// LabelNode set by the caller, so the inbound reconciler can attribute
	// the container back to its owning object.
	KindLabels map[string]string
}

// Create pulls the image per ImagePullPolicy, then creates the container.
// It does not start it: Create and Start are separate steps so the
// reconciler can create a whole replica set before starting any of it.
func (c *Client) Create(ctx context.Context, o CreateOptions) (string, error) {
	if err := c.ensureImage(ctx, o.Spec.Image, o.ImagePullPolicy); err != nil {
		return "", err
	}

	labels := map[string]string{}
	for k, v := range o.Spec.Labels {
		labels[k] = v
	}
	for k, v := range o.KindLabels {
		labels[k] = v
	}

	cfg := &container.Config{
		Image:      o.Spec.Image,
		Cmd:        o.Spec.Cmd,
		Entrypoint: o.Spec.Entrypoint,
		Env:        o.Spec.Env,
		Labels:     labels,
	}

	hcfg := &container.HostConfig{
		Binds:       o.Spec.Binds,
		Privileged:  o.Spec.Privileged,
		NetworkMode: container.NetworkMode(o.Spec.NetworkMode),
	}

	rsp, err := c.api.ContainerCreate(ctx, cfg, hcfg, nil, nil, o.Name)
	if err != nil {
		return "", errors.Wrapf(err, "cannot create container %q", o.Name)
	}
	return rsp.ID, nil
}

// Start starts an existing container by ID.
func (c *Client) Start(ctx context.Context, id string) error {
	return errors.Wrapf(c.api.ContainerStart(ctx, id, container.StartOptions{}), "cannot start container %s", id)
}

// Stop stops a container by ID. Stopping an already-stopped container is a
// no-op, matching docker's own idempotent behavior.
func (c *Client) Stop(ctx context.Context, id string) error {
	err := c.api.ContainerStop(ctx, id, container.StopOptions{})
	if errdefs.IsNotModified(err) {
		return nil
	}
	return errors.Wrapf(err, "cannot stop container %s", id)
}

// Remove force-removes a container by ID.
func (c *Client) Remove(ctx context.Context, id string) error {
	err := c.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if errdefs.IsNotFound(err) {
		return nil
	}
	return errors.Wrapf(err, "cannot remove container %s", id)
}

// Inspect returns the full inspection of a container by ID.
func (c *Client) Inspect(ctx context.Context, id string) (types.ContainerJSON, error) {
	info, err := c.api.ContainerInspect(ctx, id)
	return info, errors.Wrapf(err, "cannot inspect container %s", id)
}

// ListByKey lists every container (running or not) labeled with kindKey,
// the process-reflection query the reconciler runs after a create/delete.
func (c *Client) ListByKey(ctx context.Context, kindKey string) ([]types.Container, error) {
	containers, err := c.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: labelFilter(kindKey),
	})
	return containers, errors.Wrapf(err, "cannot list containers for %s", kindKey)
}

// LogOptions controls Logs; it mirrors container.LogsOptions one-to-one so
// callers (internal/api) never import docker/docker themselves.
type LogOptions struct {
	Follow     bool
	Tail       string
	Timestamps bool
	Since      string
}

// Logs streams a container's combined stdout/stderr. The returned
// ReadCloser is docker's multiplexed stream format; the internal/api log
// handlers relay it to the client as is, without demultiplexing it.
func (c *Client) Logs(ctx context.Context, id string, o LogOptions) (io.ReadCloser, error) {
	rc, err := c.api.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     o.Follow,
		Tail:       o.Tail,
		Timestamps: o.Timestamps,
		Since:      o.Since,
	})
	return rc, errors.Wrapf(err, "cannot stream logs for %s", id)
}

// Stats streams a container's resource usage samples as newline-delimited
// JSON (docker's own wire format for this endpoint, undocumented as a Go
// type beyond types.StatsJSON).
func (c *Client) Stats(ctx context.Context, id string, stream bool) (io.ReadCloser, error) {
	resp, err := c.api.ContainerStats(ctx, id, stream)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot stream stats for %s", id)
	}
	return resp.Body, nil
}

// Kill sends signal to a container by ID, defaulting to SIGKILL like the
// docker CLI does when signal is empty.
func (c *Client) Kill(ctx context.Context, id, signal string) error {
	return errors.Wrapf(c.api.ContainerKill(ctx, id, signal), "cannot kill container %s", id)
}

// Restart stops then starts a container by ID, giving it timeout seconds to
// exit cleanly before docker force-kills it.
func (c *Client) Restart(ctx context.Context, id string, timeout *int) error {
	return errors.Wrapf(c.api.ContainerRestart(ctx, id, container.StopOptions{Timeout: timeout}), "cannot restart container %s", id)
}

// Wait blocks until the container reaches the given condition, returning its
// exit code.
func (c *Client) Wait(ctx context.Context, id string, cond container.WaitCondition) (int64, error) {
	statusCh, errCh := c.api.ContainerWait(ctx, id, cond)
	select {
	case err := <-errCh:
		return 0, errors.Wrapf(err, "cannot wait for container %s", id)
	case st := <-statusCh:
		if st.Error != nil {
			return st.StatusCode, errors.Errorf("container %s wait error: %s", id, st.Error.Message)
		}
		return st.StatusCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
