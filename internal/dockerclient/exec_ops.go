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
	"io"

	"github.com/docker/docker/api/types/container"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// ExecOptions configures a new exec instance, one-to-one with docker's own
// container.ExecOptions, so internal/api never imports docker/docker
// directly — same boundary LogOptions/CreateOptions already draw.
type ExecOptions struct {
	Cmd          []string
	Env          []string
	Tty          bool
	AttachStdin  bool
	AttachStdout bool
	AttachStderr bool
	Privileged   bool
	User         string
	WorkingDir   string
}

// ExecInspect is the subset of container.ExecInspect the /exec/{id}/cargo/
// inspect endpoint reports.
type ExecInspect struct {
	ExecID      string
	ContainerID string
	Running     bool
	ExitCode    int
	Pid         int
}

// Stream is a live hijacked connection: Reader carries the container's
// multiplexed stdout/stderr, Conn is written to for stdin and closed to
// release the connection. Both CreateExec's start and Attach return one.
type Stream struct {
	Reader io.Reader
	Conn   io.WriteCloser
	Close  func()
}

// CreateExec registers a new exec instance against containerID, mirroring
// `docker exec` — spec.md §6's POST /cargoes/{name}/exec.
func (c *Client) CreateExec(ctx context.Context, containerID string, o ExecOptions) (string, error) {
	resp, err := c.api.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          o.Cmd,
		Env:          o.Env,
		Tty:          o.Tty,
		AttachStdin:  o.AttachStdin,
		AttachStdout: o.AttachStdout,
		AttachStderr: o.AttachStderr,
		Privileged:   o.Privileged,
		User:         o.User,
		WorkingDir:   o.WorkingDir,
	})
	if err != nil {
		return "", errors.Wrapf(err, "cannot create exec for container %s", containerID)
	}
	return resp.ID, nil
}

// StartExec attaches to and starts execID, returning the hijacked stream
// the POST /exec/{id}/cargo/start handler relays to its caller.
func (c *Client) StartExec(ctx context.Context, execID string, tty bool) (*Stream, error) {
	hijacked, err := c.api.ContainerExecAttach(ctx, execID, container.ExecStartOptions{Tty: tty})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot start exec %s", execID)
	}
	return &Stream{Reader: hijacked.Reader, Conn: hijacked.Conn, Close: hijacked.Close}, nil
}

// InspectExec reports execID's current running state and, once it has
// exited, its exit code — GET /exec/{id}/cargo/inspect.
func (c *Client) InspectExec(ctx context.Context, execID string) (ExecInspect, error) {
	info, err := c.api.ContainerExecInspect(ctx, execID)
	if err != nil {
		return ExecInspect{}, errors.Wrapf(err, "cannot inspect exec %s", execID)
	}
	return ExecInspect{
		ExecID:      execID,
		ContainerID: info.ContainerID,
		Running:     info.Running,
		ExitCode:    info.ExitCode,
		Pid:         info.Pid,
	}, nil
}

// Attach opens a raw bidirectional stream onto containerID's own console
// (PID 1's stdio), the relay a VM's websocket console attach needs: unlike
// an exec session, there is no separate command to create first, so this
// dials straight through to docker's container attach.
func (c *Client) Attach(ctx context.Context, containerID string) (*Stream, error) {
	hijacked, err := c.api.ContainerAttach(ctx, containerID, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot attach to container %s", containerID)
	}
	return &Stream{Reader: hijacked.Reader, Conn: hijacked.Conn, Close: hijacked.Close}, nil
}
