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

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// execCreateRequest mirrors docker's own CreateExecOptions, the body POST
// /cargoes/{name}/exec accepts.
type execCreateRequest struct {
	Cmd          []string `json:"Cmd"`
	Env          []string `json:"Env,omitempty"`
	Tty          bool     `json:"Tty,omitempty"`
	AttachStdin  bool     `json:"AttachStdin,omitempty"`
	AttachStdout bool     `json:"AttachStdout,omitempty"`
	AttachStderr bool     `json:"AttachStderr,omitempty"`
	Privileged   bool     `json:"Privileged,omitempty"`
	User         string   `json:"User,omitempty"`
	WorkingDir   string   `json:"WorkingDir,omitempty"`
}

type execCreateResponse struct {
	ID string `json:"Id"`
}

// execStartRequest mirrors docker's own StartExecOptions.
type execStartRequest struct {
	Tty bool `json:"Tty,omitempty"`
}

// createExecCommand creates (but does not start) an exec instance targeting
// the first replica backing the named cargo, whether or not it is running —
// spec.md §6's POST /cargoes/{name}/exec. Picking replica 0 matches processLogs/
// processStats' existing "first process backing this object" convention
// for actions that only make sense against one instance.
func (h *handlers) createExecCommand(w http.ResponseWriter, r *http.Request) {
	var p execCreateRequest
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}

	kindKey := chi.URLParam(r, "name") + "." + namespaceOf(r)
	procs, err := h.d.Processes.ReadBy(r.Context(), v1.NewFilter().Eq("kind_key", kindKey))
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(procs) == 0 {
		writeErr(w, store.NotFound("process", nil))
		return
	}

	execID, err := h.d.Docker.CreateExec(r.Context(), procs[0].Key, dockerclient.ExecOptions{
		Cmd:          p.Cmd,
		Env:          p.Env,
		Tty:          p.Tty,
		AttachStdin:  p.AttachStdin,
		AttachStdout: p.AttachStdout,
		AttachStderr: p.AttachStderr,
		Privileged:   p.Privileged,
		User:         p.User,
		WorkingDir:   p.WorkingDir,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, execCreateResponse{ID: execID})
}

// startExecCommand starts execID and streams its combined stdout/stderr
// back as a raw stream — POST /exec/{id}/cargo/start.
func (h *handlers) startExecCommand(w http.ResponseWriter, r *http.Request) {
	var p execStartRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &p); err != nil {
			writeErr(w, err)
			return
		}
	}

	execID := chi.URLParam(r, "id")
	stream, err := h.d.Docker.StartExec(r.Context(), execID, p.Tty)
	if err != nil {
		writeErr(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", rawStreamContentType)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := stream.Reader.Read(buf)
		if n > 0 {
			w.Write(buf[:n])
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

// inspectExecCommand reports an exec instance's running state and, once it
// has exited, its exit code — GET /exec/{id}/cargo/inspect.
func (h *handlers) inspectExecCommand(w http.ResponseWriter, r *http.Request) {
	info, err := h.d.Docker.InspectExec(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
