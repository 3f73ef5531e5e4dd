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
	"context"
	"net/http"

	"github.com/docker/docker/api/types/container"
	"github.com/go-chi/chi/v5"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// ProcessRepository is the subset of store.Repository[v1.Process] the
// /processes handlers need: every reconciled container, keyed by the
// owning object's kind_key, plus lookup by a single process's own key.
type ProcessRepository interface {
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Process, error)
	ReadByPK(ctx context.Context, pk any) (*v1.Process, error)
}

func (h *handlers) listProcesses(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	rows, err := h.d.Processes.ReadBy(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// kindKeyOf builds the kind_key an object registers its processes under,
// "{name}.{namespace}" for namespaced kinds and bare name for jobs, which
// have no namespace.
func kindKeyOf(r *http.Request) string {
	kind := chi.URLParam(r, "kind")
	name := chi.URLParam(r, "name")
	if kind == "job" {
		return name
	}
	return name + "." + namespaceOf(r)
}

func (h *handlers) processesFor(ctx context.Context, r *http.Request) ([]v1.Process, error) {
	return h.d.Processes.ReadBy(ctx, v1.NewFilter().Eq("kind_key", kindKeyOf(r)))
}

// processStart, processStop, processRestart and processKill act on every
// container currently reconciled for the named object, not just one
// replica: stopping "web" stops every instance backing it.
func (h *handlers) processStart(w http.ResponseWriter, r *http.Request) {
	h.forEachProcess(w, r, func(ctx context.Context, id string) error {
		return h.d.Docker.Start(ctx, id)
	})
}

func (h *handlers) processStop(w http.ResponseWriter, r *http.Request) {
	h.forEachProcess(w, r, func(ctx context.Context, id string) error {
		return h.d.Docker.Stop(ctx, id)
	})
}

func (h *handlers) processRestart(w http.ResponseWriter, r *http.Request) {
	h.forEachProcess(w, r, func(ctx context.Context, id string) error {
		return h.d.Docker.Restart(ctx, id, nil)
	})
}

func (h *handlers) processKill(w http.ResponseWriter, r *http.Request) {
	signal := r.URL.Query().Get("signal")
	if signal == "" {
		signal = "SIGKILL"
	}
	h.forEachProcess(w, r, func(ctx context.Context, id string) error {
		return h.d.Docker.Kill(ctx, id, signal)
	})
}

func (h *handlers) forEachProcess(w http.ResponseWriter, r *http.Request, action func(context.Context, string) error) {
	procs, err := h.processesFor(r.Context(), r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(procs) == 0 {
		writeErr(w, store.NotFound("process", nil))
		return
	}
	for _, p := range procs {
		if err := action(r.Context(), p.Key); err != nil {
			writeErr(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

// processWait blocks until the first process backing the named object
// exits, returning its exit code, mirroring `docker wait`.
func (h *handlers) processWait(w http.ResponseWriter, r *http.Request) {
	procs, err := h.processesFor(r.Context(), r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(procs) == 0 {
		writeErr(w, store.NotFound("process", nil))
		return
	}
	code, err := h.d.Docker.Wait(r.Context(), procs[0].Key, container.WaitConditionNotRunning)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		StatusCode int64 `json:"StatusCode"`
	}{StatusCode: code})
}

// processStats streams the first process's resource usage as
// newline-delimited JSON, framed per the raw-stream convention.
func (h *handlers) processStats(w http.ResponseWriter, r *http.Request) {
	procs, err := h.processesFor(r.Context(), r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(procs) == 0 {
		writeErr(w, store.NotFound("process", nil))
		return
	}
	rc, err := h.d.Docker.Stats(r.Context(), procs[0].Key, true)
	if err != nil {
		writeErr(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", rawStreamContentType)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := rc.Read(buf)
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

// processInstanceStart starts exactly the one process named by its own
// Key (a container ID), as opposed to processStart's "every replica
// backing this kind/name" group semantics — /processes/{id}/start acts on
// a single instance the same way `docker start <container>` does.
func (h *handlers) processInstanceStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.d.Processes.ReadByPK(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	if err := h.d.Docker.Start(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// processInstanceLogs streams exactly the one process's combined
// stdout/stderr, the single-instance counterpart to processLogs.
func (h *handlers) processInstanceLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.d.Processes.ReadByPK(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}

	q := r.URL.Query()
	rc, err := h.d.Docker.Logs(r.Context(), id, dockerclient.LogOptions{
		Follow:     q.Get("follow") == "true",
		Tail:       q.Get("tail"),
		Timestamps: q.Get("timestamps") == "true",
		Since:      q.Get("since"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", rawStreamContentType)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := rc.Read(buf)
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

// processLogs streams the first process's combined stdout/stderr, relaying
// docker's bytes unmodified: the stream is neither demultiplexed nor
// framed into lines.
func (h *handlers) processLogs(w http.ResponseWriter, r *http.Request) {
	procs, err := h.processesFor(r.Context(), r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(procs) == 0 {
		writeErr(w, store.NotFound("process", nil))
		return
	}

	q := r.URL.Query()
	rc, err := h.d.Docker.Logs(r.Context(), procs[0].Key, dockerclient.LogOptions{
		Follow:     q.Get("follow") == "true",
		Tail:       q.Get("tail"),
		Timestamps: q.Get("timestamps") == "true",
		Since:      q.Get("since"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", rawStreamContentType)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := rc.Read(buf)
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
