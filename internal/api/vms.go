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
	"github.com/gorilla/websocket"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

func (h *handlers) listVMs(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ns := r.URL.Query().Get("namespace"); ns != "" {
		f.Eq("namespace_name", ns)
	}
	rows, err := h.d.VMs.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) createVM(w http.ResponseWriter, r *http.Request) {
	var p v1.VMSpecData
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.VMs.Create(r.Context(), namespaceOf(r), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handlers) inspectVM(w http.ResponseWriter, r *http.Request) {
	row, err := h.d.VMs.Inspect(r.Context(), namespaceOf(r), chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) updateVM(w http.ResponseWriter, r *http.Request) {
	var p v1.VMSpecData
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.VMs.Update(r.Context(), namespaceOf(r), chi.URLParam(r, "name"), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) vmHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.VMs.History(r.Context(), namespaceOf(r), chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) deleteVM(w http.ResponseWriter, r *http.Request) {
	if err := h.d.VMs.Delete(r.Context(), namespaceOf(r), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) startVM(w http.ResponseWriter, r *http.Request) {
	if err := h.d.VMs.Start(r.Context(), namespaceOf(r), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (h *handlers) stopVM(w http.ResponseWriter, r *http.Request) {
	if err := h.d.VMs.Stop(r.Context(), namespaceOf(r), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// attachVM upgrades to a websocket and relays it bidirectionally onto the
// VM's own container console via a raw docker attach: websocket binary
// frames in become the container's stdin, the container's stdout/stderr
// become websocket binary frames out. The VM's QEMU console lives on the
// container's own PID 1 stdio (the teacher image's entrypoint runs QEMU in
// the foreground), so attaching to the container IS attaching to the
// console — no separate exec or multiplexer is needed.
func (h *handlers) attachVM(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "name") + "." + namespaceOf(r)
	procs, err := h.d.Processes.ReadBy(r.Context(), v1.NewFilter().Eq("kind_key", key))
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(procs) == 0 {
		writeErr(w, store.NotFound("process", nil))
		return
	}

	stream, err := h.d.Docker.Attach(r.Context(), procs[0].Key)
	if err != nil {
		writeErr(w, err)
		return
	}
	defer stream.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	done := make(chan struct{})

	// container -> websocket
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := stream.Reader.Read(buf)
			if n > 0 {
				if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// websocket -> container
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if _, err := stream.Conn.Write(data); err != nil {
			break
		}
	}

	<-done
}
