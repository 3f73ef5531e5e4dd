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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	rows, err := h.d.Events.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) inspectEvent(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rows, err := h.d.Events.List(r.Context(), v1.NewFilter().Eq("key", key))
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(rows) == 0 {
		writeErr(w, store.NotFound("event", nil))
		return
	}
	writeJSON(w, http.StatusOK, rows[0])
}

// watchEvents streams matching events live as server-sent events. The
// request body is a JSON array of EventCondition the subscriber matches
// against (any condition in the array admits the event); an empty body
// subscribes to everything.
func (h *handlers) watchEvents(w http.ResponseWriter, r *http.Request) {
	var conds []v1.EventCondition
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &conds); err != nil {
			writeErr(w, err)
			return
		}
	}
	if len(conds) == 0 {
		conds = []v1.EventCondition{{}}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	ctx := r.Context()
	// One subscription carrying every condition, not one subscription per
	// condition merged into a channel: the bus OR's the list itself, so an
	// event matching two conditions is still only ever delivered once.
	sub := h.d.Events.Subscribe(ctx, conds...)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

