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
	"github.com/nanocl-dev/nanocl/internal/store"
)

func (h *handlers) listResources(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	rows, err := h.d.Resources.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) createResource(w http.ResponseWriter, r *http.Request) {
	var p v1.ResourcePartial
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.Resources.Create(r.Context(), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handlers) inspectResource(w http.ResponseWriter, r *http.Request) {
	row, err := h.d.Resources.Inspect(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) updateResource(w http.ResponseWriter, r *http.Request) {
	var p v1.ResourcePartial
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.Resources.Update(r.Context(), chi.URLParam(r, "name"), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) deleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Resources.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) listResourceKinds(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.ResourceKinds.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) createResourceKind(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string                  `json:"Name"`
		Data v1.ResourceKindSpecData `json:"Data"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.ResourceKinds.Create(r.Context(), body.Name, body.Data)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handlers) inspectResourceKind(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain") + "/" + chi.URLParam(r, "name")
	row, err := h.d.ResourceKinds.Inspect(r.Context(), name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// inspectResourceKindVersion returns one spec version out of Inspect's full
// list, for clients that only want a single historical schema.
func (h *handlers) inspectResourceKindVersion(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain") + "/" + chi.URLParam(r, "name")
	version := chi.URLParam(r, "v")
	full, err := h.d.ResourceKinds.Inspect(r.Context(), name)
	if err != nil {
		writeErr(w, err)
		return
	}
	for _, s := range full.Versions {
		if s.Version == version {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeErr(w, store.NotFound("resourcekind version", nil))
}

func (h *handlers) deleteResourceKind(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain") + "/" + chi.URLParam(r, "name")
	if err := h.d.ResourceKinds.Delete(r.Context(), name); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
