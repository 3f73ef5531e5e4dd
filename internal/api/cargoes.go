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
)

func namespaceOf(r *http.Request) string {
	if ns := r.URL.Query().Get("namespace"); ns != "" {
		return ns
	}
	return "global"
}

func (h *handlers) listCargoes(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ns := r.URL.Query().Get("namespace"); ns != "" {
		f.Eq("namespace_name", ns)
	}
	rows, err := h.d.Cargoes.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) createCargo(w http.ResponseWriter, r *http.Request) {
	var p v1.CargoSpecData
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.Cargoes.Create(r.Context(), namespaceOf(r), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handlers) inspectCargo(w http.ResponseWriter, r *http.Request) {
	row, err := h.d.Cargoes.Inspect(r.Context(), namespaceOf(r), chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) updateCargo(w http.ResponseWriter, r *http.Request) {
	var p v1.CargoSpecData
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.Cargoes.Update(r.Context(), namespaceOf(r), chi.URLParam(r, "name"), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) deleteCargo(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Cargoes.Delete(r.Context(), namespaceOf(r), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// startCargo and stopCargo return 202 immediately: Cargoes.Start/Stop
// schedule the converge task and return as soon as it's queued, the actual
// transition happens asynchronously.
func (h *handlers) startCargo(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Cargoes.Start(r.Context(), namespaceOf(r), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (h *handlers) stopCargo(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Cargoes.Stop(r.Context(), namespaceOf(r), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}
