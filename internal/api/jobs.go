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

func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	rows, err := h.d.Jobs.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) createJob(w http.ResponseWriter, r *http.Request) {
	var p v1.JobPartial
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.Jobs.Create(r.Context(), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handlers) inspectJob(w http.ResponseWriter, r *http.Request) {
	row, err := h.d.Jobs.Inspect(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Jobs.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) startJob(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Jobs.Start(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}
