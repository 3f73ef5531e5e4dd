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

	"github.com/nanocl-dev/nanocl/internal/store"
	"github.com/nanocl-dev/nanocl/internal/vmdisk"
)

func (h *handlers) listVMImages(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.VMImages.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) inspectVMImage(w http.ResponseWriter, r *http.Request) {
	row, err := h.d.VMImages.Inspect(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// importVMImage stages the request body's bytes as a new Base image named
// by the {name} path segment — a streamed upload, matching the original
// nanocld's own chunked-body import rather than a multipart form.
func (h *handlers) importVMImage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	row, err := h.d.VMImages.Import(r.Context(), chi.URLParam(r, "name"), r.Body)
	if err != nil {
		if vmdisk.IsAlreadyExists(err) {
			writeErr(w, store.AlreadyExists("vmimage", err))
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

type cloneVMImageRequest struct {
	Name string `json:"Name"`
}

func (h *handlers) cloneVMImage(w http.ResponseWriter, r *http.Request) {
	var p cloneVMImageRequest
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	row, err := h.d.VMImages.Clone(r.Context(), chi.URLParam(r, "name"), p.Name)
	if err != nil {
		if vmdisk.IsAlreadyExists(err) {
			writeErr(w, store.AlreadyExists("vmimage", err))
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

type resizeVMImageRequest struct {
	SizeBytes int64 `json:"SizeBytes"`
}

func (h *handlers) resizeVMImage(w http.ResponseWriter, r *http.Request) {
	var p resizeVMImageRequest
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}

	row, err := h.d.VMImages.Resize(r.Context(), chi.URLParam(r, "name"), p.SizeBytes)
	if err != nil {
		if vmdisk.IsShrink(err) {
			writeErr(w, store.BadRequest("vmimage", err))
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) deleteVMImage(w http.ResponseWriter, r *http.Request) {
	if err := h.d.VMImages.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
