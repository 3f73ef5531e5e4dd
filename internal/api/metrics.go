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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// MetricRepository is the subset of store.Repository[v1.Metric] the
// /metrics handlers need.
type MetricRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Metric) error
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Metric, error)
}

func (h *handlers) listMetrics(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	rows, err := h.d.Metrics.ReadBy(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// createMetric inserts a client-submitted metric. Kinds under
// ReservedMetricPrefix are daemon-internal (metrsd samples) and are
// rejected here so an external client can't forge them.
func (h *handlers) createMetric(w http.ResponseWriter, r *http.Request) {
	var p v1.MetricPartial
	if err := decodeJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	if v1.IsReservedMetricKind(p.Kind) {
		writeErr(w, store.BadRequest("metric", xerrors.Errorf("kind %q is reserved", p.Kind)))
		return
	}

	row := v1.Metric{
		Key:       uuid.NewString(),
		Kind:      p.Kind,
		Data:      p.Data,
		Note:      p.Note,
		NodeName:  h.d.NodeName,
		CreatedAt: time.Now(),
	}
	columns := []string{"key", "kind", "data", "note", "node_name", "created_at"}
	values := []any{row.Key, row.Kind, row.Data, row.Note, row.NodeName, row.CreatedAt}
	if err := h.d.Metrics.CreateFrom(r.Context(), columns, values, &row); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handlers) inspectMetric(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rows, err := h.d.Metrics.ReadBy(r.Context(), v1.NewFilter().Eq("key", key))
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(rows) == 0 {
		writeErr(w, store.NotFound("metric", nil))
		return
	}
	writeJSON(w, http.StatusOK, rows[0])
}
