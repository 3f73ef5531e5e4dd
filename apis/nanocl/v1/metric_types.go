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

package v1

import (
	"encoding/json"
	"strings"
	"time"
)

// ReservedMetricPrefix is reserved for daemon-internal metrics (metrsd
// samples, the circuit breaker, etc). Metrics POSTed by clients with this
// prefix are rejected with BadRequest.
const ReservedMetricPrefix = "nanocl.io/"

// IsReservedMetricKind reports whether kind is in the daemon-reserved
// namespace.
func IsReservedMetricKind(kind string) bool {
	return strings.HasPrefix(kind, ReservedMetricPrefix)
}

// Metric is one observation, keyed by a namespaced Kind.
type Metric struct {
	Key       string          `json:"Key" db:"key"`
	Kind      string          `json:"Kind" db:"kind"`
	Data      json.RawMessage `json:"Data" db:"data"`
	NodeName  string          `json:"NodeName" db:"node_name"`
	Note      string          `json:"Note,omitempty" db:"note"`
	CreatedAt time.Time       `json:"CreatedAt" db:"created_at"`
}

// MetricPartial is the client-supplied payload to insert a metric.
type MetricPartial struct {
	Kind string          `json:"Kind"`
	Data json.RawMessage `json:"Data"`
	Note string          `json:"Note,omitempty"`
}

// Well-known internal metric kinds.
const (
	MetricKindMetrsd     = "nanocl.io/metrs"
	MetricKindProxyHTTP   = "ncproxy.io/http"
	MetricKindProxyStream = "ncproxy.io/stream"
)
