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

// Package metrics subscribes to the external metrsd process over a Unix
// socket and turns each CPU/MEM/DISK/NET sample into a metrics row, and
// exposes the daemon's own Prometheus registry alongside it (the same
// prometheus.Collector pattern internal/circuit's breaker metrics use).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewRegistry builds the daemon's Prometheus registry. Controllers and
// the core both register their collectors here; it is mounted at /_prom,
// distinct from the `metrics` resource kind in the REST surface, which
// internal/circuit's breaker collector and this package's ingestion
// counters also feed.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}

// Counters tracks metrsd ingestion volume and failures.
type Counters struct {
	Samples *prometheus.CounterVec
	Errors  prometheus.Counter
}

// NewCounters builds and registers a Counters against reg.
func NewCounters(reg *prometheus.Registry) *Counters {
	c := &Counters{
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nanocl",
			Subsystem: "metrsd",
			Name:      "samples_total",
			Help:      "Samples ingested from metrsd, by kind.",
		}, []string{"kind"}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nanocl",
			Subsystem: "metrsd",
			Name:      "ingest_errors_total",
			Help:      "Samples that failed to decode or persist.",
		}),
	}
	reg.MustRegister(c.Samples, c.Errors)
	return c
}
