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

// Package circuit provides circuit breaker functionality for nanocld's
// reconciler and controller clients. It prevents tight retry loops when the
// container runtime or a controller socket is unreachable.
package circuit

import (
	"context"
	"fmt"
	"time"
)

// Breaker tracks reconciliation attempts against a target key and opens when
// thresholds are exceeded.
type Breaker interface {
	// GetState returns the current circuit breaker state for a target key.
	GetState(ctx context.Context, target string) State

	// RecordEvent records an attempt (e.g. a docker call, a controller PUT)
	// against the target.
	RecordEvent(ctx context.Context, target string, source EventSource)

	// RecordAllowed updates the last-allowed time for half-open tracking.
	RecordAllowed(ctx context.Context, target string)
}

// EventSource identifies what triggered a reconciliation attempt.
type EventSource struct {
	// Kind is the kind of thing that triggered the attempt, e.g. "docker",
	// "controller", "task".
	Kind string

	// Name names the specific source, e.g. a container ID or rule name.
	Name string
}

// String returns a human-readable representation of the event source.
func (es EventSource) String() string {
	return fmt.Sprintf("%s/%s", es.Kind, es.Name)
}

// State represents the current circuit breaker state for a target.
type State struct {
	// IsOpen indicates whether the circuit breaker is currently open.
	IsOpen bool

	// NextAllowedAt is when the next request can be allowed in half-open state.
	NextAllowedAt time.Time

	// TriggeredBy is the most frequently seen source when the circuit opened.
	TriggeredBy string
}

// NopBreaker is a no-op implementation of Breaker that never opens.
type NopBreaker struct{}

// GetState always returns a closed circuit.
func (n *NopBreaker) GetState(_ context.Context, _ string) State {
	return State{IsOpen: false}
}

// RecordEvent does nothing.
func (n *NopBreaker) RecordEvent(_ context.Context, _ string, _ EventSource) {}

// RecordAllowed does nothing.
func (n *NopBreaker) RecordAllowed(_ context.Context, _ string) {}
