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
	"time"
)

// Process is a single container instance belonging to a cargo/job/vm. It
// is a reflection of the container runtime's state, written only by the
// docker-event ingester and the creation path (see DESIGN.md "Process
// reflection, not ownership").
type Process struct {
	Key       string          `json:"Key" db:"key"`
	Kind      ObjKind         `json:"Kind" db:"kind"`
	KindKey   string          `json:"KindKey" db:"kind_key"`
	Name      string          `json:"Name" db:"name"`
	NodeName  string          `json:"NodeName" db:"node_name"`
	Data      json.RawMessage `json:"Data" db:"data"`
	CreatedAt time.Time       `json:"CreatedAt" db:"created_at"`
	UpdatedAt time.Time       `json:"UpdatedAt" db:"updated_at"`
}

// ProcessInspectData is the subset of `docker inspect` JSON the reconciler
// cares about when computing aggregate status. It is decoded out of
// Process.Data on demand rather than being stored separately.
type ProcessInspectData struct {
	State struct {
		Running    bool   `json:"Running"`
		Restarting bool   `json:"Restarting"`
		ExitCode   int    `json:"ExitCode"`
		Status     string `json:"Status"`
	} `json:"State"`
}

// ProcessStatusCounts is the tally the ingester computes from a kind_key's
// live processes to recompute the owner's aggregate actual status.
type ProcessStatusCounts struct {
	Total   int
	Failed  int
	Success int
	Running int
}

// Aggregate reduces per-process counts to one status: running wins, else
// failed, else success if all succeeded, else stopped.
func (c ProcessStatusCounts) Aggregate() ProcessState {
	switch {
	case c.Total == 0:
		return StateStopped
	case c.Running > 0:
		return StateRunning
	case c.Failed > 0:
		return StateFailed
	case c.Success == c.Total:
		return StateFinish
	default:
		return StateStopped
	}
}
