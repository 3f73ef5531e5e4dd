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

import "time"

// ProcessState is one value of the desired/observed status tuple carried by
// an ObjPsStatus.
type ProcessState string

// Supported process states. These are the only values wanted/actual/
// prev_wanted/prev_actual may hold.
const (
	StateCreated   ProcessState = "created"
	StateStarting  ProcessState = "starting"
	StateRunning   ProcessState = "running"
	StatePatching  ProcessState = "patching"
	StateDeleting  ProcessState = "deleting"
	StateDelete    ProcessState = "delete"
	StateStopped   ProcessState = "stopped"
	StateFailed    ProcessState = "failed"
	StateUnknown   ProcessState = "unknown"
	StateFinish    ProcessState = "finish"
)

// ObjPsStatus is the desired-vs-observed status tuple for a cargo, vm or job.
// The row exists iff the owning object exists.
type ObjPsStatus struct {
	Key string `json:"key" db:"key"`

	Wanted     ProcessState `json:"wanted" db:"wanted"`
	PrevWanted ProcessState `json:"prev_wanted" db:"prev_wanted"`
	Actual     ProcessState `json:"actual" db:"actual"`
	PrevActual ProcessState `json:"prev_actual" db:"prev_actual"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WithWanted returns a copy of the status with Wanted set to next, and
// the previous Wanted value shifted into PrevWanted so every transition
// carries the old value forward in the same update.
func (s ObjPsStatus) WithWanted(next ProcessState) ObjPsStatus {
	s.PrevWanted = s.Wanted
	s.Wanted = next
	return s
}

// WithActual returns a copy of the status with Actual set to next, and the
// previous Actual value shifted into PrevActual.
func (s ObjPsStatus) WithActual(next ProcessState) ObjPsStatus {
	s.PrevActual = s.Actual
	s.Actual = next
	return s
}

// IsTerminalActual reports whether actual is a resting state that the
// reconciler is not actively driving towards another state.
func (s ObjPsStatus) IsTerminalActual() bool {
	switch s.Actual {
	case StateRunning, StateStopped, StateFailed, StateFinish, StateDelete:
		return true
	default:
		return false
	}
}
