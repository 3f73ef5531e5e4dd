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

import "testing"

func TestObjPsStatusWithWantedShiftsPrevious(t *testing.T) {
	s := ObjPsStatus{Wanted: StateCreated}
	s = s.WithWanted(StateRunning)
	if s.Wanted != StateRunning {
		t.Errorf("WithWanted(...): Wanted = %v, want %v", s.Wanted, StateRunning)
	}
	if s.PrevWanted != StateCreated {
		t.Errorf("WithWanted(...): PrevWanted = %v, want %v", s.PrevWanted, StateCreated)
	}
}

func TestObjPsStatusWithActualShiftsPrevious(t *testing.T) {
	s := ObjPsStatus{Actual: StateStarting}
	s = s.WithActual(StateRunning)
	if s.Actual != StateRunning {
		t.Errorf("WithActual(...): Actual = %v, want %v", s.Actual, StateRunning)
	}
	if s.PrevActual != StateStarting {
		t.Errorf("WithActual(...): PrevActual = %v, want %v", s.PrevActual, StateStarting)
	}
}

func TestObjPsStatusIsTerminalActual(t *testing.T) {
	terminal := []ProcessState{StateRunning, StateStopped, StateFailed, StateFinish, StateDelete}
	for _, state := range terminal {
		if s := (ObjPsStatus{Actual: state}); !s.IsTerminalActual() {
			t.Errorf("IsTerminalActual(): %v reported non-terminal, want terminal", state)
		}
	}

	transient := []ProcessState{StateCreated, StateStarting, StatePatching, StateDeleting, StateUnknown}
	for _, state := range transient {
		if s := (ObjPsStatus{Actual: state}); s.IsTerminalActual() {
			t.Errorf("IsTerminalActual(): %v reported terminal, want non-terminal", state)
		}
	}
}

func TestProcessStatusCountsAggregate(t *testing.T) {
	cases := []struct {
		name string
		c    ProcessStatusCounts
		want ProcessState
	}{
		{"no processes", ProcessStatusCounts{Total: 0}, StateStopped},
		{"one running among many", ProcessStatusCounts{Total: 3, Running: 1, Failed: 1}, StateRunning},
		{"a failure with none running", ProcessStatusCounts{Total: 2, Failed: 1, Success: 1}, StateFailed},
		{"all succeeded", ProcessStatusCounts{Total: 2, Success: 2}, StateFinish},
		{"mixed with no failures or successes covering the total", ProcessStatusCounts{Total: 2, Success: 1}, StateStopped},
	}
	for _, tc := range cases {
		if got := tc.c.Aggregate(); got != tc.want {
			t.Errorf("%s: Aggregate() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsReservedMetricKind(t *testing.T) {
	if !IsReservedMetricKind("nanocl.io/metrs") {
		t.Error("IsReservedMetricKind(nanocl.io/metrs) = false, want true")
	}
	if IsReservedMetricKind("ncproxy.io/http") {
		t.Error("IsReservedMetricKind(ncproxy.io/http) = true, want false")
	}
}
