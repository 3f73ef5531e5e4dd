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

package orchestrator

import (
	"context"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/reconciler"
	"github.com/nanocl-dev/nanocl/internal/store"
	"github.com/nanocl-dev/nanocl/internal/task"
)

// fakeStatusManager, fakeTaskScheduler and fakeConverger are shared by every
// cargo/vm/job orchestrator test: all three entity kinds drive the same
// StatusManager/TaskScheduler/Converger collaborators, so one fake per
// interface here avoids three near-identical copies.
type fakeStatusManager struct {
	rows map[string]v1.ObjPsStatus
}

func newFakeStatusManager() *fakeStatusManager {
	return &fakeStatusManager{rows: map[string]v1.ObjPsStatus{}}
}

func (f *fakeStatusManager) Create(_ context.Context, key string, initial v1.ProcessState) (*v1.ObjPsStatus, error) {
	s := v1.ObjPsStatus{Key: key, Wanted: initial, Actual: initial}
	f.rows[key] = s
	cp := s
	return &cp, nil
}

func (f *fakeStatusManager) Get(_ context.Context, key string) (*v1.ObjPsStatus, error) {
	s, ok := f.rows[key]
	if !ok {
		return nil, store.NotFound("status", nil)
	}
	cp := s
	return &cp, nil
}

func (f *fakeStatusManager) Delete(_ context.Context, key string) error {
	delete(f.rows, key)
	return nil
}

func (f *fakeStatusManager) SetWanted(_ context.Context, key string, next v1.ProcessState, _ *v1.Actor) (*v1.ObjPsStatus, bool, error) {
	s, ok := f.rows[key]
	if !ok {
		return nil, false, store.NotFound("status", nil)
	}
	if s.Wanted == next {
		cp := s
		return &cp, false, nil
	}
	s = s.WithWanted(next)
	f.rows[key] = s
	cp := s
	return &cp, true, nil
}

func (f *fakeStatusManager) SetActual(_ context.Context, key string, next v1.ProcessState, _ *v1.Actor) (*v1.ObjPsStatus, bool, error) {
	s, ok := f.rows[key]
	if !ok {
		return nil, false, store.NotFound("status", nil)
	}
	changed := s.Actual != next
	s = s.WithActual(next)
	f.rows[key] = s
	cp := s
	return &cp, changed, nil
}

func (f *fakeStatusManager) SetIntent(_ context.Context, key string, transient, terminal v1.ProcessState, _ *v1.Actor) (*v1.ObjPsStatus, bool, error) {
	s, ok := f.rows[key]
	if !ok {
		return nil, false, store.NotFound("status", nil)
	}
	if s.Wanted == terminal {
		cp := s
		return &cp, false, nil
	}
	s = s.WithWanted(terminal)
	if transient != terminal {
		s = s.WithActual(transient)
	}
	f.rows[key] = s
	cp := s
	return &cp, true, nil
}

type fakeTaskScheduler struct {
	ran []string
}

// Add runs fn synchronously so tests can assert its effects without
// waiting on a goroutine; it is close enough to task.Manager's real
// fire-and-forget semantics for orchestrator tests, which only care that
// the reconciler/status side effects inside fn actually happened.
func (f *fakeTaskScheduler) Add(key string, fn task.Func, onErr task.OnError) {
	f.ran = append(f.ran, key)
	if err := fn(context.Background()); err != nil && onErr != nil {
		onErr(key, err)
	}
}

func (f *fakeTaskScheduler) Cancel(_ string)                       {}
func (f *fakeTaskScheduler) Wait(_ context.Context, _ string) error { return nil }
func (f *fakeTaskScheduler) IsRunning(_ string) bool               { return false }

type fakeConverger struct {
	converged []reconciler.Target
	err       error
}

func (f *fakeConverger) Converge(_ context.Context, t reconciler.Target) error {
	if f.err != nil {
		return f.err
	}
	f.converged = append(f.converged, t)
	return nil
}
