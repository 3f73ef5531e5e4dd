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

// Package objstatus wraps the ObjPsStatus desired/observed tuple with the
// two transition kinds every orchestrator and reconciler uses: an API-intent
// transition (SetWanted, driven by a create/update/delete request) and a
// runtime-observation transition (SetActual, driven by docker events). Both
// are idempotent: re-applying the current state is a no-op, never a new
// revision and never an event.
package objstatus

import (
	"context"
	"time"

	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// Repository is the subset of store.Repository[v1.ObjPsStatus] Manager needs.
type Repository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.ObjPsStatus) error
	ReadByPK(ctx context.Context, pk any) (*v1.ObjPsStatus, error)
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.ObjPsStatus, error)
	DelByPK(ctx context.Context, pk any) error
}

// Notifier is implemented by internal/eventbus.Bus; kept as an interface so
// Manager has no import-time dependency on it.
type Notifier interface {
	Emit(ctx context.Context, p v1.EventPartial) (*v1.Event, error)
}

// Manager owns the lifecycle of ObjPsStatus rows.
type Manager struct {
	repo Repository
	bus  Notifier
}

// New builds a Manager backed by repo. bus may be nil, in which case
// transitions are persisted but no event is emitted (used by tests and by
// tools that don't run the full daemon).
func New(repo Repository, bus Notifier) *Manager {
	return &Manager{repo: repo, bus: bus}
}

// Create inserts a new status row for key with wanted and actual both set to
// initial, and prev_wanted/prev_actual equal to initial too, so the first
// real transition has a well-defined "previous" value to shift.
func (m *Manager) Create(ctx context.Context, key string, initial v1.ProcessState) (*v1.ObjPsStatus, error) {
	now := time.Now()
	s := v1.ObjPsStatus{
		Key:        key,
		Wanted:     initial,
		PrevWanted: initial,
		Actual:     initial,
		PrevActual: initial,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	columns := []string{"key", "wanted", "prev_wanted", "actual", "prev_actual", "created_at", "updated_at"}
	values := []any{s.Key, s.Wanted, s.PrevWanted, s.Actual, s.PrevActual, s.CreatedAt, s.UpdatedAt}

	if err := m.repo.CreateFrom(ctx, columns, values, &s); err != nil {
		return nil, xerrors.Wrapf(err, "cannot create status for %s", key)
	}
	return &s, nil
}

// Get returns the current status of key.
func (m *Manager) Get(ctx context.Context, key string) (*v1.ObjPsStatus, error) {
	return m.repo.ReadByPK(ctx, key)
}

// Delete removes the status row for key, once the owning object is gone.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.repo.DelByPK(ctx, key)
}

// SetWanted applies an API-intent transition: a create/update/delete request
// changed what the object should converge to. Returns the updated status and
// whether a transition actually happened.
func (m *Manager) SetWanted(ctx context.Context, key string, next v1.ProcessState, actor *v1.Actor) (*v1.ObjPsStatus, bool, error) {
	return m.transition(ctx, key, next, true, actor)
}

// SetIntent is the combined form of the "API intent" step spec'd for
// start/stop/update/delete: wanted is set to terminal, actual moves to
// transient if the two differ, in a single row update, and exactly one
// event fires — the transient action (Starting/Stopping/Updating/
// Destroying). Splitting this into a SetWanted then a SetActual call, as
// callers used to do, fires the terminal action twice: once immediately
// (wrongly, since SetWanted(terminal) on its own already resolves to the
// terminal action) and again once the reconciler actually reaches it.
//
// When transient == terminal (stop has no distinct pre-terminal state to
// sit in), actual is left untouched here so the runtime-observation
// SetActual call the reconciler makes once the container is truly stopped
// still sees a real change and fires the terminal action; writing actual
// to the terminal value up front would make that later call a no-op and
// the terminal action would never fire at all.
//
// Returns whether the wanted half of the transition was new (the
// idempotency gate callers use to skip scheduling a redundant converge).
func (m *Manager) SetIntent(ctx context.Context, key string, transient, terminal v1.ProcessState, actor *v1.Actor) (*v1.ObjPsStatus, bool, error) {
	current, err := m.repo.ReadByPK(ctx, key)
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "cannot read status for %s", key)
	}
	if current.Wanted == terminal {
		return current, false, nil
	}

	updated := current.WithWanted(terminal)
	columns := []string{"wanted", "prev_wanted", "updated_at"}
	values := []any{updated.Wanted, updated.PrevWanted, time.Now()}
	if transient != terminal {
		updated = updated.WithActual(transient)
		columns = append(columns, "actual", "prev_actual")
		values = append(values, updated.Actual, updated.PrevActual)
	}

	row, err := m.repo.UpdatePK(ctx, key, columns, values)
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "cannot update status for %s", key)
	}

	m.notify(ctx, key, terminal, true, actor)

	return row, true, nil
}

// SetActual applies a runtime-observation transition: the reconciler
// recomputed the aggregate actual state from what docker reported. Returns
// the updated status and whether a transition actually happened.
func (m *Manager) SetActual(ctx context.Context, key string, next v1.ProcessState, actor *v1.Actor) (*v1.ObjPsStatus, bool, error) {
	return m.transition(ctx, key, next, false, actor)
}

func (m *Manager) transition(ctx context.Context, key string, next v1.ProcessState, wanted bool, actor *v1.Actor) (*v1.ObjPsStatus, bool, error) {
	current, err := m.repo.ReadByPK(ctx, key)
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "cannot read status for %s", key)
	}

	if (wanted && current.Wanted == next) || (!wanted && current.Actual == next) {
		return current, false, nil
	}

	var updated v1.ObjPsStatus
	var columns []string
	var values []any
	if wanted {
		updated = current.WithWanted(next)
		columns = []string{"wanted", "prev_wanted", "updated_at"}
		values = []any{updated.Wanted, updated.PrevWanted, time.Now()}
	} else {
		updated = current.WithActual(next)
		columns = []string{"actual", "prev_actual", "updated_at"}
		values = []any{updated.Actual, updated.PrevActual, time.Now()}
	}

	row, err := m.repo.UpdatePK(ctx, key, columns, values)
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "cannot update status for %s", key)
	}

	m.notify(ctx, key, next, wanted, actor)

	return row, true, nil
}

func (m *Manager) notify(ctx context.Context, key string, next v1.ProcessState, wanted bool, actor *v1.Actor) {
	if m.bus == nil {
		return
	}

	kind := v1.EventNormal
	if next == v1.StateFailed {
		kind = v1.EventError
	}

	action := actionFor(next, wanted)
	if action == "" {
		return
	}

	_, _ = m.bus.Emit(ctx, v1.EventPartial{
		Kind:   kind,
		Action: action,
		Actor:  actor,
		Note:   key,
	})
}

// actionFor maps a status transition to the event action it announces.
// wanted distinguishes the two transition kinds objstatus carries: an
// API-intent transition (wanted=true, called with the terminal target
// state) must only ever announce the transient "-ing" form of that target,
// never the terminal action itself — the terminal action belongs solely to
// the runtime-observation transition (wanted=false) that fires once the
// reconciler actually reaches it. Collapsing these into one switch that
// ignored wanted for anything but StateStopped was the bug behind a single
// start/stop/update/delete request emitting its terminal action twice.
func actionFor(s v1.ProcessState, wanted bool) string {
	if wanted {
		switch s {
		case v1.StateRunning:
			return v1.ActionStarting
		case v1.StateStopped:
			return v1.ActionStopping
		case v1.StateDelete:
			return v1.ActionDestroying
		case v1.StatePatching:
			return v1.ActionUpdating
		default:
			return ""
		}
	}

	switch s {
	case v1.StateStarting:
		return v1.ActionStarting
	case v1.StateRunning:
		return v1.ActionStart
	case v1.StateStopped:
		return v1.ActionStop
	case v1.StateDeleting:
		return v1.ActionDestroying
	case v1.StateDelete:
		return v1.ActionDestroy
	case v1.StatePatching:
		return v1.ActionUpdating
	case v1.StateFailed:
		return v1.ActionError
	case v1.StateFinish:
		return v1.ActionStop
	default:
		return ""
	}
}
