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
	"github.com/nanocl-dev/nanocl/internal/task"
)

// Notifier is implemented by internal/eventbus.Bus. Every orchestrator
// depends on this narrow interface rather than the concrete bus, the same
// shape internal/objstatus uses.
type Notifier interface {
	Emit(ctx context.Context, p v1.EventPartial) (*v1.Event, error)
}

// SpecRepository is the subset of store.Repository[v1.Spec] every
// orchestrator that owns a spec history needs.
type SpecRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Spec) error
	ReadByPK(ctx context.Context, pk any) (*v1.Spec, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Spec, error)
}

// CargoRepository is the subset of store.Repository[v1.Cargo] needed by the
// Namespaces and Cargoes orchestrators.
type CargoRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Cargo) error
	ReadByPK(ctx context.Context, pk any) (*v1.Cargo, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Cargo, error)
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.Cargo, error)
	DelByPK(ctx context.Context, pk any) error
}

// ProcessRepository is the subset of store.Repository[v1.Process] every
// Inspect operation uses to list an object's child processes.
type ProcessRepository interface {
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Process, error)
}

// StatusManager is the subset of *objstatus.Manager every orchestrator uses.
type StatusManager interface {
	Create(ctx context.Context, key string, initial v1.ProcessState) (*v1.ObjPsStatus, error)
	Get(ctx context.Context, key string) (*v1.ObjPsStatus, error)
	Delete(ctx context.Context, key string) error
	SetWanted(ctx context.Context, key string, next v1.ProcessState, actor *v1.Actor) (*v1.ObjPsStatus, bool, error)
	SetActual(ctx context.Context, key string, next v1.ProcessState, actor *v1.Actor) (*v1.ObjPsStatus, bool, error)
	SetIntent(ctx context.Context, key string, transient, terminal v1.ProcessState, actor *v1.Actor) (*v1.ObjPsStatus, bool, error)
}

// TaskScheduler is the subset of *task.Manager every orchestrator uses to
// spawn a reconciliation task for an object key.
type TaskScheduler interface {
	Add(key string, fn task.Func, onErr task.OnError)
	Cancel(key string)
	Wait(ctx context.Context, key string) error
	IsRunning(key string) bool
}

// Converger is the subset of *reconciler.Reconciler every orchestrator uses
// to drive an object's containers towards a wanted state.
type Converger interface {
	Converge(ctx context.Context, t reconciler.Target) error
}
