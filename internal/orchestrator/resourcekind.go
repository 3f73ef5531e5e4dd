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
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// ResourceKindRepository is the subset of store.Repository[v1.ResourceKind]
// ResourceKinds needs.
type ResourceKindRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.ResourceKind) error
	ReadByPK(ctx context.Context, pk any) (*v1.ResourceKind, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.ResourceKind, error)
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.ResourceKind, error)
	DelByPK(ctx context.Context, pk any) error
}

// ResourceKinds orchestrates the declarative configuration kinds a
// controller registers itself against.
type ResourceKinds struct {
	repo   ResourceKindRepository
	specs  SpecRepository
	events Notifier
	log    logging.Logger
}

// NewResourceKinds builds a ResourceKinds orchestrator.
func NewResourceKinds(repo ResourceKindRepository, specs SpecRepository, events Notifier, log logging.Logger) *ResourceKinds {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ResourceKinds{repo: repo, specs: specs, events: events, log: log}
}

// Create validates name contains exactly one "/" and the spec declares a
// schema or a URL, then stores the first versioned spec row. Registering a
// kind that already exists writes a new version instead (the same thing
// Update does) so a controller's startup handshake can safely call Create
// unconditionally.
func (r *ResourceKinds) Create(ctx context.Context, name string, data v1.ResourceKindSpecData) (*v1.ResourceKind, error) {
	if strings.Count(name, "/") != 1 {
		return nil, store.BadRequest("resourcekind", errors.Errorf("name %q must contain exactly one /", name))
	}
	if len(data.Schema) == 0 && data.URL == "" {
		return nil, store.BadRequest("resourcekind", errors.New("spec must declare a schema or a url"))
	}

	if existing, err := r.repo.ReadByPK(ctx, name); err == nil {
		return r.Update(ctx, name, data, existing)
	}

	spec, err := r.writeSpec(ctx, name, data)
	if err != nil {
		return nil, err
	}

	row := v1.ResourceKind{Name: name, SpecKey: spec.Key, CreatedAt: time.Now()}
	columns := []string{"name", "spec_key", "created_at"}
	values := []any{row.Name, row.SpecKey, row.CreatedAt}
	if err := r.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}

	r.emit(ctx, v1.ActionCreate, name)
	return &row, nil
}

// Update writes a new spec version for an existing kind and repoints
// spec_key at it.
func (r *ResourceKinds) Update(ctx context.Context, name string, data v1.ResourceKindSpecData, current *v1.ResourceKind) (*v1.ResourceKind, error) {
	if len(data.Schema) == 0 && data.URL == "" {
		return nil, store.BadRequest("resourcekind", errors.New("spec must declare a schema or a url"))
	}
	if current == nil {
		var err error
		current, err = r.repo.ReadByPK(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	spec, err := r.writeSpec(ctx, name, data)
	if err != nil {
		return nil, err
	}

	updated, err := r.repo.UpdatePK(ctx, name, []string{"spec_key"}, []any{spec.Key})
	if err != nil {
		return nil, err
	}
	r.emit(ctx, v1.ActionUpdate, name)
	return updated, nil
}

func (r *ResourceKinds) writeSpec(ctx context.Context, name string, data v1.ResourceKindSpecData) (*v1.Spec, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal resource kind spec")
	}
	spec := v1.Spec{Key: uuid.NewString(), KindName: "ResourceKind", KindKey: name, Version: "1", Data: raw, CreatedAt: time.Now()}
	columns := []string{"key", "kind_name", "kind_key", "version", "data", "created_at"}
	values := []any{spec.Key, spec.KindName, spec.KindKey, spec.Version, []byte(spec.Data), spec.CreatedAt}
	if err := r.specs.CreateFrom(ctx, columns, values, &spec); err != nil {
		return nil, errors.Wrapf(err, "cannot write spec for resource kind %s", name)
	}
	return &spec, nil
}

// Inspect returns a kind with the full list of its spec versions.
func (r *ResourceKinds) Inspect(ctx context.Context, name string) (*v1.ResourceKindInspect, error) {
	row, err := r.repo.ReadByPK(ctx, name)
	if err != nil {
		return nil, err
	}
	versions, err := r.specs.ReadBy(ctx, v1.NewFilter().Eq("kind_key", name).WithOrder("created_at", v1.Desc))
	if err != nil {
		return nil, err
	}
	return &v1.ResourceKindInspect{ResourceKind: *row, Versions: versions}, nil
}

// List returns every registered resource kind.
func (r *ResourceKinds) List(ctx context.Context) ([]v1.ResourceKind, error) {
	return r.repo.ReadBy(ctx, v1.NewFilter())
}

// Delete removes a kind's row. Callers must ensure no Resource still
// references it first (the API layer returns Conflict if any do).
func (r *ResourceKinds) Delete(ctx context.Context, name string) error {
	if err := r.repo.DelByPK(ctx, name); err != nil {
		return err
	}
	r.emit(ctx, v1.ActionDestroy, name)
	return nil
}

func (r *ResourceKinds) emit(ctx context.Context, action, name string) {
	if r.events == nil {
		return
	}
	_, _ = r.events.Emit(ctx, v1.EventPartial{Kind: v1.EventNormal, Action: action, Actor: &v1.Actor{Key: name, Kind: "resourcekind"}})
}
