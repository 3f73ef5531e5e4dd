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
	"time"

	"github.com/google/uuid"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// ResourceRepository is the subset of store.Repository[v1.Resource]
// Resources needs.
type ResourceRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Resource) error
	ReadByPK(ctx context.Context, pk any) (*v1.Resource, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Resource, error)
	DelByPK(ctx context.Context, pk any) error
}

// ResourceKindLookup is the subset of ResourceKinds Resources needs to find
// the controller URL registered for a resource's kind.
type ResourceKindLookup interface {
	Inspect(ctx context.Context, name string) (*v1.ResourceKindInspect, error)
}

// ControllerClient applies or removes a rule against the controller URL
// registered on a resource's kind: a PUT to install/replace it, a DELETE
// to remove it, against the controller's own UDS/TCP listener.
type ControllerClient interface {
	ApplyRule(ctx context.Context, controllerURL, name string, data json.RawMessage) error
	RemoveRule(ctx context.Context, controllerURL, name string) error
}

// Resources orchestrates opaque, controller-delegated configuration
// objects. Every create/update/delete calls out to the controller URL
// registered on the resource's kind; failure of that call aborts the
// operation and surfaces the controller's error upstream.
type Resources struct {
	repo       ResourceRepository
	specs      SpecRepository
	kinds      ResourceKindLookup
	controller ControllerClient
	events     Notifier
	log        logging.Logger
}

// NewResources builds a Resources orchestrator.
func NewResources(repo ResourceRepository, specs SpecRepository, kinds ResourceKindLookup, controller ControllerClient, events Notifier, log logging.Logger) *Resources {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resources{repo: repo, specs: specs, kinds: kinds, controller: controller, events: events, log: log}
}

// Create calls the kind's controller with the resource's data, then stores
// the row only if the controller accepted it.
func (r *Resources) Create(ctx context.Context, p v1.ResourcePartial) (*v1.Resource, error) {
	if p.Name == "" {
		return nil, store.BadRequest("resource", errors.New("name is required"))
	}

	url, err := r.controllerURL(ctx, p.Kind)
	if err != nil {
		return nil, err
	}
	if err := r.controller.ApplyRule(ctx, url, p.Name, p.Data); err != nil {
		return nil, store.Internal("resource", errors.Wrapf(err, "controller rejected resource %s", p.Name))
	}

	spec := v1.Spec{Key: uuid.NewString(), KindName: "Resource", KindKey: p.Name, Version: "1", Data: p.Data, CreatedAt: time.Now()}
	specColumns := []string{"key", "kind_name", "kind_key", "version", "data", "created_at"}
	specValues := []any{spec.Key, spec.KindName, spec.KindKey, spec.Version, []byte(spec.Data), spec.CreatedAt}
	if err := r.specs.CreateFrom(ctx, specColumns, specValues, &spec); err != nil {
		return nil, err
	}

	row := v1.Resource{Key: p.Name, Kind: p.Kind, SpecKey: spec.Key, CreatedAt: time.Now()}
	columns := []string{"key", "kind", "spec_key", "created_at"}
	values := []any{row.Key, row.Kind, row.SpecKey, row.CreatedAt}
	if err := r.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}

	r.emit(ctx, v1.ActionCreate, p.Name)
	return &row, nil
}

// Update calls the controller with the new data, then writes a new spec
// version only if the controller accepted it.
func (r *Resources) Update(ctx context.Context, name string, p v1.ResourcePartial) (*v1.Resource, error) {
	current, err := r.repo.ReadByPK(ctx, name)
	if err != nil {
		return nil, err
	}

	url, err := r.controllerURL(ctx, current.Kind)
	if err != nil {
		return nil, err
	}
	if err := r.controller.ApplyRule(ctx, url, name, p.Data); err != nil {
		return nil, store.Internal("resource", errors.Wrapf(err, "controller rejected update to resource %s", name))
	}

	spec := v1.Spec{Key: uuid.NewString(), KindName: "Resource", KindKey: name, Version: "1", Data: p.Data, CreatedAt: time.Now()}
	specColumns := []string{"key", "kind_name", "kind_key", "version", "data", "created_at"}
	specValues := []any{spec.Key, spec.KindName, spec.KindKey, spec.Version, []byte(spec.Data), spec.CreatedAt}
	if err := r.specs.CreateFrom(ctx, specColumns, specValues, &spec); err != nil {
		return nil, err
	}

	return &v1.Resource{Key: current.Key, Kind: current.Kind, SpecKey: spec.Key, CreatedAt: current.CreatedAt}, nil
}

// Inspect joins a resource with its current spec data.
func (r *Resources) Inspect(ctx context.Context, name string) (*v1.ResourceInspect, error) {
	row, err := r.repo.ReadByPK(ctx, name)
	if err != nil {
		return nil, err
	}
	spec, err := r.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return nil, err
	}
	return &v1.ResourceInspect{Resource: *row, Data: spec.Data}, nil
}

// List returns resources matching f.
func (r *Resources) List(ctx context.Context, f *v1.GenericFilter) ([]v1.Resource, error) {
	if f == nil {
		f = v1.NewFilter()
	}
	return r.repo.ReadBy(ctx, f)
}

// Delete calls the controller to remove the rule, then deletes the row.
func (r *Resources) Delete(ctx context.Context, name string) error {
	row, err := r.repo.ReadByPK(ctx, name)
	if err != nil {
		return err
	}
	url, err := r.controllerURL(ctx, row.Kind)
	if err != nil {
		return err
	}
	if err := r.controller.RemoveRule(ctx, url, name); err != nil {
		return store.Internal("resource", errors.Wrapf(err, "controller rejected removal of resource %s", name))
	}
	if err := r.repo.DelByPK(ctx, name); err != nil {
		return err
	}
	r.emit(ctx, v1.ActionDestroy, name)
	return nil
}

func (r *Resources) controllerURL(ctx context.Context, kind string) (string, error) {
	k, err := r.kinds.Inspect(ctx, kind)
	if err != nil {
		return "", errors.Wrapf(err, "cannot find resource kind %s", kind)
	}
	if len(k.Versions) == 0 {
		return "", store.Internal("resource", errors.Errorf("resource kind %s has no spec versions", kind))
	}
	var data v1.ResourceKindSpecData
	if err := json.Unmarshal(k.Versions[0].Data, &data); err != nil {
		return "", errors.Wrapf(err, "cannot unmarshal resource kind %s spec", kind)
	}
	if data.URL == "" {
		return "", store.BadRequest("resource", errors.Errorf("resource kind %s has no controller url", kind))
	}
	return data.URL, nil
}

func (r *Resources) emit(ctx context.Context, action, name string) {
	if r.events == nil {
		return
	}
	_, _ = r.events.Emit(ctx, v1.EventPartial{Kind: v1.EventNormal, Action: action, Actor: &v1.Actor{Key: name, Kind: "resource"}})
}
