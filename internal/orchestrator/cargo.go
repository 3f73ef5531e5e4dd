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

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/reconciler"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// Cargoes orchestrates replicated container groups: create/update/delete/
// inspect, plus the start/stop task kinds that converge them. Create only
// writes spec+status; starting the replica set is a distinct intent
// issued against /processes/cargo/{name}/start.
type Cargoes struct {
	repo   CargoRepository
	specs  SpecRepository
	procs  ProcessRepository
	status StatusManager
	tasks  TaskScheduler
	conv   Converger
	events Notifier
	node   string
	log    logging.Logger
}

// NewCargoes builds a Cargoes orchestrator. node is the local node name
// applied to every container the reconciler creates on this daemon's behalf.
func NewCargoes(repo CargoRepository, specs SpecRepository, procs ProcessRepository, status StatusManager, tasks TaskScheduler, conv Converger, events Notifier, node string, log logging.Logger) *Cargoes {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Cargoes{repo: repo, specs: specs, procs: procs, status: status, tasks: tasks, conv: conv, events: events, node: node, log: log}
}

// Create inserts a cargo's spec and status rows but does not start it.
func (c *Cargoes) Create(ctx context.Context, namespace string, p v1.CargoSpecData) (*v1.Cargo, error) {
	if p.Name == "" {
		return nil, store.BadRequest("cargo", errors.New("name is required"))
	}
	if p.Replicas <= 0 {
		p.Replicas = 1
	}
	p.Container.Labels = nil // labels are derived by the reconciler, not client-supplied

	key := p.Name + "." + namespace

	spec, err := c.writeSpec(ctx, key, p)
	if err != nil {
		return nil, err
	}

	if _, err := c.status.Create(ctx, key, v1.StateCreated); err != nil {
		return nil, errors.Wrapf(err, "cannot create status for cargo %s", key)
	}

	now := time.Now()
	row := v1.Cargo{Key: key, Name: p.Name, NamespaceName: namespace, SpecKey: spec.Key, StatusKey: key, CreatedAt: now}
	columns := []string{"key", "name", "namespace_name", "spec_key", "status_key", "created_at"}
	values := []any{row.Key, row.Name, row.NamespaceName, row.SpecKey, row.StatusKey, row.CreatedAt}
	if err := c.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}

	c.emit(ctx, v1.ActionCreate, key)
	return &row, nil
}

func (c *Cargoes) writeSpec(ctx context.Context, key string, p v1.CargoSpecData) (*v1.Spec, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal cargo spec")
	}

	spec := v1.Spec{Key: uuid.NewString(), KindName: "Cargo", KindKey: key, Version: "1", Data: data, CreatedAt: time.Now()}
	columns := []string{"key", "kind_name", "kind_key", "version", "data", "created_at"}
	values := []any{spec.Key, spec.KindName, spec.KindKey, spec.Version, []byte(spec.Data), spec.CreatedAt}
	if err := c.specs.CreateFrom(ctx, columns, values, &spec); err != nil {
		return nil, errors.Wrapf(err, "cannot write spec for cargo %s", key)
	}
	return &spec, nil
}

// Inspect joins a cargo with its current spec, status and live processes.
func (c *Cargoes) Inspect(ctx context.Context, namespace, name string) (*v1.CargoInspect, error) {
	key := name + "." + namespace

	row, err := c.repo.ReadByPK(ctx, key)
	if err != nil {
		return nil, err
	}

	spec, err := c.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return nil, err
	}
	var data v1.CargoSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal cargo spec")
	}

	status, err := c.status.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	procs, err := c.procs.ReadBy(ctx, v1.NewFilter().Eq("kind_key", key))
	if err != nil {
		return nil, err
	}

	return &v1.CargoInspect{Cargo: *row, Spec: data, Status: *status, Processes: procs}, nil
}

// Update merges p's non-zero fields onto the cargo's current spec — a
// client omitting a field (say, Replicas) keeps its existing value rather
// than resetting to the zero value — and writes the merged result as a new
// spec version, kicking off a rolling update task; the cargo's wanted state
// is unchanged, only actual moves to "patching" while the rollout runs.
func (c *Cargoes) Update(ctx context.Context, namespace, name string, p v1.CargoSpecData) (*v1.Cargo, error) {
	key := name + "." + namespace

	row, err := c.repo.ReadByPK(ctx, key)
	if err != nil {
		return nil, err
	}

	currentSpec, err := c.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return nil, err
	}
	var merged v1.CargoSpecData
	if err := json.Unmarshal(currentSpec.Data, &merged); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal current cargo spec")
	}
	if err := mergo.Merge(&merged, p, mergo.WithOverride); err != nil {
		return nil, errors.Wrap(err, "cannot merge cargo spec update")
	}
	if merged.Replicas <= 0 {
		merged.Replicas = 1
	}

	spec, err := c.writeSpec(ctx, key, merged)
	if err != nil {
		return nil, err
	}

	updated, err := c.repo.UpdatePK(ctx, key, []string{"spec_key"}, []any{spec.Key})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot update spec_key for cargo %s", key)
	}

	if _, _, err := c.status.SetActual(ctx, key, v1.StatePatching, &v1.Actor{Key: key, Kind: string(v1.KindCargo)}); err != nil {
		return nil, err
	}

	c.scheduleConverge(key, v1.StateRunning, merged.Container, merged.Replicas, merged.ImagePullPolicy)
	return updated, nil
}

// Start requests the cargo's replica set be brought up to its spec's
// replica count. Idempotent: when StatusManager.SetIntent reports no change
// (start requested again on a cargo already headed for running), Start
// returns without scheduling a converge task.
func (c *Cargoes) Start(ctx context.Context, namespace, name string) error {
	return c.transition(ctx, namespace, name, v1.StateStarting, v1.StateRunning)
}

// Stop requests the cargo's containers be stopped without removing them.
func (c *Cargoes) Stop(ctx context.Context, namespace, name string) error {
	return c.transition(ctx, namespace, name, v1.StateStopped, v1.StateStopped)
}

// List returns cargoes matching f.
func (c *Cargoes) List(ctx context.Context, f *v1.GenericFilter) ([]v1.Cargo, error) {
	if f == nil {
		f = v1.NewFilter()
	}
	return c.repo.ReadBy(ctx, f)
}

// Delete tears down the cargo's containers and removes its store rows.
func (c *Cargoes) Delete(ctx context.Context, namespace, name string) error {
	key := name + "." + namespace

	if _, _, err := c.status.SetWanted(ctx, key, v1.StateDelete, &v1.Actor{Key: key, Kind: string(v1.KindCargo)}); err != nil {
		return err
	}

	c.tasks.Add(key, func(taskCtx context.Context) error {
		if err := c.conv.Converge(taskCtx, reconciler.Target{Key: key, Kind: v1.KindCargo, NodeName: c.node, Wanted: v1.StateDelete}); err != nil {
			return err
		}
		if err := c.status.Delete(taskCtx, key); err != nil {
			return err
		}
		return c.repo.DelByPK(taskCtx, key)
	}, c.onTaskError(key))

	return nil
}

func (c *Cargoes) transition(ctx context.Context, namespace, name string, wantedTransient, terminal v1.ProcessState) error {
	key := name + "." + namespace

	row, err := c.repo.ReadByPK(ctx, key)
	if err != nil {
		return err
	}
	spec, err := c.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return err
	}
	var data v1.CargoSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return errors.Wrap(err, "cannot unmarshal cargo spec")
	}

	if _, changed, err := c.status.SetIntent(ctx, key, wantedTransient, terminal, &v1.Actor{Key: key, Kind: string(v1.KindCargo)}); err != nil {
		return err
	} else if !changed {
		return nil // already in the requested state: 202, no event
	}

	c.scheduleConverge(key, terminal, data.Container, data.Replicas, data.ImagePullPolicy)
	return nil
}

func (c *Cargoes) scheduleConverge(key string, terminal v1.ProcessState, spec v1.ContainerSpec, replicas int, policy v1.ImagePullPolicy) {
	c.tasks.Add(key, func(ctx context.Context) error {
		err := c.conv.Converge(ctx, reconciler.Target{
			Key: key, Kind: v1.KindCargo, NodeName: c.node,
			Spec: spec, Replicas: replicas, ImagePullPolicy: policy, Wanted: terminal,
		})
		if err != nil {
			return err
		}
		_, _, err = c.status.SetActual(ctx, key, terminal, &v1.Actor{Key: key, Kind: string(v1.KindCargo)})
		return err
	}, c.onTaskError(key))
}

func (c *Cargoes) onTaskError(key string) func(string, error) {
	return func(_ string, err error) {
		c.log.Debug("cargo task failed", "key", key, "error", err)
		_, _, _ = c.status.SetActual(context.Background(), key, v1.StateFailed, &v1.Actor{Key: key, Kind: string(v1.KindCargo)})
	}
}

func (c *Cargoes) emit(ctx context.Context, action, key string) {
	if c.events == nil {
		return
	}
	_, _ = c.events.Emit(ctx, v1.EventPartial{Kind: v1.EventNormal, Action: action, Actor: &v1.Actor{Key: key, Kind: string(v1.KindCargo)}})
}
