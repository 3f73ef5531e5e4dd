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
	"github.com/nanocl-dev/nanocl/internal/reconciler"
	"github.com/nanocl-dev/nanocl/internal/store"
	"github.com/nanocl-dev/nanocl/internal/vmdisk"
)

// VMRepository is the subset of store.Repository[v1.VM] the VMs orchestrator
// needs.
type VMRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.VM) error
	ReadByPK(ctx context.Context, pk any) (*v1.VM, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.VM, error)
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.VM, error)
	DelByPK(ctx context.Context, pk any) error
}

// VMs orchestrates QEMU-in-container workloads: like Cargoes, but Create
// synchronously provisions the disk snapshot and writes the spec, status
// and VM rows before returning, without starting it.
type VMs struct {
	repo   VMRepository
	specs  SpecRepository
	procs  ProcessRepository
	status StatusManager
	tasks  TaskScheduler
	conv   Converger
	disks  *vmdisk.Store
	events Notifier
	node   string
	log    logging.Logger
}

// NewVMs builds a VMs orchestrator.
func NewVMs(repo VMRepository, specs SpecRepository, procs ProcessRepository, status StatusManager, tasks TaskScheduler, conv Converger, disks *vmdisk.Store, events Notifier, node string, log logging.Logger) *VMs {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &VMs{repo: repo, specs: specs, procs: procs, status: status, tasks: tasks, conv: conv, disks: disks, events: events, node: node, log: log}
}

// Create provisions a VM's disk snapshot synchronously, then writes the
// spec+status rows. It does not start the VM.
func (v *VMs) Create(ctx context.Context, namespace string, p v1.VMSpecData) (*v1.VM, error) {
	if p.Name == "" {
		return nil, store.BadRequest("vm", errors.New("name is required"))
	}
	key := p.Name + "." + namespace

	if _, err := v.disks.EnsureSnapshot(ctx, p.Image, key); err != nil {
		if vmdisk.IsNotBase(err) {
			return nil, store.BadRequest("vm", err)
		}
		return nil, errors.Wrapf(err, "cannot provision disk for vm %s", key)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal vm spec")
	}
	spec := v1.Spec{Key: uuid.NewString(), KindName: "Vm", KindKey: key, Version: "1", Data: data, CreatedAt: time.Now()}
	specColumns := []string{"key", "kind_name", "kind_key", "version", "data", "created_at"}
	specValues := []any{spec.Key, spec.KindName, spec.KindKey, spec.Version, []byte(spec.Data), spec.CreatedAt}
	if err := v.specs.CreateFrom(ctx, specColumns, specValues, &spec); err != nil {
		return nil, errors.Wrapf(err, "cannot write spec for vm %s", key)
	}

	if _, err := v.status.Create(ctx, key, v1.StateCreated); err != nil {
		return nil, errors.Wrapf(err, "cannot create status for vm %s", key)
	}

	now := time.Now()
	row := v1.VM{Key: key, Name: p.Name, NamespaceName: namespace, SpecKey: spec.Key, StatusKey: key, CreatedAt: now}
	columns := []string{"key", "name", "namespace_name", "spec_key", "status_key", "created_at"}
	values := []any{row.Key, row.Name, row.NamespaceName, row.SpecKey, row.StatusKey, row.CreatedAt}
	if err := v.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}

	v.emit(ctx, v1.ActionCreate, key)
	return &row, nil
}

// Inspect joins a VM with its spec, status, disk path and live process.
func (v *VMs) Inspect(ctx context.Context, namespace, name string) (*v1.VMInspect, error) {
	key := name + "." + namespace

	row, err := v.repo.ReadByPK(ctx, key)
	if err != nil {
		return nil, err
	}

	spec, err := v.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return nil, err
	}
	var data v1.VMSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal vm spec")
	}

	status, err := v.status.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	procs, err := v.procs.ReadBy(ctx, v1.NewFilter().Eq("kind_key", key))
	if err != nil {
		return nil, err
	}

	image, err := v.disks.EnsureSnapshot(ctx, data.Image, key)
	diskPath := ""
	if err == nil {
		diskPath = image.Path
	}

	return &v1.VMInspect{VM: *row, Spec: data, Status: *status, DiskPath: diskPath, Processes: procs}, nil
}

// Update writes a new spec version, repoints spec_key at it, and schedules
// a converge of the VM's container to running whatever its current state
// (mirrors Cargoes.Update; the disk
// snapshot itself is not touched, changing Image requires delete+recreate).
func (v *VMs) Update(ctx context.Context, namespace, name string, p v1.VMSpecData) (*v1.VM, error) {
	key := name + "." + namespace

	if _, err := v.repo.ReadByPK(ctx, key); err != nil {
		return nil, err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal vm spec")
	}
	spec := v1.Spec{Key: uuid.NewString(), KindName: "Vm", KindKey: key, Version: "1", Data: data, CreatedAt: time.Now()}
	specColumns := []string{"key", "kind_name", "kind_key", "version", "data", "created_at"}
	specValues := []any{spec.Key, spec.KindName, spec.KindKey, spec.Version, []byte(spec.Data), spec.CreatedAt}
	if err := v.specs.CreateFrom(ctx, specColumns, specValues, &spec); err != nil {
		return nil, errors.Wrapf(err, "cannot write spec for vm %s", key)
	}

	updated, err := v.repo.UpdatePK(ctx, key, []string{"spec_key"}, []any{spec.Key})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot update spec_key for vm %s", key)
	}

	if _, _, err := v.status.SetActual(ctx, key, v1.StatePatching, &v1.Actor{Key: key, Kind: string(v1.KindVM)}); err != nil {
		return nil, err
	}
	containerSpec := v1.ContainerSpec{Image: p.Image, Privileged: p.KVM}
	v.tasks.Add(key, func(taskCtx context.Context) error {
		err := v.conv.Converge(taskCtx, reconciler.Target{
			Key: key, Kind: v1.KindVM, NodeName: v.node,
			Spec: containerSpec, Replicas: 1, ImagePullPolicy: v1.PullIfNotPresent, Wanted: v1.StateRunning,
		})
		if err != nil {
			return err
		}
		_, _, err = v.status.SetActual(taskCtx, key, v1.StateRunning, &v1.Actor{Key: key, Kind: string(v1.KindVM)})
		return err
	}, v.onTaskError(key))

	// The rollout's own Patching->Running transition already emits
	// Updating then the terminal action once convergence completes;
	// firing ActionUpdate here too, before the task even runs, would
	// double-announce the same update.
	return updated, nil
}

// History returns every spec version ever written for this VM, newest
// first.
func (v *VMs) History(ctx context.Context, namespace, name string) ([]v1.Spec, error) {
	key := name + "." + namespace
	if _, err := v.repo.ReadByPK(ctx, key); err != nil {
		return nil, err
	}
	return v.specs.ReadBy(ctx, v1.NewFilter().Eq("kind_key", key).WithOrder("created_at", v1.Desc))
}

// Start brings the VM's single container up, running the runtime image
// against its provisioned snapshot disk.
func (v *VMs) Start(ctx context.Context, namespace, name string) error {
	return v.transition(ctx, namespace, name, v1.StateStarting, v1.StateRunning)
}

// Stop stops the VM's container without removing its disk snapshot.
func (v *VMs) Stop(ctx context.Context, namespace, name string) error {
	return v.transition(ctx, namespace, name, v1.StateStopped, v1.StateStopped)
}

// List returns VMs matching f.
func (v *VMs) List(ctx context.Context, f *v1.GenericFilter) ([]v1.VM, error) {
	if f == nil {
		f = v1.NewFilter()
	}
	return v.repo.ReadBy(ctx, f)
}

// Delete tears down the VM's container, removes its disk snapshot, and
// deletes its store rows.
func (v *VMs) Delete(ctx context.Context, namespace, name string) error {
	key := name + "." + namespace

	row, err := v.repo.ReadByPK(ctx, key)
	if err != nil {
		return err
	}
	spec, err := v.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return err
	}
	var data v1.VMSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return errors.Wrap(err, "cannot unmarshal vm spec")
	}

	if _, _, err := v.status.SetWanted(ctx, key, v1.StateDelete, &v1.Actor{Key: key, Kind: string(v1.KindVM)}); err != nil {
		return err
	}

	v.tasks.Add(key, func(taskCtx context.Context) error {
		if err := v.conv.Converge(taskCtx, reconciler.Target{Key: key, Kind: v1.KindVM, NodeName: v.node, Wanted: v1.StateDelete}); err != nil {
			return err
		}
		if err := v.disks.RemoveSnapshot(taskCtx, data.Image, key); err != nil {
			return err
		}
		if err := v.status.Delete(taskCtx, key); err != nil {
			return err
		}
		return v.repo.DelByPK(taskCtx, key)
	}, v.onTaskError(key))

	return nil
}

func (v *VMs) transition(ctx context.Context, namespace, name string, wantedTransient, terminal v1.ProcessState) error {
	key := name + "." + namespace

	row, err := v.repo.ReadByPK(ctx, key)
	if err != nil {
		return err
	}
	spec, err := v.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return err
	}
	var data v1.VMSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return errors.Wrap(err, "cannot unmarshal vm spec")
	}

	if _, changed, err := v.status.SetIntent(ctx, key, wantedTransient, terminal, &v1.Actor{Key: key, Kind: string(v1.KindVM)}); err != nil {
		return err
	} else if !changed {
		return nil
	}

	containerSpec := v1.ContainerSpec{Image: data.Image, Privileged: data.KVM}
	v.tasks.Add(key, func(taskCtx context.Context) error {
		err := v.conv.Converge(taskCtx, reconciler.Target{
			Key: key, Kind: v1.KindVM, NodeName: v.node,
			Spec: containerSpec, Replicas: 1, ImagePullPolicy: v1.PullIfNotPresent, Wanted: terminal,
		})
		if err != nil {
			return err
		}
		_, _, err = v.status.SetActual(taskCtx, key, terminal, &v1.Actor{Key: key, Kind: string(v1.KindVM)})
		return err
	}, v.onTaskError(key))

	return nil
}

func (v *VMs) onTaskError(key string) func(string, error) {
	return func(_ string, err error) {
		v.log.Debug("vm task failed", "key", key, "error", err)
		_, _, _ = v.status.SetActual(context.Background(), key, v1.StateFailed, &v1.Actor{Key: key, Kind: string(v1.KindVM)})
	}
}

func (v *VMs) emit(ctx context.Context, action, key string) {
	if v.events == nil {
		return
	}
	_, _ = v.events.Emit(ctx, v1.EventPartial{Kind: v1.EventNormal, Action: action, Actor: &v1.Actor{Key: key, Kind: string(v1.KindVM)}})
}
