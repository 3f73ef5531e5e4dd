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
	"testing"

	"github.com/spf13/afero"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
	"github.com/nanocl-dev/nanocl/internal/vmdisk"
)

type fakeVMRepo struct {
	rows map[string]v1.VM
}

func newFakeVMRepo() *fakeVMRepo {
	return &fakeVMRepo{rows: map[string]v1.VM{}}
}

func (f *fakeVMRepo) CreateFrom(_ context.Context, _ []string, _ []any, row *v1.VM) error {
	f.rows[row.Key] = *row
	return nil
}

func (f *fakeVMRepo) ReadByPK(_ context.Context, pk any) (*v1.VM, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("vm", nil)
	}
	cp := row
	return &cp, nil
}

func (f *fakeVMRepo) ReadBy(_ context.Context, _ *v1.GenericFilter) ([]v1.VM, error) {
	var out []v1.VM
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeVMRepo) UpdatePK(_ context.Context, pk any, columns []string, values []any) (*v1.VM, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("vm", nil)
	}
	for i, c := range columns {
		if c == "spec_key" {
			row.SpecKey = values[i].(string)
		}
	}
	f.rows[pk.(string)] = row
	cp := row
	return &cp, nil
}

func (f *fakeVMRepo) DelByPK(_ context.Context, pk any) error {
	delete(f.rows, pk.(string))
	return nil
}

type fakeVMImageRepo struct {
	rows map[string]v1.VMImage
}

func newFakeVMImageRepo() *fakeVMImageRepo {
	return &fakeVMImageRepo{rows: map[string]v1.VMImage{}}
}

func (f *fakeVMImageRepo) CreateFrom(_ context.Context, _ []string, _ []any, row *v1.VMImage) error {
	f.rows[row.Name] = *row
	return nil
}

func (f *fakeVMImageRepo) ReadByPK(_ context.Context, pk any) (*v1.VMImage, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("vmimage", nil)
	}
	cp := row
	return &cp, nil
}

func (f *fakeVMImageRepo) ReadBy(_ context.Context, _ *v1.GenericFilter) ([]v1.VMImage, error) {
	out := make([]v1.VMImage, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeVMImageRepo) UpdatePK(_ context.Context, pk any, _ []string, _ []any) (*v1.VMImage, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("vmimage", nil)
	}
	return &row, nil
}

func (f *fakeVMImageRepo) DelByPK(_ context.Context, pk any) error {
	delete(f.rows, pk.(string))
	return nil
}

// newVMsForTest wires a VMs orchestrator over an in-memory disk store with
// one registered Base image named "ubuntu", so Create/Delete can provision
// and tear down real (memfs-backed) snapshot files.
func newVMsForTest(t *testing.T) (*VMs, *fakeVMRepo, *fakeTaskScheduler, *fakeConverger, *vmdisk.Store) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/base/ubuntu.img", []byte("fake-qcow2-bytes"), 0o644); err != nil {
		t.Fatalf("seed base image file: %v", err)
	}
	images := newFakeVMImageRepo()
	disks := vmdisk.New(fs, "/vms/images", images)
	if _, err := disks.EnsureBase(context.Background(), "ubuntu", "/base/ubuntu.img"); err != nil {
		t.Fatalf("EnsureBase(...): unexpected error: %v", err)
	}

	repo := newFakeVMRepo()
	status := newFakeStatusManager()
	tasks := &fakeTaskScheduler{}
	conv := &fakeConverger{}
	notifier := &fakeNotifier{}
	vms := NewVMs(repo, &fakeSpecRepo{}, &fakeProcessRepo{}, status, tasks, conv, disks, notifier, "node-a", nil)
	return vms, repo, tasks, conv, disks
}

func TestVMsCreateRejectsEmptyName(t *testing.T) {
	vms, _, _, _, _ := newVMsForTest(t)
	_, err := vms.Create(context.Background(), "global", v1.VMSpecData{})
	if err == nil {
		t.Fatal("Create(...): want error for empty name")
	}
	if store.KindOf(err) != store.KindBadRequest {
		t.Errorf("Create(...): kind = %v, want BadRequest", store.KindOf(err))
	}
}

func TestVMsCreateRejectsNonBaseImage(t *testing.T) {
	vms, _, _, _, _ := newVMsForTest(t)
	_, err := vms.Create(context.Background(), "global", v1.VMSpecData{Name: "builder", Image: "does-not-exist"})
	if err == nil {
		t.Fatal("Create(...): want error for an unknown/non-base image")
	}
}

func TestVMsCreateProvisionsSnapshotAndRow(t *testing.T) {
	vms, repo, _, _, _ := newVMsForTest(t)
	vm, err := vms.Create(context.Background(), "global", v1.VMSpecData{Name: "builder", Image: "ubuntu"})
	if err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}
	if vm.Key != "builder.global" {
		t.Errorf("Create(...): Key = %q, want builder.global", vm.Key)
	}
	if _, ok := repo.rows["builder.global"]; !ok {
		t.Error("Create(...): vm row not persisted")
	}

	inspect, err := vms.Inspect(context.Background(), "global", "builder")
	if err != nil {
		t.Fatalf("Inspect(...): unexpected error: %v", err)
	}
	if inspect.DiskPath == "" {
		t.Error("Inspect(...): DiskPath is empty, want provisioned snapshot path")
	}
}

func TestVMsDeleteRemovesSnapshotAndRow(t *testing.T) {
	vms, repo, _, conv, disks := newVMsForTest(t)
	ctx := context.Background()
	if _, err := vms.Create(ctx, "global", v1.VMSpecData{Name: "builder", Image: "ubuntu"}); err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}

	if err := vms.Delete(ctx, "global", "builder"); err != nil {
		t.Fatalf("Delete(...): unexpected error: %v", err)
	}
	if len(conv.converged) != 1 || conv.converged[0].Wanted != v1.StateDelete {
		t.Fatalf("Delete(...): converged = %+v, want one Target wanting delete", conv.converged)
	}
	if _, ok := repo.rows["builder.global"]; ok {
		t.Error("Delete(...): vm row still present after delete task ran")
	}
	if _, err := disks.Inspect(ctx, "ubuntu.builder.global"); err == nil {
		t.Error("Delete(...): snapshot still tracked after delete task ran")
	}
	if _, err := disks.EnsureSnapshot(ctx, "ubuntu", "builder.global"); err != nil {
		t.Fatalf("EnsureSnapshot(...) after delete: unexpected error re-provisioning: %v", err)
	}
}
