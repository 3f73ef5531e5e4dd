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

package vmdisk

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/nanocl-dev/nanocl/internal/store"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

type fakeImageRepo struct {
	rows map[string]v1.VMImage
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{rows: map[string]v1.VMImage{}}
}

func (f *fakeImageRepo) CreateFrom(_ context.Context, _ []string, _ []any, row *v1.VMImage) error {
	f.rows[row.Name] = *row
	return nil
}

func (f *fakeImageRepo) ReadByPK(_ context.Context, pk any) (*v1.VMImage, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("vmimage", nil)
	}
	cp := row
	return &cp, nil
}

func (f *fakeImageRepo) DelByPK(_ context.Context, pk any) error {
	delete(f.rows, pk.(string))
	return nil
}

func (f *fakeImageRepo) ReadBy(_ context.Context, _ *v1.GenericFilter) ([]v1.VMImage, error) {
	rows := make([]v1.VMImage, 0, len(f.rows))
	for _, row := range f.rows {
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *fakeImageRepo) UpdatePK(_ context.Context, pk any, columns []string, values []any) (*v1.VMImage, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("vmimage", nil)
	}
	for i, col := range columns {
		if col == "size_bytes" {
			row.SizeBytes = values[i].(int64)
		}
	}
	f.rows[pk.(string)] = row
	cp := row
	return &cp, nil
}

func TestStoreEnsureBaseStagesFileAndRow(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/incoming/ubuntu.img", []byte("disk-bytes"), 0o644); err != nil {
		t.Fatalf("seed source image: %v", err)
	}
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)

	img, err := s.EnsureBase(context.Background(), "ubuntu", "/incoming/ubuntu.img")
	if err != nil {
		t.Fatalf("EnsureBase(...): unexpected error: %v", err)
	}
	if img.Kind != v1.VMImageBase {
		t.Errorf("EnsureBase(...): Kind = %v, want VMImageBase", img.Kind)
	}
	if img.SizeBytes != int64(len("disk-bytes")) {
		t.Errorf("EnsureBase(...): SizeBytes = %d, want %d", img.SizeBytes, len("disk-bytes"))
	}
	if ok, _ := afero.Exists(fs, img.Path); !ok {
		t.Errorf("EnsureBase(...): staged file %s does not exist", img.Path)
	}
}

func TestStoreEnsureBaseIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/incoming/ubuntu.img", []byte("disk-bytes"), 0o644)
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)

	first, err := s.EnsureBase(context.Background(), "ubuntu", "/incoming/ubuntu.img")
	if err != nil {
		t.Fatalf("EnsureBase(...) first call: unexpected error: %v", err)
	}
	second, err := s.EnsureBase(context.Background(), "ubuntu", "/incoming/ubuntu.img")
	if err != nil {
		t.Fatalf("EnsureBase(...) second call: unexpected error: %v", err)
	}
	if first.Path != second.Path || first.CreatedAt != second.CreatedAt {
		t.Error("EnsureBase(...): second call re-staged an already-tracked base image")
	}
}

func TestStoreEnsureSnapshotClonesBaseAndTracksRow(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/incoming/ubuntu.img", []byte("disk-bytes"), 0o644)
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)

	if _, err := s.EnsureBase(context.Background(), "ubuntu", "/incoming/ubuntu.img"); err != nil {
		t.Fatalf("EnsureBase(...): unexpected error: %v", err)
	}

	snap, err := s.EnsureSnapshot(context.Background(), "ubuntu", "vm-1")
	if err != nil {
		t.Fatalf("EnsureSnapshot(...): unexpected error: %v", err)
	}
	if snap.Kind != v1.VMImageSnapshot {
		t.Errorf("EnsureSnapshot(...): Kind = %v, want VMImageSnapshot", snap.Kind)
	}
	if snap.Name != "ubuntu.vm-1" {
		t.Errorf("EnsureSnapshot(...): Name = %q, want %q", snap.Name, "ubuntu.vm-1")
	}
	body, err := afero.ReadFile(fs, snap.Path)
	if err != nil || string(body) != "disk-bytes" {
		t.Errorf("EnsureSnapshot(...): cloned file content = %q, err=%v, want %q", body, err, "disk-bytes")
	}
}

func TestStoreEnsureSnapshotRejectsNonBaseSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/incoming/ubuntu.img", []byte("disk-bytes"), 0o644)
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)

	if _, err := s.EnsureBase(context.Background(), "ubuntu", "/incoming/ubuntu.img"); err != nil {
		t.Fatalf("EnsureBase(...): unexpected error: %v", err)
	}
	if _, err := s.EnsureSnapshot(context.Background(), "ubuntu", "vm-1"); err != nil {
		t.Fatalf("EnsureSnapshot(...) first snapshot: unexpected error: %v", err)
	}

	_, err := s.EnsureSnapshot(context.Background(), "ubuntu.vm-1", "vm-2")
	if err == nil {
		t.Fatal("EnsureSnapshot(...): want error cloning from a Snapshot image")
	}
	if !IsNotBase(err) {
		t.Errorf("IsNotBase(%v) = false, want true", err)
	}
}

func TestStoreEnsureSnapshotIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/incoming/ubuntu.img", []byte("disk-bytes"), 0o644)
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	s.EnsureBase(context.Background(), "ubuntu", "/incoming/ubuntu.img")

	first, err := s.EnsureSnapshot(context.Background(), "ubuntu", "vm-1")
	if err != nil {
		t.Fatalf("EnsureSnapshot(...) first call: unexpected error: %v", err)
	}
	second, err := s.EnsureSnapshot(context.Background(), "ubuntu", "vm-1")
	if err != nil {
		t.Fatalf("EnsureSnapshot(...) second call: unexpected error: %v", err)
	}
	if first.Path != second.Path {
		t.Error("EnsureSnapshot(...): second call re-cloned an already-tracked snapshot")
	}
}

func TestStoreRemoveSnapshotDeletesFileAndRow(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/incoming/ubuntu.img", []byte("disk-bytes"), 0o644)
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	s.EnsureBase(context.Background(), "ubuntu", "/incoming/ubuntu.img")
	snap, err := s.EnsureSnapshot(context.Background(), "ubuntu", "vm-1")
	if err != nil {
		t.Fatalf("EnsureSnapshot(...): unexpected error: %v", err)
	}

	if err := s.RemoveSnapshot(context.Background(), "ubuntu", "vm-1"); err != nil {
		t.Fatalf("RemoveSnapshot(...): unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(fs, snap.Path); ok {
		t.Error("RemoveSnapshot(...): snapshot file still exists")
	}
	if _, err := repo.ReadByPK(context.Background(), "ubuntu.vm-1"); err == nil {
		t.Error("RemoveSnapshot(...): tracking row still present")
	}
}

func TestStoreRemoveSnapshotMissingFileIsNoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)

	if err := s.RemoveSnapshot(context.Background(), "ubuntu", "never-provisioned"); err != nil {
		t.Fatalf("RemoveSnapshot(...): unexpected error removing a snapshot that was never created: %v", err)
	}
}

func TestStoreImportStagesFileAndRow(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)

	img, err := s.Import(context.Background(), "alpine", strings.NewReader("alpine-bytes"))
	if err != nil {
		t.Fatalf("Import(...): unexpected error: %v", err)
	}
	if img.Kind != v1.VMImageBase {
		t.Errorf("Import(...): Kind = %v, want VMImageBase", img.Kind)
	}
	body, err := afero.ReadFile(fs, img.Path)
	if err != nil || string(body) != "alpine-bytes" {
		t.Errorf("Import(...): file content = %q, err=%v, want %q", body, err, "alpine-bytes")
	}
}

func TestStoreImportRejectsExistingName(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	if _, err := s.Import(context.Background(), "alpine", strings.NewReader("v1")); err != nil {
		t.Fatalf("Import(...) first call: unexpected error: %v", err)
	}

	_, err := s.Import(context.Background(), "alpine", strings.NewReader("v2"))
	if !IsAlreadyExists(err) {
		t.Errorf("Import(...): err = %v, want IsAlreadyExists", err)
	}
}

func TestStoreListReturnsAllTrackedImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	s.Import(context.Background(), "alpine", strings.NewReader("a"))
	s.Import(context.Background(), "ubuntu", strings.NewReader("b"))

	rows, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List(...): unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("List(...): got %d rows, want 2", len(rows))
	}
}

func TestStoreInspectReturnsTrackedImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	s.Import(context.Background(), "alpine", strings.NewReader("a"))

	img, err := s.Inspect(context.Background(), "alpine")
	if err != nil {
		t.Fatalf("Inspect(...): unexpected error: %v", err)
	}
	if img.Name != "alpine" {
		t.Errorf("Inspect(...): Name = %q, want alpine", img.Name)
	}
}

func TestStoreCloneCopiesBytesIntoNewBaseImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	s.Import(context.Background(), "alpine", strings.NewReader("disk-bytes"))

	clone, err := s.Clone(context.Background(), "alpine", "alpine-2")
	if err != nil {
		t.Fatalf("Clone(...): unexpected error: %v", err)
	}
	if clone.Kind != v1.VMImageBase {
		t.Errorf("Clone(...): Kind = %v, want VMImageBase", clone.Kind)
	}
	body, err := afero.ReadFile(fs, clone.Path)
	if err != nil || string(body) != "disk-bytes" {
		t.Errorf("Clone(...): file content = %q, err=%v, want %q", body, err, "disk-bytes")
	}
}

func TestStoreCloneRejectsExistingDestinationName(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	s.Import(context.Background(), "alpine", strings.NewReader("a"))
	s.Import(context.Background(), "alpine-2", strings.NewReader("b"))

	_, err := s.Clone(context.Background(), "alpine", "alpine-2")
	if !IsAlreadyExists(err) {
		t.Errorf("Clone(...): err = %v, want IsAlreadyExists", err)
	}
}

func TestStoreResizeGrowsBackingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	img, _ := s.Import(context.Background(), "alpine", strings.NewReader("disk-bytes"))

	resized, err := s.Resize(context.Background(), "alpine", img.SizeBytes+1024)
	if err != nil {
		t.Fatalf("Resize(...): unexpected error: %v", err)
	}
	if resized.SizeBytes != img.SizeBytes+1024 {
		t.Errorf("Resize(...): SizeBytes = %d, want %d", resized.SizeBytes, img.SizeBytes+1024)
	}
	info, err := fs.Stat(img.Path)
	if err != nil || info.Size() != img.SizeBytes+1024 {
		t.Errorf("Resize(...): backing file size = %d, err=%v, want %d", info.Size(), err, img.SizeBytes+1024)
	}
}

func TestStoreResizeRejectsShrink(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	img, _ := s.Import(context.Background(), "alpine", strings.NewReader("disk-bytes"))

	_, err := s.Resize(context.Background(), "alpine", img.SizeBytes-1)
	if !IsShrink(err) {
		t.Errorf("Resize(...): err = %v, want IsShrink", err)
	}
}

func TestStoreDeleteRemovesFileAndRow(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := newFakeImageRepo()
	s := New(fs, "/state/vms/images", repo)
	img, _ := s.Import(context.Background(), "alpine", strings.NewReader("disk-bytes"))

	if err := s.Delete(context.Background(), "alpine"); err != nil {
		t.Fatalf("Delete(...): unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(fs, img.Path); ok {
		t.Error("Delete(...): file still exists")
	}
	if _, err := repo.ReadByPK(context.Background(), "alpine"); err == nil {
		t.Error("Delete(...): tracking row still present")
	}
}
