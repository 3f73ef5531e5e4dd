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

// Package vmdisk manages the base and per-VM snapshot disk images tracked
// under {state_dir}/vms/images, the way internal/xpkg's package cache uses
// afero.Fs as an OS-filesystem abstraction rather than talking to os
// directly. qemu-img invocations (actual disk format conversion) are a
// Non-goal; Store only clones bytes and tracks the resulting path.
package vmdisk

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

// Repository is the subset of store.Repository[v1.VMImage] Store needs.
type Repository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.VMImage) error
	ReadByPK(ctx context.Context, pk any) (*v1.VMImage, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.VMImage, error)
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.VMImage, error)
	DelByPK(ctx context.Context, pk any) error
}

// Store manages disk images on fs, rooted at dir (normally
// {state_dir}/vms/images).
type Store struct {
	fs   afero.Fs
	dir  string
	repo Repository
}

// New builds a Store. Pass afero.NewOsFs() in production and
// afero.NewMemMapFs() in tests.
func New(fs afero.Fs, dir string, repo Repository) *Store {
	return &Store{fs: fs, dir: dir, repo: repo}
}

// path returns the on-disk path for a named image.
func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".img")
}

// EnsureBase registers a base image already present at src (a path or URL
// the caller has already materialized onto fs) under name, if not already
// tracked.
func (s *Store) EnsureBase(ctx context.Context, name, src string) (*v1.VMImage, error) {
	if existing, err := s.repo.ReadByPK(ctx, name); err == nil {
		return existing, nil
	}

	if err := s.fs.MkdirAll(s.dir, 0o750); err != nil {
		return nil, xerrors.Wrapf(err, "cannot create image directory %s", s.dir)
	}

	dst := s.path(name)
	size, err := s.copyFile(src, dst)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot stage base image %s", name)
	}

	img := v1.VMImage{Name: name, Kind: v1.VMImageBase, Path: dst, SizeBytes: size, CreatedAt: time.Now()}
	columns := []string{"name", "kind", "path", "size_bytes", "created_at"}
	values := []any{img.Name, img.Kind, img.Path, img.SizeBytes, img.CreatedAt}
	if err := s.repo.CreateFrom(ctx, columns, values, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// EnsureSnapshot clones baseName's disk into a per-VM snapshot named
// "{baseName}.{vmKey}" if one doesn't already exist, returning its path.
// baseName must refer to a VMImageBase image; cloning against a Snapshot
// fails with a BadRequest-classed error so orchestrator/vm.go can surface
// it as one.
func (s *Store) EnsureSnapshot(ctx context.Context, baseName, vmKey string) (*v1.VMImage, error) {
	base, err := s.repo.ReadByPK(ctx, baseName)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot find base image %s", baseName)
	}
	if base.Kind != v1.VMImageBase {
		return nil, errNotBase{name: baseName}
	}

	snapName := baseName + "." + vmKey
	if existing, err := s.repo.ReadByPK(ctx, snapName); err == nil {
		return existing, nil
	}

	dst := s.path(snapName)
	size, err := s.copyFile(base.Path, dst)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot clone snapshot %s", snapName)
	}

	snap := v1.VMImage{Name: snapName, Kind: v1.VMImageSnapshot, Path: dst, SizeBytes: size, CreatedAt: time.Now()}
	columns := []string{"name", "kind", "path", "size_bytes", "created_at"}
	values := []any{snap.Name, snap.Kind, snap.Path, snap.SizeBytes, snap.CreatedAt}
	if err := s.repo.CreateFrom(ctx, columns, values, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RemoveSnapshot deletes a VM's snapshot disk and its tracking row. Removing
// an already-absent snapshot file is a no-op: the tracking row is the
// source of truth.
func (s *Store) RemoveSnapshot(ctx context.Context, baseName, vmKey string) error {
	snapName := baseName + "." + vmKey
	_ = s.fs.Remove(s.path(snapName))
	return s.repo.DelByPK(ctx, snapName)
}

// Import stages a new Base image from r's bytes under name — the
// POST /vms/images/{name}/import handler's upload target. It fails if name
// is already tracked, matching the original nanocld's own import semantics
// (a name conflict must be deleted before it can be reimported).
func (s *Store) Import(ctx context.Context, name string, r io.Reader) (*v1.VMImage, error) {
	if _, err := s.repo.ReadByPK(ctx, name); err == nil {
		return nil, errAlreadyExists{name: name}
	}

	if err := s.fs.MkdirAll(s.dir, 0o750); err != nil {
		return nil, xerrors.Wrapf(err, "cannot create image directory %s", s.dir)
	}

	dst := s.path(name)
	out, err := s.fs.Create(dst)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot create vm image %s", name)
	}
	size, err := io.Copy(out, r)
	closeErr := out.Close()
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot import vm image %s", name)
	}
	if closeErr != nil {
		return nil, xerrors.Wrapf(closeErr, "cannot import vm image %s", name)
	}

	img := v1.VMImage{Name: name, Kind: v1.VMImageBase, Path: dst, SizeBytes: size, CreatedAt: time.Now()}
	columns := []string{"name", "kind", "path", "size_bytes", "created_at"}
	values := []any{img.Name, img.Kind, img.Path, img.SizeBytes, img.CreatedAt}
	if err := s.repo.CreateFrom(ctx, columns, values, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// List returns every tracked image (base and snapshot), for GET /vms/images.
func (s *Store) List(ctx context.Context) ([]v1.VMImage, error) {
	return s.repo.ReadBy(ctx, v1.NewFilter())
}

// Inspect returns one tracked image by name, for GET /vms/images/{name}/inspect.
func (s *Store) Inspect(ctx context.Context, name string) (*v1.VMImage, error) {
	return s.repo.ReadByPK(ctx, name)
}

// Clone copies srcName's disk bytes into a new Base image named dstName —
// POST /vms/images/{name}/clone. Unlike EnsureSnapshot, a clone is itself a
// new independent Base image, not a per-VM snapshot: it can go on to back
// its own VMs and be cloned again.
func (s *Store) Clone(ctx context.Context, srcName, dstName string) (*v1.VMImage, error) {
	src, err := s.repo.ReadByPK(ctx, srcName)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot find image %s", srcName)
	}
	if _, err := s.repo.ReadByPK(ctx, dstName); err == nil {
		return nil, errAlreadyExists{name: dstName}
	}

	dst := s.path(dstName)
	size, err := s.copyFile(src.Path, dst)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot clone image %s to %s", srcName, dstName)
	}

	img := v1.VMImage{Name: dstName, Kind: v1.VMImageBase, Path: dst, SizeBytes: size, CreatedAt: time.Now()}
	columns := []string{"name", "kind", "path", "size_bytes", "created_at"}
	values := []any{img.Name, img.Kind, img.Path, img.SizeBytes, img.CreatedAt}
	if err := s.repo.CreateFrom(ctx, columns, values, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Resize updates name's tracked size. Actually growing/shrinking the disk's
// own filesystem is a qemu-img resize invocation, an explicit Non-goal; this
// only extends the backing file to sizeBytes (so capacity is genuinely
// available on disk) and updates the tracking row, leaving any filesystem
// resize inside the image to a separate, out-of-scope step.
func (s *Store) Resize(ctx context.Context, name string, sizeBytes int64) (*v1.VMImage, error) {
	img, err := s.repo.ReadByPK(ctx, name)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot find image %s", name)
	}
	if sizeBytes < img.SizeBytes {
		return nil, errShrink{name: name}
	}

	f, err := s.fs.OpenFile(img.Path, os.O_RDWR, 0o640)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cannot open image %s", name)
	}
	truncErr := f.Truncate(sizeBytes)
	closeErr := f.Close()
	if truncErr != nil {
		return nil, xerrors.Wrapf(truncErr, "cannot resize image %s", name)
	}
	if closeErr != nil {
		return nil, xerrors.Wrapf(closeErr, "cannot resize image %s", name)
	}

	return s.repo.UpdatePK(ctx, name, []string{"size_bytes"}, []any{sizeBytes})
}

// Delete removes a tracked image's file and row, for DELETE /vms/images/{name}.
func (s *Store) Delete(ctx context.Context, name string) error {
	img, err := s.repo.ReadByPK(ctx, name)
	if err != nil {
		return err
	}
	_ = s.fs.Remove(img.Path)
	return s.repo.DelByPK(ctx, name)
}

func (s *Store) copyFile(src, dst string) (int64, error) {
	in, err := s.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := s.fs.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, in)
}

// errNotBase classifies as BadRequest-worthy: store.BadRequest wraps it at
// the orchestrator layer, which is the only layer that knows the entity name
// to attach.
type errNotBase struct{ name string }

func (e errNotBase) Error() string { return "image " + e.name + " is not a Base image" }

// IsNotBase reports whether err is the "image is not a Base image" error
// EnsureSnapshot returns, so callers can classify it as a BadRequest.
func IsNotBase(err error) bool {
	_, ok := err.(errNotBase)
	return ok
}

// errAlreadyExists classifies as AlreadyExists-worthy.
type errAlreadyExists struct{ name string }

func (e errAlreadyExists) Error() string { return "vm image " + e.name + " already exists" }

// IsAlreadyExists reports whether err is the "name already tracked" error
// Import/Clone return.
func IsAlreadyExists(err error) bool {
	_, ok := err.(errAlreadyExists)
	return ok
}

// errShrink classifies as BadRequest-worthy: shrinking a disk image risks
// truncating data still in use, so Resize only ever grows.
type errShrink struct{ name string }

func (e errShrink) Error() string {
	return "vm image " + e.name + " cannot be resized smaller than its current size"
}

// IsShrink reports whether err is the "cannot shrink" error Resize returns.
func IsShrink(err error) bool {
	_, ok := err.(errShrink)
	return ok
}
