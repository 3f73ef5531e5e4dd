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
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// SecretRepository is the subset of store.Repository[v1.Secret] Secrets
// needs.
type SecretRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Secret) error
	ReadByPK(ctx context.Context, pk any) (*v1.Secret, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Secret, error)
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.Secret, error)
	DelByPK(ctx context.Context, pk any) error
}

// Secrets orchestrates opaque key material: create, inspect, patch
// (blocked for immutable secrets, returning Conflict), and delete.
type Secrets struct {
	repo   SecretRepository
	events Notifier
	log    logging.Logger
}

// NewSecrets builds a Secrets orchestrator.
func NewSecrets(repo SecretRepository, events Notifier, log logging.Logger) *Secrets {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Secrets{repo: repo, events: events, log: log}
}

// Create inserts a secret row.
func (s *Secrets) Create(ctx context.Context, p v1.SecretPartial) (*v1.Secret, error) {
	if p.Key == "" {
		return nil, store.BadRequest("secret", errors.New("key is required"))
	}
	now := time.Now()
	row := v1.Secret{Key: p.Key, Kind: p.Kind, Immutable: p.Immutable, Data: p.Data, Metadata: p.Metadata, CreatedAt: now, UpdatedAt: now}
	columns := []string{"key", "kind", "immutable", "data", "metadata", "created_at", "updated_at"}
	values := []any{row.Key, row.Kind, row.Immutable, []byte(row.Data), row.Metadata, row.CreatedAt, row.UpdatedAt}
	if err := s.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}
	s.emit(ctx, v1.ActionCreate, p.Key)
	return &row, nil
}

// Inspect returns the secret row.
func (s *Secrets) Inspect(ctx context.Context, key string) (*v1.Secret, error) {
	return s.repo.ReadByPK(ctx, key)
}

// Update patches a mutable secret's data/metadata. Patching an immutable
// secret returns a Conflict error.
func (s *Secrets) Update(ctx context.Context, key string, p v1.SecretUpdate) (*v1.Secret, error) {
	current, err := s.repo.ReadByPK(ctx, key)
	if err != nil {
		return nil, err
	}
	if current.Immutable {
		return nil, store.Conflict("secret", errors.New("secret is immutable"))
	}

	columns := []string{"updated_at"}
	values := []any{time.Now()}
	if p.Data != nil {
		columns = append(columns, "data")
		values = append(values, []byte(p.Data))
	}
	if p.Metadata != nil {
		columns = append(columns, "metadata")
		values = append(values, p.Metadata)
	}

	updated, err := s.repo.UpdatePK(ctx, key, columns, values)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, v1.ActionUpdate, key)
	return updated, nil
}

// List returns secrets matching f.
func (s *Secrets) List(ctx context.Context, f *v1.GenericFilter) ([]v1.Secret, error) {
	if f == nil {
		f = v1.NewFilter()
	}
	return s.repo.ReadBy(ctx, f)
}

// Delete removes a secret row.
func (s *Secrets) Delete(ctx context.Context, key string) error {
	if err := s.repo.DelByPK(ctx, key); err != nil {
		return err
	}
	s.emit(ctx, v1.ActionDestroy, key)
	return nil
}

func (s *Secrets) emit(ctx context.Context, action, key string) {
	if s.events == nil {
		return
	}
	_, _ = s.events.Emit(ctx, v1.EventPartial{Kind: v1.EventNormal, Action: action, Actor: &v1.Actor{Key: key, Kind: "secret"}})
}
