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

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

// Repository is the generic CRUD+filter surface shared by every entity in
// apis/nanocl/v1. One instance is built per entity with its table name,
// primary key column, and ColumnRegistry.
type Repository[T any] struct {
	db       *sqlx.DB
	table    string
	pkColumn string
	registry ColumnRegistry
	entity   string
}

// NewRepository builds a Repository for table, keyed by pkColumn, whose
// filterable columns are described by registry.
func NewRepository[T any](db *sqlx.DB, entity, table, pkColumn string, registry ColumnRegistry) *Repository[T] {
	return &Repository[T]{db: db, table: table, pkColumn: pkColumn, registry: registry, entity: entity}
}

// CreateFrom inserts row, built by the caller from the entity's Partial type,
// and returns the stored row.
func (r *Repository[T]) CreateFrom(ctx context.Context, columns []string, values []any, row *T) error {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		r.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	if err := sqlx.GetContext(ctx, r.db, row, r.db.Rebind(query), values...); err != nil {
		return WrapDriverErr(r.entity, err)
	}
	return nil
}

// ReadByPK fetches a single row by primary key.
func (r *Repository[T]) ReadByPK(ctx context.Context, pk any) (*T, error) {
	var row T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", r.table, r.pkColumn)
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), pk); err != nil {
		return nil, WrapDriverErr(r.entity, err)
	}
	return &row, nil
}

// ReadBy lists rows matching f, applying the entity's column registry.
func (r *Repository[T]) ReadBy(ctx context.Context, f *v1.GenericFilter) ([]T, error) {
	compiled, err := Compile(f, r.registry)
	if err != nil {
		return nil, BadRequest(r.entity, err)
	}

	query := fmt.Sprintf("SELECT * FROM %s", r.table)
	if compiled.Where != "" {
		query += " " + compiled.Where
	}
	if compiled.Tail != "" {
		query += " " + compiled.Tail
	}

	rows := []T{}
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), compiled.Args...); err != nil {
		return nil, WrapDriverErr(r.entity, err)
	}
	return rows, nil
}

// ReadOneBy returns the first row matching f, or a NotFound error.
func (r *Repository[T]) ReadOneBy(ctx context.Context, f *v1.GenericFilter) (*T, error) {
	one := f
	if one == nil {
		one = v1.NewFilter()
	}
	one = one.WithLimit(1)

	rows, err := r.ReadBy(ctx, one)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NotFound(r.entity, nil)
	}
	return &rows[0], nil
}

// CountBy returns the number of rows matching f, ignoring its Order/Limit/Offset.
func (r *Repository[T]) CountBy(ctx context.Context, f *v1.GenericFilter) (int64, error) {
	compiled, err := Compile(f, r.registry)
	if err != nil {
		return 0, BadRequest(r.entity, err)
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)
	if compiled.Where != "" {
		query += " " + compiled.Where
	}

	var count int64
	if err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(query), compiled.Args...); err != nil {
		return 0, WrapDriverErr(r.entity, err)
	}
	return count, nil
}

// UpdatePK sets the given columns on the row identified by pk and returns
// the updated row.
func (r *Repository[T]) UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*T, error) {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d RETURNING *",
		r.table, strings.Join(sets, ", "), r.pkColumn, len(columns)+1,
	)

	args := append(append([]any{}, values...), pk)

	var row T
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), args...); err != nil {
		return nil, WrapDriverErr(r.entity, err)
	}
	return &row, nil
}

// DelByPK deletes the row identified by pk.
func (r *Repository[T]) DelByPK(ctx context.Context, pk any) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.table, r.pkColumn)
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), pk)
	if err != nil {
		return WrapDriverErr(r.entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Internal(r.entity, err)
	}
	if n == 0 {
		return NotFound(r.entity, nil)
	}
	return nil
}

// DelBy deletes every row matching f and returns the number of rows removed.
func (r *Repository[T]) DelBy(ctx context.Context, f *v1.GenericFilter) (int64, error) {
	compiled, err := Compile(f, r.registry)
	if err != nil {
		return 0, BadRequest(r.entity, err)
	}

	query := fmt.Sprintf("DELETE FROM %s", r.table)
	if compiled.Where != "" {
		query += " " + compiled.Where
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), compiled.Args...)
	if err != nil {
		return 0, WrapDriverErr(r.entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, Internal(r.entity, err)
	}
	return n, nil
}
