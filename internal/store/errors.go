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

// Package store implements the typed relational persistence layer: the
// filter DSL, the column registry, and the generic repository pattern used
// by every entity in apis/nanocl/v1.
package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"
)

// Kind is one of the error kinds the core distinguishes, orthogonal to
// transport.
type Kind string

// Supported kinds.
const (
	KindNotFound      Kind = "NotFound"
	KindAlreadyExists Kind = "AlreadyExists"
	KindBadRequest    Kind = "BadRequest"
	KindConflict      Kind = "Conflict"
	KindInternal      Kind = "Internal"
	KindBadGateway    Kind = "BadGateway"
)

// Error wraps an underlying cause with a Kind the API layer maps 1:1 to an
// HTTP status.
type Error struct {
	Kind    Kind
	Entity  string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Kind) + ": " + e.Entity
	}
	return string(e.Kind) + ": " + e.Entity + ": " + e.cause.Error()
}

// Unwrap lets errors.Is/As see through to the cause.
func (e *Error) Unwrap() error { return e.cause }

// NotFound builds a NotFound error for entity.
func NotFound(entity string, cause error) error {
	return &Error{Kind: KindNotFound, Entity: entity, cause: cause}
}

// AlreadyExists builds an AlreadyExists error for entity.
func AlreadyExists(entity string, cause error) error {
	return &Error{Kind: KindAlreadyExists, Entity: entity, cause: cause}
}

// BadRequest builds a BadRequest error for entity.
func BadRequest(entity string, cause error) error {
	return &Error{Kind: KindBadRequest, Entity: entity, cause: cause}
}

// Conflict builds a Conflict error for entity, e.g. patching an immutable
// secret.
func Conflict(entity string, cause error) error {
	return &Error{Kind: KindConflict, Entity: entity, cause: cause}
}

// Internal builds an Internal error for entity.
func Internal(entity string, cause error) error {
	return &Error{Kind: KindInternal, Entity: entity, cause: cause}
}

// KindOf returns the Kind of err, or KindInternal if err isn't a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// WrapDriverErr classifies a raw pgx/pgconn error for entity: unique
// violations become AlreadyExists, pgx.ErrNoRows becomes NotFound, anything
// else becomes Internal. Every other driver error is wrapped with the
// entity name as context
func WrapDriverErr(entity string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return NotFound(entity, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return AlreadyExists(entity, err)
	}

	return Internal(entity, xerrors.Wrapf(err, "store operation on %s failed", entity))
}
