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
	"embed"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/nanocl-dev/nanocl/pkg/backoff"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ConnectOptions configures Open.
type ConnectOptions struct {
	DSN string
	// ConnectTimeout bounds the retry-until-up loop run before giving up.
	// Zero means retry forever, which is what nanocld does on boot: the
	// daemon waits for postgres rather than crash-looping.
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
}

// Open connects to postgres, retrying at a fixed interval until the server
// accepts connections, then runs every pending goose migration before
// returning. It is the only place a *sqlx.DB is constructed.
func Open(ctx context.Context, opts ConnectOptions, log logging.Logger) (*sqlx.DB, error) {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 2 * time.Second
	}

	connectCtx := ctx
	var cancel context.CancelFunc
	if opts.ConnectTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	var db *sqlx.DB
	err := backoff.Retry(connectCtx, opts.RetryInterval, 0, func() error {
		conn, err := sqlx.Open("pgx", opts.DSN)
		if err != nil {
			return err
		}
		if err := conn.PingContext(connectCtx); err != nil {
			_ = conn.Close()
			log.Debug("waiting for database", "error", err)
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "cannot connect to database")
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(err, "cannot run migrations")
	}

	log.Info("database ready")
	return db, nil
}

func migrate(db *sqlx.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db.DB, "migrations")
}
