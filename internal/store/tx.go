// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Tx is the executor bound to one open transaction.
type Tx struct {
	tx      *sqlx.Tx
	dialect Dialect
	logger  *slog.Logger
}

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return runExec(ctx, t.logger, t.tx, query, args)
}

// Get scans a single row inside the transaction.
func (t *Tx) Get(ctx context.Context, dest any, query string, args ...any) error {
	return runGet(ctx, t.logger, t.tx, dest, query, args)
}

// Select scans all rows inside the transaction.
func (t *Tx) Select(ctx context.Context, dest any, query string, args ...any) error {
	return runSelect(ctx, t.logger, t.tx, dest, query, args)
}

// Dialect returns the SQL dialect of the transaction.
func (t *Tx) Dialect() Dialect {
	return t.dialect
}

// WithTx runs fn inside a transaction on a single dedicated connection.
// The transaction commits when fn returns nil and rolls back when fn
// returns an error or panics. A rollback failure is logged and never
// replaces the original error. The connection is always released.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, ex Executor) error) (err error) {
	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer d.release(conn)

	sqlTx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			d.logger.Error("rollback failed", "error", rbErr, "cause", err)
		}
	}()

	if err = fn(ctx, &Tx{tx: sqlTx, dialect: d.dialect, logger: d.logger}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		done = true
		return fmt.Errorf("committing transaction: %w", err)
	}
	done = true
	return nil
}

// InTx is WithTx for callbacks that produce a value.
func InTx[T any](ctx context.Context, d *DB, fn func(ctx context.Context, ex Executor) (T, error)) (T, error) {
	var out T
	err := d.WithTx(ctx, func(ctx context.Context, ex Executor) error {
		v, err := fn(ctx, ex)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
