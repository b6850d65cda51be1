// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/servimel/servimel-go/internal/apperr"
)

// Executor runs parameterized statements. *DB runs each call on its own
// pooled connection; the executor passed to a WithTx callback runs every
// call inside that transaction.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Get(ctx context.Context, dest any, query string, args ...any) error
	Select(ctx context.Context, dest any, query string, args ...any) error
	Dialect() Dialect
}

// ParamMismatchError is returned when the number of positional
// placeholders differs from the number of supplied arguments.
type ParamMismatchError struct {
	Expected int
	Got      int
}

func (e *ParamMismatchError) Error() string {
	return fmt.Sprintf("%s expected=%d got=%d", apperr.CodePlaceholderMismatch, e.Expected, e.Got)
}

// AppError classifies the mismatch for HTTP responses.
func (e *ParamMismatchError) AppError() *apperr.Error {
	return apperr.Wrap(e, apperr.CodePlaceholderMismatch, "Database parameter mismatch", http.StatusInternalServerError).
		WithDetails(map[string]int{"expected": e.Expected, "got": e.Got})
}

// queryRunner is satisfied by both *sqlx.Conn and *sqlx.Tx.
type queryRunner interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// CountPlaceholders counts positional "?" markers outside of quoted
// literals, quoted identifiers and comments.
func CountPlaceholders(query string) int {
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		if quote != 0 {
			if c == '\\' && quote != '`' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case c == '#':
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			i += 2
			for i+1 < len(query) && !(query[i] == '*' && query[i+1] == '/') {
				i++
			}
			i++
		case c == '?':
			n++
		}
	}
	return n
}

// NormalizeArgs maps absent values (nil interfaces and typed nil
// pointers, maps or slices) to an untyped nil so they bind as SQL NULL.
// Other pointers are dereferenced unless they implement driver.Valuer.
func NormalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if a == nil {
			continue
		}
		v := reflect.ValueOf(a)
		switch v.Kind() {
		case reflect.Pointer:
			if v.IsNil() {
				continue
			}
			if _, ok := a.(driver.Valuer); !ok {
				a = v.Elem().Interface()
			}
		case reflect.Map, reflect.Interface:
			if v.IsNil() {
				continue
			}
		case reflect.Slice:
			// []byte is a value; a nil []byte is still NULL.
			if v.IsNil() {
				continue
			}
		}
		out[i] = a
	}
	return out
}

func paramTypes(args []any) []string {
	types := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			types[i] = "null"
			continue
		}
		types[i] = fmt.Sprintf("%T", a)
	}
	return types
}

// prepare validates and normalizes a statement before it reaches the driver.
func prepare(logger *slog.Logger, query string, args []any) ([]any, error) {
	args = NormalizeArgs(args)
	if expected := CountPlaceholders(query); expected != len(args) {
		err := &ParamMismatchError{Expected: expected, Got: len(args)}
		logger.Error("placeholder mismatch",
			"expected", expected,
			"got", len(args),
			"sql", query,
			"params", args,
			"types", paramTypes(args),
		)
		return nil, err
	}
	return args, nil
}

func logFailure(logger *slog.Logger, err error, query string, args []any) {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) {
		return
	}
	logger.Error("query failed",
		"error", err,
		"sql", query,
		"params", args,
		"types", paramTypes(args),
	)
}

func runExec(ctx context.Context, logger *slog.Logger, q queryRunner, query string, args []any) (sql.Result, error) {
	args, err := prepare(logger, query, args)
	if err != nil {
		return nil, err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		logFailure(logger, err, query, args)
		return nil, fmt.Errorf("exec: %w", err)
	}
	return res, nil
}

func runGet(ctx context.Context, logger *slog.Logger, q queryRunner, dest any, query string, args []any) error {
	args, err := prepare(logger, query, args)
	if err != nil {
		return err
	}
	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		logFailure(logger, err, query, args)
		return fmt.Errorf("get: %w", err)
	}
	return nil
}

func runSelect(ctx context.Context, logger *slog.Logger, q queryRunner, dest any, query string, args []any) error {
	args, err := prepare(logger, query, args)
	if err != nil {
		return err
	}
	if err := sqlx.SelectContext(ctx, q, dest, query, args...); err != nil {
		logFailure(logger, err, query, args)
		return fmt.Errorf("select: %w", err)
	}
	return nil
}

// Exec runs a statement on a freshly acquired connection.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if _, err := prepare(d.logger, query, args); err != nil {
		return nil, err
	}
	conn, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer d.release(conn)
	return runExec(ctx, d.logger, conn, query, args)
}

// Get scans a single row into dest. Returns an error wrapping
// sql.ErrNoRows when nothing matched.
func (d *DB) Get(ctx context.Context, dest any, query string, args ...any) error {
	if _, err := prepare(d.logger, query, args); err != nil {
		return err
	}
	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer d.release(conn)
	return runGet(ctx, d.logger, conn, dest, query, args)
}

// Select scans all rows into the slice pointed to by dest.
func (d *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	if _, err := prepare(d.logger, query, args); err != nil {
		return err
	}
	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer d.release(conn)
	return runSelect(ctx, d.logger, conn, dest, query, args)
}

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// IsUniqueViolation reports whether err was caused by a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
