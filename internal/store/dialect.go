// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL flavour of the backing database.
type Dialect string

// Supported dialects.
const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// ParseDialect validates a dialect name from configuration.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case DialectMySQL:
		return DialectMySQL, nil
	case DialectSQLite, "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", s)
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "sqlite"
}

// GooseDialect returns the goose dialect name.
func (d Dialect) GooseDialect() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "sqlite3"
}

// MigrationsDir returns the embedded migration directory for the dialect.
func (d Dialect) MigrationsDir() string {
	if d == DialectMySQL {
		return "migrations/mysql"
	}
	return "migrations/sqlite"
}

// Upsert returns the clause that turns an INSERT into an insert-or-update
// keyed by the unique columns in conflict. Columns in update take the
// newly inserted values.
func (d Dialect) Upsert(conflict []string, update []string) string {
	sets := make([]string, 0, len(update))
	if d == DialectMySQL {
		for _, col := range update {
			sets = append(sets, col+" = VALUES("+col+")")
		}
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for _, col := range update {
		sets = append(sets, col+" = excluded."+col)
	}
	return " ON CONFLICT(" + strings.Join(conflict, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}
