// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the Servimel backend.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that discards everything.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database with all migrations applied,
// opened through the mattn/go-sqlite3 driver. It is closed on cleanup.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	return openTestDB(t, "sqlite3")
}

// TestDBModernc is TestDB through the pure Go modernc.org/sqlite driver
// used in production.
func TestDBModernc(t *testing.T) *store.DB {
	t.Helper()
	return openTestDB(t, "sqlite")
}

func openTestDB(t *testing.T, driver string) *store.DB {
	t.Helper()

	cfg := store.DefaultDBConfig(store.DialectSQLite, filepath.Join(t.TempDir(), "servimel-test.db"))
	cfg.DriverName = driver
	cfg.MaxOpenConns = 4
	cfg.MaxIdleConns = 4
	cfg.AcquireTimeout = 5 * time.Second
	cfg.Logger = TestLoggerSilent()

	db, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// UserActor returns an actor authenticated as userID with role.
func UserActor(userID int64, role string) model.Actor {
	return model.Actor{
		UserID:    &userID,
		Role:      role,
		IP:        "127.0.0.1",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		RequestID: "test-request",
	}
}

// InsertUser creates an active user row and returns its id.
func InsertUser(t *testing.T, db *store.DB, email, role string) int64 {
	t.Helper()
	now := store.Now()
	res, err := db.Exec(context.Background(), `
		INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		email, "x", "Test", "User", role, now, now,
	)
	if err != nil {
		t.Fatalf("inserting user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("reading user id: %v", err)
	}
	return id
}

// InsertResident creates an active resident row and returns its id.
func InsertResident(t *testing.T, db *store.DB, first, last string) int64 {
	t.Helper()
	now := store.Now()
	res, err := db.Exec(context.Background(), `
		INSERT INTO residents (first_name, last_name, status, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		first, last, model.ResidentEstable, now, now,
	)
	if err != nil {
		t.Fatalf("inserting resident: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("reading resident id: %v", err)
	}
	return id
}

// CountRows returns the number of rows of table matching where.
func CountRows(t *testing.T, db *store.DB, table, where string, args ...any) int64 {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int64
	if err := db.Get(context.Background(), &n, q, args...); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}
