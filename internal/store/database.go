// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store is the persistence gateway: checked parameterized SQL,
// transaction scopes and schema migrations for MySQL and SQLite.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// DBConfig holds database configuration options.
type DBConfig struct {
	Dialect Dialect
	// DriverName overrides the database/sql driver registered for the dialect.
	DriverName string
	DSN        string

	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
	// AcquireTimeout bounds how long a caller waits for a pooled connection.
	AcquireTimeout time.Duration

	Logger *slog.Logger
}

// DefaultDBConfig returns sensible pool defaults for the dialect.
func DefaultDBConfig(dialect Dialect, dsn string) DBConfig {
	return DBConfig{
		Dialect:         dialect,
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		AcquireTimeout:  10 * time.Second,
	}
}

// DB is the shared connection pool. It is safe for concurrent use.
type DB struct {
	db             *sqlx.DB
	dialect        Dialect
	acquireTimeout time.Duration
	logger         *slog.Logger
}

// Open opens a connection pool and verifies it with a ping.
func Open(ctx context.Context, cfg DBConfig) (*DB, error) {
	driver := cfg.DriverName
	if driver == "" {
		driver = cfg.Dialect.DriverName()
	}
	dsn := cfg.DSN
	if cfg.Dialect == DialectSQLite {
		dsn = sqliteDSN(driver, dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.Dialect == DialectSQLite {
		pragmas := []string{
			"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
			"PRAGMA synchronous=NORMAL", // Good balance of safety and speed
			"PRAGMA temp_store=MEMORY",  // Store temp tables in memory
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
			}
		}
	}

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &DB{
		db:             db,
		dialect:        cfg.Dialect,
		acquireTimeout: timeout,
		logger:         logger,
	}, nil
}

// NewFromSQLX wraps an existing pool. Used with sqlmock in tests.
func NewFromSQLX(db *sqlx.DB, dialect Dialect, acquireTimeout time.Duration, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 10 * time.Second
	}
	return &DB{db: db, dialect: dialect, acquireTimeout: acquireTimeout, logger: logger}
}

// Close closes the pool. Call after in-flight requests have drained.
func (d *DB) Close() error {
	return d.db.Close()
}

// Dialect returns the SQL dialect of the pool.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs all pending migrations for the pool's dialect.
func (d *DB) Migrate() error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(d.dialect.GooseDialect()); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(d.db.DB, d.dialect.MigrationsDir()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// MySQLDSN builds a DSN for go-sql-driver/mysql with UTC time parsing.
func MySQLDSN(host string, port int, user, password, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// sqliteDSN appends per-connection pragmas in the syntax of the chosen driver.
func sqliteDSN(driver, path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if driver == "sqlite3" {
		return path + sep + "_busy_timeout=5000&_foreign_keys=on"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

// acquire takes one connection from the pool, waiting at most acquireTimeout.
func (d *DB) acquire(ctx context.Context) (*sqlx.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, d.acquireTimeout)
	defer cancel()

	conn, err := d.db.Connx(actx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("acquiring connection: timed out after %s: %w", d.acquireTimeout, err)
		}
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return conn, nil
}

// release returns a connection to the pool.
func (d *DB) release(conn *sqlx.Conn) {
	if err := conn.Close(); err != nil {
		d.logger.Warn("failed to release connection", "error", err)
	}
}
