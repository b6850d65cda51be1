// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/servimel/servimel-go/internal/auth"
	"github.com/servimel/servimel-go/internal/cache"
	"github.com/servimel/servimel-go/internal/config"
	"github.com/servimel/servimel-go/internal/handler"
	"github.com/servimel/servimel-go/internal/logging"
	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/scheduler"
	"github.com/servimel/servimel-go/internal/service"
	"github.com/servimel/servimel-go/internal/store"
	"github.com/servimel/servimel-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Servimel - residential care backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JWT_SECRET             Token signing key (required, min 32 bytes in production)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JWT_EXPIRES_IN         Token lifetime: 7d, 12h or seconds (default: 7d)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORT                   Server port (default: 3000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_ENV                Environment: development|production|test (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LOG_LEVEL              debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DB_DRIVER              mysql|sqlite (default: mysql)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME\n")
		_, _ = fmt.Fprintf(os.Stderr, "                         MySQL connection (MYSQL_ADDON_* and MYSQL_ADDON_URI take precedence)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DB_PATH                SQLite database path (default: ./data/servimel.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DB_CONN_LIMIT          Connection pool size (default: 10)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORS_ORIGIN            Comma-separated allowed origins\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REDIS_URL              Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Printf("servimel %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, !cfg.IsDevelopment())
	slog.SetDefault(logger)
	logger.Info("starting servimel", "version", versionInfo.String(), "env", cfg.Env)

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("closing database", "error", cerr)
		}
	}()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("migrations applied", "dialect", db.Dialect())
	}

	cacheCfg := cache.Config{Prefix: cfg.CachePrefix, DefaultTTL: cfg.CacheTTL}
	if cfg.UseRedisCache() {
		cacheCfg.RedisURL = cfg.RedisURL
	}
	kpiCache := cache.New(cacheCfg, logger)
	defer func() { _ = kpiCache.Close() }()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	audit := service.NewAuditService(db)
	timeline := service.NewTimelineService(db)
	dashboard := service.NewDashboardService(db, kpiCache, cfg.CacheTTL)
	nursing := service.NewNursingService(db, audit, timeline)
	nursing.UseDashboard(dashboard)
	residents := service.NewResidentService(db, audit)
	residents.UseDashboard(dashboard)
	svc := handler.Services{
		Audit:     audit,
		Timeline:  timeline,
		Residents: residents,
		Nursing:   nursing,
		Auth:      service.NewAuthService(db, audit, tokens, logger),
		Users:     service.NewUserService(db, audit),
		Settings:  service.NewSettingsService(db, audit),
		Dashboard: dashboard,
		Kitchen:   service.NewKitchenService(db, audit),
		Yoga:      service.NewYogaService(db, audit),
	}

	router := handler.NewRouter(handler.RouterConfig{
		Tokens:         tokens,
		CORSOrigins:    cfg.CORSOrigins,
		Development:    cfg.IsDevelopment(),
		LoginRateLimit: cfg.LoginRateLimit,
		Metrics:        middleware.NewMetrics(),
	}, handler.NewHandlers(svc, db, kpiCache, versionInfo.Version))

	sched := scheduler.New(nursing, cfg.MedicationLateAfter, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openDatabase connects to MySQL or SQLite depending on DB_DRIVER.
func openDatabase(cfg *config.Config, logger *slog.Logger) (*store.DB, error) {
	dialect, err := store.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	var dsn string
	switch dialect {
	case store.DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = cfg.DBPath
		logger.Info("initializing database", "driver", dialect, "path", cfg.DBPath)
	default:
		dsn = store.MySQLDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		logger.Info("initializing database", "driver", dialect, "host", cfg.DBHost, "port", cfg.DBPort, "name", cfg.DBName)
	}

	dbCfg := store.DefaultDBConfig(dialect, dsn)
	dbCfg.MaxOpenConns = cfg.DBConnLimit
	dbCfg.MaxIdleConns = cfg.DBConnLimit
	dbCfg.AcquireTimeout = cfg.DBAcquireTimeout
	dbCfg.Logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBAcquireTimeout)
	defer cancel()

	db, err := store.Open(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return db, nil
}
