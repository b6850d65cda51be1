// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Config selects and configures a cache backend.
type Config struct {
	// RedisURL enables the Redis backend when set.
	RedisURL string
	Prefix   string

	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// New creates a Redis cache when RedisURL is set and reachable, and a
// memory cache otherwise. A Redis failure is logged and never fatal.
func New(cfg Config, logger *slog.Logger) Cache {
	if cfg.RedisURL != "" {
		rc, err := DialRedis(context.Background(), cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			logger.Info("cache backend", "type", "redis", "url", SanitizeRedisURL(cfg.RedisURL))
			return rc
		}
		logger.Warn("redis unavailable, using memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
	}

	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	logger.Info("cache backend", "type", "memory")
	return NewMemoryCache(cfg.DefaultTTL, cleanup)
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
