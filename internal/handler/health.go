// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/cache"
	"github.com/servimel/servimel-go/internal/middleware"
)

// pingTimeout bounds the readiness database check.
const pingTimeout = 2 * time.Second

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db        Pinger
	cache     cache.Cache
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. c may be nil.
func NewHealthHandler(db Pinger, c cache.Cache, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     c,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	// Cache holds hit counters when the backend tracks them.
	Cache *cache.Stats `json:"cache,omitempty"`
}

// Health handles GET /health. It reports the process as up without
// touching the database.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	status := HealthStatus{
		Status:  "up",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		status.Cache = &stats
	}
	writeOK(w, status)
}

// Readiness handles GET /health/ready. It fails with 503 while the
// database is unreachable. A Redis outage is reported but does not fail
// the check; KPIs are then computed on every request.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		middleware.WriteError(w, r, apperr.Wrap(err, "NOT_READY", "Database unavailable", http.StatusServiceUnavailable))
		return
	}
	out := map[string]string{"status": "ready"}
	if p, ok := h.cache.(Pinger); ok {
		out["cache"] = "up"
		if err := p.Ping(ctx); err != nil {
			out["cache"] = "down"
		}
	}
	writeOK(w, out)
}
