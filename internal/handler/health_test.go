// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servimel/servimel-go/internal/cache"
	"github.com/servimel/servimel-go/internal/testutil"
)

func TestReadiness_ReportsRedis(t *testing.T) {
	db := testutil.TestDB(t)
	mr := miniredis.RunT(t)
	rc, err := cache.DialRedis(context.Background(), "redis://"+mr.Addr()+"/0", "test:", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	h := NewHealthHandler(db, rc, "test")

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, RouteHealth+"/ready", nil))
	var ready map[string]string
	requireOK(t, rec, http.StatusOK, &ready)
	assert.Equal(t, "up", ready["cache"])

	mr.Close()

	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, RouteHealth+"/ready", nil))
	requireOK(t, rec, http.StatusOK, &ready)
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, "down", ready["cache"])
}

func TestHealth_WithoutCache(t *testing.T) {
	h := NewHealthHandler(testutil.TestDB(t), nil, "v1.2.3")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, RouteHealth, nil))
	var status HealthStatus
	requireOK(t, rec, http.StatusOK, &status)
	assert.Equal(t, "v1.2.3", status.Version)
	assert.Nil(t, status.Cache)
}
