// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/model"
)

func TestHealth(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	var status HealthStatus
	requireOK(t, s.do(t, http.MethodGet, RouteHealth, "", nil), http.StatusOK, &status)
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "test", status.Version)
	require.NotNil(t, status.Cache, "memory cache reports stats")

	var ready map[string]string
	requireOK(t, s.do(t, http.MethodGet, RouteHealth+"/ready", "", nil), http.StatusOK, &ready)
	assert.Equal(t, "ready", ready["status"])
}

func TestReadiness_DatabaseDown(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	require.NoError(t, s.db.Close())

	rec := s.do(t, http.MethodGet, RouteHealth+"/ready", "", nil)
	requireFail(t, rec, http.StatusServiceUnavailable, "NOT_READY")
}

func TestRouter_Fallbacks(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	body := requireFail(t, s.do(t, http.MethodGet, "/nope", "", nil), http.StatusNotFound, apperr.CodeNotFound)
	assert.Equal(t, "Route not found", body.Message)

	requireFail(t, s.do(t, http.MethodDelete, RouteHealth, "", nil), http.StatusMethodNotAllowed, apperr.CodeMethodNotAllowed)
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, RouteHealth, "", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	s.do(t, http.MethodGet, RouteHealth, "", nil)
	rec := s.do(t, http.MethodGet, RouteMetrics, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRouter_CORS(t *testing.T) {
	s := newTestServer(t, RouterConfig{CORSOrigins: []string{"http://localhost:4200"}})

	req := httptest.NewRequest(http.MethodOptions, RouteResidents, nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, RouteHealth, nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	body := requireFail(t, rec, http.StatusForbidden, apperr.CodeForbidden)
	assert.Equal(t, "CORS blocked for origin: https://evil.example", body.Message)
}

func TestRouter_AuthenticationRequired(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	paths := []string{
		RouteResidents, RouteNursing + "/hoy", RouteHistory + "/eventos/1", RouteAudit,
		RouteSettings + RouteMe, RouteUsers + RouteMe, RouteDashboard + "/kpis",
		RouteKitchen + "/menus?weekStart=2026-03-02", RouteYoga + "/sequences",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			requireFail(t, s.do(t, http.MethodGet, p, "", nil), http.StatusUnauthorized, apperr.CodeUnauthorized)
		})
	}

	body := requireFail(t, s.do(t, http.MethodGet, RouteResidents, "garbage", nil), http.StatusUnauthorized, apperr.CodeUnauthorized)
	assert.Equal(t, "Invalid or expired token", body.Message)
}

func TestRouter_RoleGate(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	cook := s.tokenFor(t, "chef@example.com", model.RoleCocinero)
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"cook reads residents", http.MethodGet, RouteResidents, cook, http.StatusForbidden},
		{"cook reads menus", http.MethodGet, RouteKitchen + "/menus?weekStart=2026-03-02", cook, http.StatusOK},
		{"nurse edits menus", http.MethodPost, RouteKitchen + "/menus", nurse, http.StatusForbidden},
		{"nurse reads audit", http.MethodGet, RouteAudit, nurse, http.StatusForbidden},
		{"nurse lists users", http.MethodGet, RouteUsers, nurse, http.StatusForbidden},
		{"nurse reads own profile", http.MethodGet, RouteUsers + RouteMe, nurse, http.StatusOK},
		{"cook reads dashboard", http.MethodGet, RouteDashboard + "/kpis", cook, http.StatusForbidden},
		{"nurse reads yoga", http.MethodGet, RouteYoga + "/sequences", nurse, http.StatusOK},
		{"nurse edits yoga", http.MethodPost, RouteYoga + "/sequences", nurse, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.method != http.MethodGet {
				body = map[string]any{}
			}
			rec := s.do(t, tt.method, tt.path, tt.token, body)
			assert.Equal(t, tt.want, rec.Code, "body: %s", rec.Body.String())
		})
	}
}

func TestRouter_LoginRateLimit(t *testing.T) {
	s := newTestServer(t, RouterConfig{LoginRateLimit: 2})
	creds := map[string]string{"email": "nobody@example.com", "password": "wrong-password"}

	for range 2 {
		rec := s.do(t, http.MethodPost, RouteAuth+"/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, http.MethodPost, RouteAuth+"/login", "", creds)
	requireFail(t, rec, http.StatusTooManyRequests, apperr.CodeRateLimited)
}

func TestDecodeJSON_Errors(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)

	body := requireFail(t, s.do(t, http.MethodPost, RouteResidents, nurse, "{not json"), http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, "Invalid JSON body", body.Message)

	body = requireFail(t, s.do(t, http.MethodPost, RouteResidents, nurse, `{"first_name": 12}`), http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, []map[string]string{{"field": "first_name", "where": "body", "issue": "type_string"}}, issues(t, body))

	huge := `{"notes":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	requireFail(t, s.do(t, http.MethodPost, RouteResidents, nurse, huge), http.StatusRequestEntityTooLarge, apperr.CodeValidation)
}
