// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/servimel/servimel-go/internal/auth"
	"github.com/servimel/servimel-go/internal/cache"
	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
	"github.com/servimel/servimel-go/internal/store"
	"github.com/servimel/servimel-go/internal/testutil"
)

const testSecret = "handler-test-secret-0123456789abcdef"

type testServer struct {
	db      *store.DB
	tokens  *auth.Tokens
	handler http.Handler
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	db := testutil.TestDB(t)
	tokens := auth.NewTokens(testSecret, time.Hour)
	mem := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = mem.Close() })

	audit := service.NewAuditService(db)
	timeline := service.NewTimelineService(db)
	dashboard := service.NewDashboardService(db, mem, time.Minute)
	residents := service.NewResidentService(db, audit)
	residents.UseDashboard(dashboard)
	nursing := service.NewNursingService(db, audit, timeline)
	nursing.UseDashboard(dashboard)
	svc := Services{
		Audit:     audit,
		Timeline:  timeline,
		Residents: residents,
		Nursing:   nursing,
		Auth:      service.NewAuthService(db, audit, tokens, testutil.TestLoggerSilent()),
		Users:     service.NewUserService(db, audit),
		Settings:  service.NewSettingsService(db, audit),
		Dashboard: dashboard,
		Kitchen:   service.NewKitchenService(db, audit),
		Yoga:      service.NewYogaService(db, audit),
	}

	cfg.Tokens = tokens
	if cfg.Metrics == nil {
		cfg.Metrics = middleware.NewMetrics()
	}
	return &testServer{
		db:      db,
		tokens:  tokens,
		handler: NewRouter(cfg, NewHandlers(svc, db, mem, "test")),
	}
}

// tokenFor creates a user with role and returns a bearer token for it.
func (s *testServer) tokenFor(t *testing.T, email, role string) string {
	t.Helper()
	id := testutil.InsertUser(t, s.db, email, role)
	token, err := s.tokens.Issue(id, role)
	require.NoError(t, err)
	return token
}

// do sends a request. body may be nil, a string sent verbatim, or a value
// encoded as JSON.
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	OK    bool                  `json:"ok"`
	Data  json.RawMessage       `json:"data"`
	Error *middleware.ErrorBody `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// requireOK asserts status and decodes data into dst.
func requireOK(t *testing.T, rec *httptest.ResponseRecorder, status int, dst any) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	env := decode(t, rec)
	require.True(t, env.OK)
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
}

// requireFail asserts status and code and returns the error body.
func requireFail(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) *middleware.ErrorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	env := decode(t, rec)
	require.False(t, env.OK)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
	return env.Error
}

// issues extracts the validation details as field/where/issue maps.
func issues(t *testing.T, body *middleware.ErrorBody) []map[string]string {
	t.Helper()
	raw, err := json.Marshal(body.Details)
	require.NoError(t, err)
	var out []map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
