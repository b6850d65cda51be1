// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/auth"
	"github.com/servimel/servimel-go/internal/cache"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
	"github.com/servimel/servimel-go/internal/testutil"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

type testEnv struct {
	db        *store.DB
	audit     *AuditService
	timeline  *TimelineService
	residents *ResidentService
	nursing   *NursingService
	auth      *AuthService
	users     *UserService
	settings  *SettingsService
	dashboard *DashboardService
	kitchen   *KitchenService
	yoga      *YogaService
	tokens    *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	audit := NewAuditService(db)
	timeline := NewTimelineService(db)
	tokens := auth.NewTokens(testSecret, time.Hour)
	mem := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = mem.Close() })
	dashboard := NewDashboardService(db, mem, 30*time.Second)
	residents := NewResidentService(db, audit)
	residents.UseDashboard(dashboard)
	nursing := NewNursingService(db, audit, timeline)
	nursing.UseDashboard(dashboard)

	return &testEnv{
		db:        db,
		audit:     audit,
		timeline:  timeline,
		residents: residents,
		nursing:   nursing,
		auth:      NewAuthService(db, audit, tokens, testutil.TestLoggerSilent()),
		users:     NewUserService(db, audit),
		settings:  NewSettingsService(db, audit),
		dashboard: dashboard,
		kitchen:   NewKitchenService(db, audit),
		yoga:      NewYogaService(db, audit),
		tokens:    tokens,
	}
}

// actor creates a user with role and returns an actor for it.
func (e *testEnv) actor(t *testing.T, email, role string) model.Actor {
	t.Helper()
	return testutil.UserActor(testutil.InsertUser(t, e.db, email, role), role)
}

func (e *testEnv) auditCount(t *testing.T, module, action string) int64 {
	t.Helper()
	return testutil.CountRows(t, e.db, "audits", "module = ? AND action = ?", module, action)
}

func requireCode(t *testing.T, err error, code string, status int) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	ae := apperr.As(err)
	require.Equal(t, code, ae.Code, "unexpected error: %v", err)
	require.Equal(t, status, ae.Status)
	return ae
}
