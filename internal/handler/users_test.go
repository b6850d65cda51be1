// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/service"
	"github.com/servimel/servimel-go/internal/store"
	"github.com/servimel/servimel-go/internal/testutil"
)

func TestUsers_AdminManagement(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	admin := s.tokenFor(t, "admin@example.com", model.RoleAdmin)

	var created model.User
	requireOK(t, s.do(t, http.MethodPost, RouteUsers, admin, map[string]any{
		"email": "Chef@Example.com", "password": "correct-horse", "role": "cocinero",
	}), http.StatusCreated, &created)
	assert.Equal(t, "chef@example.com", created.Email)
	assert.Equal(t, model.RoleCocinero, created.Role)

	requireFail(t, s.do(t, http.MethodPost, RouteUsers, admin, map[string]any{
		"email": "x@example.com", "password": "correct-horse", "role": "pirata",
	}), http.StatusBadRequest, apperr.CodeValidation)

	var page store.Page[model.User]
	requireOK(t, s.do(t, http.MethodGet, RouteUsers+"?role=cocinero", admin, nil), http.StatusOK, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)

	var updated model.User
	requireOK(t, s.do(t, http.MethodPut, RouteUsers+"/"+itoa(created.ID), admin, map[string]any{
		"role": "medico", "is_active": false,
	}), http.StatusOK, &updated)
	assert.Equal(t, model.RoleMedico, updated.Role)
	assert.False(t, updated.IsActive)

	requireOK(t, s.do(t, http.MethodGet, RouteUsers+"?is_active=false", admin, nil), http.StatusOK, &page)
	assert.Equal(t, int64(1), page.Total)
}

func TestUsers_ProfileAndPassword(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	var reg authData
	requireOK(t, s.do(t, http.MethodPost, RouteAuth+"/register", "", map[string]string{
		"email": "nurse@example.com", "password": "correct-horse",
	}), http.StatusCreated, &reg)

	var me model.User
	requireOK(t, s.do(t, http.MethodPut, RouteUsers+RouteMe, reg.Token, map[string]any{
		"first_name": "Lucía", "phone": "600 000 000",
	}), http.StatusOK, &me)
	require.NotNil(t, me.FirstName)
	assert.Equal(t, "Lucía", *me.FirstName)

	requireFail(t, s.do(t, http.MethodPut, RouteUsers+RouteMe+"/password", reg.Token, map[string]any{
		"current_password": "wrong-horse", "new_password": "battery-staple",
	}), http.StatusUnauthorized, apperr.CodeInvalidCredentials)

	var changed map[string]bool
	requireOK(t, s.do(t, http.MethodPut, RouteUsers+RouteMe+"/password", reg.Token, map[string]any{
		"current_password": "correct-horse", "new_password": "battery-staple",
	}), http.StatusOK, &changed)
	assert.True(t, changed["changed"])

	requireOK(t, s.do(t, http.MethodPost, RouteAuth+"/login", "", map[string]string{
		"email": "nurse@example.com", "password": "battery-staple",
	}), http.StatusOK, nil)
}

func TestSettings_StrictAndLenient(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)

	var st model.UserSettings
	requireOK(t, s.do(t, http.MethodGet, RouteSettings+RouteMe, nurse, nil), http.StatusOK, &st)
	assert.Equal(t, model.ThemeDark, st.Theme)
	assert.InDelta(t, model.DefaultDNAOpacity, st.DNAOpacity, 1e-9)

	body := requireFail(t, s.do(t, http.MethodPut, RouteSettings+RouteMe, nurse, map[string]any{"dna_opacity": 0.9}),
		http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, "dna_opacity out of range", body.Message)

	requireOK(t, s.do(t, http.MethodPut, RouteSettings+RouteMe, nurse, map[string]any{"theme": "high-contrast"}),
		http.StatusOK, &st)
	assert.Equal(t, model.ThemeDark, st.Theme)
	assert.True(t, st.HighContrast)

	requireOK(t, s.do(t, http.MethodPut, RouteUsers+RouteMe+"/settings", nurse, map[string]any{"dna_opacity": 0.9}),
		http.StatusOK, &st)
	assert.InDelta(t, model.MaxDNAOpacity, st.DNAOpacity, 1e-9)

	requireFail(t, s.do(t, http.MethodPut, RouteUsers+RouteMe+"/settings", nurse, map[string]any{"theme": "dim"}),
		http.StatusBadRequest, apperr.CodeValidation)

	requireOK(t, s.do(t, http.MethodGet, RouteUsers+RouteMe+"/settings", nurse, nil), http.StatusOK, &st)
	assert.InDelta(t, model.MaxDNAOpacity, st.DNAOpacity, 1e-9)

	requireOK(t, s.do(t, http.MethodPut, RouteSettings+RouteMe, nurse, map[string]any{
		"high_contrast": "false", "dna_opacity": "0.2",
	}), http.StatusOK, &st)
	assert.False(t, st.HighContrast)
	assert.InDelta(t, 0.2, st.DNAOpacity, 1e-9)

	body = requireFail(t, s.do(t, http.MethodPut, RouteSettings+RouteMe, nurse, map[string]any{
		"compact_mode": "maybe", "dna_opacity": "x",
	}), http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, []map[string]string{
		{"field": "compact_mode", "where": "body", "issue": "type_boolean"},
		{"field": "dna_opacity", "where": "body", "issue": "type_number"},
	}, issues(t, body))
}

func TestAudit_List(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	admin := s.tokenFor(t, "admin@example.com", model.RoleAdmin)
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)

	var created model.Resident
	requireOK(t, s.do(t, http.MethodPost, RouteResidents, nurse, map[string]any{
		"first_name": "Rosa", "last_name": "Díaz",
	}), http.StatusCreated, &created)
	requireOK(t, s.do(t, http.MethodPut, RouteSettings+RouteMe, nurse, map[string]any{"compact_mode": true}),
		http.StatusOK, nil)

	var page store.Page[model.AuditEntry]
	requireOK(t, s.do(t, http.MethodGet, RouteAudit+"?module="+service.ModuleResidentes, admin, nil), http.StatusOK, &page)
	require.Len(t, page.Items, 1)
	entry := page.Items[0]
	assert.Equal(t, "create", entry.Action)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, created.ID, *entry.EntityID)
	require.NotNil(t, entry.UserEmail)
	assert.Equal(t, "nurse@example.com", *entry.UserEmail)
	assert.NotEmpty(t, entry.AfterJSON)

	requireOK(t, s.do(t, http.MethodGet, RouteAudit, admin, nil), http.StatusOK, &page)
	assert.Equal(t, int64(2), page.Total)

	body := requireFail(t, s.do(t, http.MethodGet, RouteAudit+"?userId=me", admin, nil), http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, []map[string]string{{"field": "userId", "where": "query", "issue": "type_number"}}, issues(t, body))
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	doctor := s.tokenFor(t, "doc@example.com", model.RoleMedico)
	resident := testutil.InsertResident(t, s.db, "Rosa", "Díaz")

	var kpis service.DashboardKPIs
	requireOK(t, s.do(t, http.MethodGet, RouteDashboard+"/kpis", doctor, nil), http.StatusOK, &kpis)
	assert.Zero(t, kpis.AlertasPendientes)

	requireOK(t, s.do(t, http.MethodPost, RouteNursing+"/residentes/"+itoa(resident)+"/observations", doctor, map[string]any{
		"type": "alerta", "text": "Fiebre alta",
	}), http.StatusCreated, nil)

	requireOK(t, s.do(t, http.MethodGet, RouteDashboard+"/kpis", doctor, nil), http.StatusOK, &kpis)
	assert.Equal(t, int64(1), kpis.ResidentesActivos)
	assert.Equal(t, int64(1), kpis.AlertasPendientes, "a new alert shows up without waiting for the cache")

	var quick service.DashboardQuick
	requireOK(t, s.do(t, http.MethodGet, RouteDashboard+"/quick", doctor, nil), http.StatusOK, &quick)
	require.Len(t, quick.UltimasAlertas, 1)
	assert.Equal(t, model.SeverityCritical, quick.UltimasAlertas[0].Severity)
	assert.Equal(t, resident, quick.UltimasAlertas[0].ResidentID)
}
