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
	"github.com/servimel/servimel-go/internal/store"
	"github.com/servimel/servimel-go/internal/testutil"
)

func TestResidents_CRUD(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)
	admin := s.tokenFor(t, "admin@example.com", model.RoleAdmin)

	var created model.Resident
	requireOK(t, s.do(t, http.MethodPost, RouteResidents, nurse, map[string]any{
		"first_name": "Rosa", "last_name": "Díaz", "room": "12B", "status": "critico",
	}), http.StatusCreated, &created)
	assert.Positive(t, created.ID)
	assert.Equal(t, model.ResidentCritico, created.Status)
	assert.True(t, created.IsActive)

	var got model.Resident
	requireOK(t, s.do(t, http.MethodGet, RouteResidents+"/"+itoa(created.ID), nurse, nil), http.StatusOK, &got)
	assert.Equal(t, "Rosa", got.FirstName)

	var updated model.Resident
	requireOK(t, s.do(t, http.MethodPut, RouteResidents+"/"+itoa(created.ID), nurse, map[string]any{
		"room": "14A",
	}), http.StatusOK, &updated)
	require.NotNil(t, updated.Room)
	assert.Equal(t, "14A", *updated.Room)
	assert.Equal(t, "Díaz", updated.LastName)

	requireFail(t, s.do(t, http.MethodDelete, RouteResidents+"/"+itoa(created.ID), nurse, nil),
		http.StatusForbidden, apperr.CodeForbidden)

	var deleted model.Resident
	requireOK(t, s.do(t, http.MethodDelete, RouteResidents+"/"+itoa(created.ID), admin, nil), http.StatusOK, &deleted)
	assert.False(t, deleted.IsActive)
	assert.NotNil(t, deleted.DeletedAt)

	assert.Equal(t, int64(3), testutil.CountRows(t, s.db, "audits", "entity = ? AND entity_id = ?", "residents", created.ID))
}

func TestResidents_CreateRequiresNames(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)

	body := requireFail(t, s.do(t, http.MethodPost, RouteResidents, nurse, map[string]any{"room": "1"}),
		http.StatusBadRequest, apperr.CodeValidation)
	assert.ElementsMatch(t, []map[string]string{
		{"field": "first_name", "where": "body", "issue": "required"},
		{"field": "last_name", "where": "body", "issue": "required"},
	}, issues(t, body))
}

func TestResidents_ListFilters(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)
	admin := s.tokenFor(t, "admin@example.com", model.RoleAdmin)

	testutil.InsertResident(t, s.db, "Ana", "Alonso")
	testutil.InsertResident(t, s.db, "Berta", "Blanco")
	gone := testutil.InsertResident(t, s.db, "Carlos", "Castro")
	requireOK(t, s.do(t, http.MethodDelete, RouteResidents+"/"+itoa(gone), admin, nil), http.StatusOK, nil)

	var page store.Page[model.Resident]
	requireOK(t, s.do(t, http.MethodGet, RouteResidents, nurse, nil), http.StatusOK, &page)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alonso", page.Items[0].LastName)

	requireOK(t, s.do(t, http.MethodGet, RouteResidents+"?is_active=false", nurse, nil), http.StatusOK, &page)
	assert.Equal(t, int64(2), page.Total, "is_active is ignored for non-admins")

	requireOK(t, s.do(t, http.MethodGet, RouteResidents+"?is_active=false", admin, nil), http.StatusOK, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, gone, page.Items[0].ID)

	requireOK(t, s.do(t, http.MethodGet, RouteResidents+"?q=bert&limit=1", nurse, nil), http.StatusOK, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Berta", page.Items[0].FirstName)
	assert.Equal(t, 1, page.Limit)
}

func TestResidents_BadParams(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)

	tests := []struct {
		name string
		path string
		want map[string]string
	}{
		{"non numeric id", RouteResidents + "/abc", map[string]string{"field": "id", "where": "params", "issue": "type_number"}},
		{"zero id", RouteResidents + "/0", map[string]string{"field": "id", "where": "params", "issue": "min"}},
		{"non numeric page", RouteResidents + "?page=x", map[string]string{"field": "page", "where": "query", "issue": "type_number"}},
		{"bad boolean", RouteResidents + "?is_active=maybe", map[string]string{"field": "is_active", "where": "query", "issue": "type_boolean"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := requireFail(t, s.do(t, http.MethodGet, tt.path, nurse, nil), http.StatusBadRequest, apperr.CodeValidation)
			assert.Equal(t, []map[string]string{tt.want}, issues(t, body))
		})
	}

	requireFail(t, s.do(t, http.MethodGet, RouteResidents+"/999", nurse, nil), http.StatusNotFound, apperr.CodeNotFound)
}
