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
	"github.com/servimel/servimel-go/internal/testutil"
)

const testWeek = "2026-03-02"

type menuData struct {
	Menu model.KitchenMenu `json:"menu"`
}

func TestKitchen_MenuLifecycle(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	cook := s.tokenFor(t, "chef@example.com", model.RoleCocinero)

	var created menuData
	requireOK(t, s.do(t, http.MethodPost, RouteKitchen+"/menus", cook, map[string]any{
		"weekStart": testWeek, "title": "Semana 10",
	}), http.StatusCreated, &created)
	menu := created.Menu
	assert.Equal(t, model.MenuDraft, menu.Status)
	assert.Equal(t, "2026-03-08", menu.WeekEnd)
	assert.Len(t, menu.MenuJSON.Days, 7, "a blank document is generated")

	doc := model.NewBlankMenu(testWeek)
	doc.Days[0].Meals["almuerzo"] = model.Meal{Main: "Lentejas", Tags: []string{}}
	var updated menuData
	requireOK(t, s.do(t, http.MethodPut, RouteKitchen+"/menus/"+itoa(menu.ID), cook, map[string]any{
		"weekStart": testWeek, "title": "Semana 10", "menu_json": doc,
	}), http.StatusOK, &updated)
	assert.Equal(t, "Lentejas", updated.Menu.MenuJSON.Days[0].Meals["almuerzo"].Main)

	var published menuData
	requireOK(t, s.do(t, http.MethodPost, RouteKitchen+"/menus/"+itoa(menu.ID)+"/publish", cook, nil),
		http.StatusOK, &published)
	assert.Equal(t, model.MenuPublished, published.Menu.Status)

	requireFail(t, s.do(t, http.MethodPut, RouteKitchen+"/menus/"+itoa(menu.ID), cook, map[string]any{
		"weekStart": testWeek,
	}), http.StatusConflict, apperr.CodeMenuPublished)

	var list struct {
		Menus []model.KitchenMenu `json:"menus"`
	}
	requireOK(t, s.do(t, http.MethodGet, RouteKitchen+"/menus?weekStart="+testWeek, cook, nil), http.StatusOK, &list)
	require.Len(t, list.Menus, 1)
	assert.Equal(t, menu.ID, list.Menus[0].ID)

	var got menuData
	requireOK(t, s.do(t, http.MethodGet, RouteKitchen+"/menus/"+itoa(menu.ID), cook, nil), http.StatusOK, &got)
	assert.Equal(t, "Semana 10", *got.Menu.Title)
}

func TestKitchen_MenuValidation(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	cook := s.tokenFor(t, "chef@example.com", model.RoleCocinero)

	body := requireFail(t, s.do(t, http.MethodPost, RouteKitchen+"/menus", cook, map[string]any{
		"weekStart": testWeek, "menuJson": "not an object",
	}), http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, "menuJson must be a JSON object", body.Message)

	requireFail(t, s.do(t, http.MethodPost, RouteKitchen+"/menus", cook, map[string]any{
		"weekStart": "02/03/2026",
	}), http.StatusBadRequest, apperr.CodeValidation)

	requireFail(t, s.do(t, http.MethodGet, RouteKitchen+"/menus", cook, nil), http.StatusBadRequest, apperr.CodeValidation)
	requireFail(t, s.do(t, http.MethodGet, RouteKitchen+"/menus/77", cook, nil), http.StatusNotFound, apperr.CodeNotFound)
}

func TestKitchen_AssignmentsAndViewer(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	cook := s.tokenFor(t, "chef@example.com", model.RoleCocinero)
	nurse := s.tokenFor(t, "nurse@example.com", model.RoleEnfermeria)
	resident := testutil.InsertResident(t, s.db, "Rosa", "Díaz")
	other := testutil.InsertResident(t, s.db, "Luis", "Gómez")

	var created menuData
	requireOK(t, s.do(t, http.MethodPost, RouteKitchen+"/menus", cook, map[string]any{"weekStart": testWeek}),
		http.StatusCreated, &created)

	body := requireFail(t, s.do(t, http.MethodPut, RouteKitchen+"/assignments", cook, map[string]any{
		"weekStart": testWeek,
	}), http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, []map[string]string{{"field": "assignments", "where": "body", "issue": "required"}}, issues(t, body))

	var saved service.SaveResult
	requireOK(t, s.do(t, http.MethodPut, RouteKitchen+"/assignments", cook, map[string]any{
		"weekStart": testWeek,
		"assignments": []map[string]any{
			{"residentId": resident, "menuId": created.Menu.ID, "dietType": "blanda"},
			{"residentId": other},
			{"residentId": 0},
		},
	}), http.StatusOK, &saved)
	assert.Equal(t, 2, saved.Saved)

	var list struct {
		Assignments []model.MenuAssignment `json:"assignments"`
	}
	requireOK(t, s.do(t, http.MethodGet, RouteKitchen+"/assignments?weekStart="+testWeek, nurse, nil), http.StatusOK, &list)
	require.Len(t, list.Assignments, 2)
	assert.Equal(t, "blanda", list.Assignments[0].DietType)

	var view service.ViewerData
	requireOK(t, s.do(t, http.MethodGet, RouteKitchen+"/view?residentId="+itoa(resident)+"&weekStart="+testWeek, nurse, nil),
		http.StatusOK, &view)
	require.NotNil(t, view.Menu)
	assert.Equal(t, created.Menu.ID, view.Menu.ID)

	requireOK(t, s.do(t, http.MethodGet, RouteKitchen+"/view?residentId="+itoa(other)+"&weekStart=2026-03-09", nurse, nil),
		http.StatusOK, &view)
	assert.Nil(t, view.Menu)
	assert.Nil(t, view.Assignment.ID)

	body = requireFail(t, s.do(t, http.MethodGet, RouteKitchen+"/view?residentId=abc&weekStart="+testWeek, nurse, nil),
		http.StatusBadRequest, apperr.CodeValidation)
	assert.Equal(t, []map[string]string{{"field": "residentId", "where": "query", "issue": "type_number"}}, issues(t, body))
}

func TestKitchen_MenuRoundTrip(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	cook := s.tokenFor(t, "chef@example.com", model.RoleCocinero)

	var created menuData
	requireOK(t, s.do(t, http.MethodPost, RouteKitchen+"/menus", cook, map[string]any{
		"weekStart": testWeek,
	}), http.StatusCreated, &created)
	assert.Equal(t, model.NewBlankMenu(testWeek), created.Menu.MenuJSON)
	assert.Equal(t, model.DefaultMenuTitle, *created.Menu.Title)

	p := model.NewBlankMenu(testWeek)
	p.Days[1].Meals["almuerzo"] = model.Meal{
		Main: "Merluza", Side: "Puré", Drink: "Agua", Dessert: "Natillas",
		Notes: "sin espinas", Tags: []string{"pescado", "blando"},
	}
	p.Days[4].Meals["cena"] = model.Meal{Main: "Tortilla", Tags: []string{}}
	requireOK(t, s.do(t, http.MethodPut, RouteKitchen+"/menus/"+itoa(created.Menu.ID), cook, map[string]any{
		"weekStart": testWeek, "title": "Semana 10", "menuJson": p,
	}), http.StatusOK, nil)

	var fetched menuData
	requireOK(t, s.do(t, http.MethodGet, RouteKitchen+"/menus/"+itoa(created.Menu.ID), cook, nil), http.StatusOK, &fetched)
	assert.Equal(t, p, fetched.Menu.MenuJSON)
	assert.Equal(t, "Semana 10", *fetched.Menu.Title)
	assert.Equal(t, "2026-03-08", fetched.Menu.WeekEnd)
}
