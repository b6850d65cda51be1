// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/service"
)

// KitchenHandler serves /api/cocina: weekly menus and their assignment
// to residents.
type KitchenHandler struct {
	kitchen *service.KitchenService
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(kitchen *service.KitchenService) *KitchenHandler {
	return &KitchenHandler{kitchen: kitchen}
}

// Routes registers the kitchen routes. Callers must be authenticated.
func (h *KitchenHandler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(kitchenViewRoles...))
		r.Get("/menus", h.ListMenus)
		r.Get("/menus/{id}", h.GetMenu)
		r.Get("/assignments", h.ListAssignments)
		r.Get("/view", h.Viewer)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(kitchenEditRoles...))
		r.Post("/menus", h.CreateMenu)
		r.Put("/menus/{id}", h.UpdateMenu)
		r.Post("/menus/{id}/publish", h.PublishMenu)
		r.Put("/assignments", h.SaveAssignments)
	})
}

// menuRequest is the body of menu create and update. The document is
// accepted as menuJson or menu_json.
type menuRequest struct {
	WeekStart           string          `json:"weekStart"`
	WeekEnd             *string         `json:"weekEnd"`
	Title               *string         `json:"title"`
	MenuJSON            json.RawMessage `json:"menuJson"`
	MenuJSONSnake       json.RawMessage `json:"menu_json"`
	DuplicateFromMenuID int64           `json:"duplicateFromMenuId"`
}

func (req menuRequest) input() (service.MenuInput, error) {
	in := service.MenuInput{
		WeekStart:           req.WeekStart,
		WeekEnd:             req.WeekEnd,
		Title:               req.Title,
		DuplicateFromMenuID: req.DuplicateFromMenuID,
	}
	raw := req.MenuJSON
	if isNullJSON(raw) {
		raw = req.MenuJSONSnake
	}
	if isNullJSON(raw) {
		return in, nil
	}
	var doc model.MenuDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return in, apperr.Invalid("menuJson must be a JSON object", "menuJson", apperr.IssueTypeObject)
	}
	in.MenuJSON = &doc
	return in, nil
}

func isNullJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

type assignmentRequest struct {
	ResidentID    int64   `json:"residentId"`
	MenuID        *int64  `json:"menuId"`
	DietType      *string `json:"dietType"`
	ResidentNotes *string `json:"residentNotes"`
}

type weekQuery struct {
	WeekStart string `query:"weekStart"`
}

type viewerQuery struct {
	ResidentID int64  `query:"residentId"`
	WeekStart  string `query:"weekStart"`
}

type saveAssignmentsRequest struct {
	WeekStart   string              `json:"weekStart"`
	Assignments []assignmentRequest `json:"assignments" validate:"required"`
}

// ListMenus handles GET /api/cocina/menus?weekStart=.
func (h *KitchenHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	var q weekQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	menus, err := h.kitchen.ListMenus(r.Context(), q.WeekStart)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"menus": menus})
}

// GetMenu handles GET /api/cocina/menus/{id}.
func (h *KitchenHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	menu, err := h.kitchen.GetMenu(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"menu": menu})
}

// CreateMenu handles POST /api/cocina/menus.
func (h *KitchenHandler) CreateMenu(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeMenu(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	menu, err := h.kitchen.CreateMenu(r.Context(), middleware.GetActor(r), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, map[string]any{"menu": menu})
}

// UpdateMenu handles PUT /api/cocina/menus/{id}. Published menus are
// rejected with MENU_PUBLISHED.
func (h *KitchenHandler) UpdateMenu(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	in, err := h.decodeMenu(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	menu, err := h.kitchen.UpdateMenu(r.Context(), middleware.GetActor(r), id, in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"menu": menu})
}

func (h *KitchenHandler) decodeMenu(w http.ResponseWriter, r *http.Request) (service.MenuInput, error) {
	var req menuRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return service.MenuInput{}, err
	}
	return req.input()
}

// PublishMenu handles POST /api/cocina/menus/{id}/publish.
func (h *KitchenHandler) PublishMenu(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	menu, err := h.kitchen.PublishMenu(r.Context(), middleware.GetActor(r), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"menu": menu})
}

// ListAssignments handles GET /api/cocina/assignments?weekStart=.
func (h *KitchenHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	var q weekQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	list, err := h.kitchen.ListAssignments(r.Context(), q.WeekStart)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"assignments": list})
}

// SaveAssignments handles PUT /api/cocina/assignments.
func (h *KitchenHandler) SaveAssignments(w http.ResponseWriter, r *http.Request) {
	var req saveAssignmentsRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	items := make([]service.AssignmentInput, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		items = append(items, service.AssignmentInput{
			ResidentID:    a.ResidentID,
			MenuID:        a.MenuID,
			DietType:      a.DietType,
			ResidentNotes: a.ResidentNotes,
		})
	}
	res, err := h.kitchen.SaveAssignments(r.Context(), middleware.GetActor(r), req.WeekStart, items)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, res)
}

// Viewer handles GET /api/cocina/view?residentId=&weekStart=.
func (h *KitchenHandler) Viewer(w http.ResponseWriter, r *http.Request) {
	var q viewerQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	data, err := h.kitchen.Viewer(r.Context(), q.ResidentID, q.WeekStart)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, data)
}
