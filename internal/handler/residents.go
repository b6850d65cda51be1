// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/service"
)

// ResidentsHandler serves /residentes.
type ResidentsHandler struct {
	residents *service.ResidentService
}

// NewResidentsHandler creates a new ResidentsHandler.
func NewResidentsHandler(residents *service.ResidentService) *ResidentsHandler {
	return &ResidentsHandler{residents: residents}
}

// Routes registers the resident routes. Callers must be authenticated.
func (h *ResidentsHandler) Routes(r chi.Router) {
	r.With(middleware.RequireRole(clinicalRoles...)).Get(RouteRoot, h.List)
	r.With(middleware.RequireRole(clinicalRoles...)).Get(RouteParamID, h.Get)
	r.With(middleware.RequireRole(residentEditors...)).Post(RouteRoot, h.Create)
	r.With(middleware.RequireRole(residentEditors...)).Put(RouteParamID, h.Update)
	r.With(middleware.RequireRole(model.RoleAdmin)).Delete(RouteParamID, h.Deactivate)
}

type residentQuery struct {
	Q        string `query:"q" validate:"max=190"`
	Status   string `query:"status" validate:"max=40"`
	IsActive *bool  `query:"is_active"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}

// residentRequest is the body of create and update. Create additionally
// requires both names.
type residentRequest struct {
	FirstName             *string `json:"first_name" validate:"omitempty,max=120"`
	LastName              *string `json:"last_name" validate:"omitempty,max=120"`
	DocumentNumber        *string `json:"document_number" validate:"omitempty,max=40"`
	Room                  *string `json:"room" validate:"omitempty,max=40"`
	Status                *string `json:"status" validate:"omitempty,max=40"`
	EmergencyContactName  *string `json:"emergency_contact_name" validate:"omitempty,max=120"`
	EmergencyContactPhone *string `json:"emergency_contact_phone" validate:"omitempty,max=40"`
	Notes                 *string `json:"notes" validate:"omitempty,max=2000"`
}

func (req residentRequest) input() service.ResidentInput {
	return service.ResidentInput{
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		DocumentNumber:        req.DocumentNumber,
		Room:                  req.Room,
		Status:                req.Status,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Notes:                 req.Notes,
	}
}

// List handles GET /residentes. The is_active filter is honoured for
// administrators only; everyone else sees active residents.
func (h *ResidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var q residentQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	filter := service.ResidentFilter{Q: q.Q, Status: q.Status, Page: q.Page, Limit: q.Limit}
	if id, ok := middleware.GetIdentity(r.Context()); ok && id.HasRole(model.RoleAdmin) {
		filter.IsActive = q.IsActive
	}

	page, err := h.residents.List(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, page)
}

// Get handles GET /residentes/{id}.
func (h *ResidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	res, err := h.residents.Get(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, res)
}

// Create handles POST /residentes.
func (h *ResidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req residentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	res, err := h.residents.Create(r.Context(), middleware.GetActor(r), req.input())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// Update handles PUT /residentes/{id}.
func (h *ResidentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var req residentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	res, err := h.residents.Update(r.Context(), middleware.GetActor(r), id, req.input())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, res)
}

// Deactivate handles DELETE /residentes/{id} and returns the resident as
// it is after deactivation.
func (h *ResidentsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := h.residents.Deactivate(r.Context(), middleware.GetActor(r), id); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	res, err := h.residents.Get(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, res)
}
