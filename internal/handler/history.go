// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
)

// HistoryHandler serves /historial, the per-resident clinical timeline.
type HistoryHandler struct {
	timeline *service.TimelineService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(timeline *service.TimelineService) *HistoryHandler {
	return &HistoryHandler{timeline: timeline}
}

// Routes registers the timeline routes. Callers must be authenticated.
func (h *HistoryHandler) Routes(r chi.Router) {
	r.Use(middleware.RequireRole(clinicalRoles...))
	r.Get("/residentes/{residentId}", h.ListByResident)
	r.Get("/eventos/{eventId}", h.GetEvent)
}

type timelineQuery struct {
	Preset string     `query:"preset" validate:"max=10"`
	From   *time.Time `query:"fechaDesde"`
	To     *time.Time `query:"fechaHasta"`
	Type   string     `query:"type" validate:"max=40"`
	Page   int        `query:"page"`
	Limit  int        `query:"limit"`
}

// ListByResident handles GET /historial/residentes/{residentId}.
func (h *HistoryHandler) ListByResident(w http.ResponseWriter, r *http.Request) {
	residentID, err := pathID(r, paramResidentID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var q timelineQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	page, err := h.timeline.ListByResident(r.Context(), residentID, service.TimelineQuery(q))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, page)
}

// GetEvent handles GET /historial/eventos/{eventId}.
func (h *HistoryHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, paramEventID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	ev, err := h.timeline.Get(r.Context(), eventID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, ev)
}
