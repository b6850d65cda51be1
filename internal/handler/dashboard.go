// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
)

// DashboardHandler serves /dashboard.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Routes registers the dashboard routes. Callers must be authenticated.
func (h *DashboardHandler) Routes(r chi.Router) {
	r.Use(middleware.RequireRole(clinicalRoles...))
	r.Get("/kpis", h.KPIs)
	r.Get("/quick", h.Quick)
}

// KPIs handles GET /dashboard/kpis.
func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.dashboard.KPIs(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, kpis)
}

// Quick handles GET /dashboard/quick.
func (h *DashboardHandler) Quick(w http.ResponseWriter, r *http.Request) {
	quick, err := h.dashboard.Quick(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, quick)
}
