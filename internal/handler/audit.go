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

// AuditHandler serves /auditoria.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Routes registers the audit routes. Administrators only.
func (h *AuditHandler) Routes(r chi.Router) {
	r.Use(middleware.RequireRole(model.RoleAdmin))
	r.Get(RouteRoot, h.List)
}

type auditQuery struct {
	Module string `query:"module"`
	Action string `query:"action"`
	Entity string `query:"entity"`
	UserID *int64 `query:"userId"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// List handles GET /auditoria.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	var q auditQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	page, err := h.audit.List(r.Context(), service.AuditFilter(q))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, page)
}
