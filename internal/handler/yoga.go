// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
)

// YogaHandler serves /yoga: the sequence library and weekly plans.
type YogaHandler struct {
	yoga *service.YogaService
}

// NewYogaHandler creates a new YogaHandler.
func NewYogaHandler(yoga *service.YogaService) *YogaHandler {
	return &YogaHandler{yoga: yoga}
}

// Routes registers the yoga routes. Callers must be authenticated.
func (h *YogaHandler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(yogaViewRoles...))
		r.Get("/sequences", h.ListSequences)
		r.Get("/plans/{residentId}", h.GetPlan)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(yogaEditRoles...))
		r.Post("/sequences", h.CreateSequence)
		r.Put("/sequences/{id}", h.UpdateSequence)
		r.Delete("/sequences/{id}", h.DeleteSequence)
		r.Put("/plans/{residentId}", h.UpsertPlan)
	})
}

// planRequest accepts the days either at the top level or wrapped in a
// plan object.
type planRequest struct {
	WeekStart string                 `json:"weekStart"`
	Days      []service.PlanDayInput `json:"days"`
	Plan      *struct {
		Days []service.PlanDayInput `json:"days"`
	} `json:"plan"`
}

type limitQuery struct {
	Limit int `query:"limit"`
}

// ListSequences handles GET /yoga/sequences?limit=.
func (h *YogaHandler) ListSequences(w http.ResponseWriter, r *http.Request) {
	var q limitQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	list, err := h.yoga.ListSequences(r.Context(), q.Limit)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"items": list})
}

// CreateSequence handles POST /yoga/sequences.
func (h *YogaHandler) CreateSequence(w http.ResponseWriter, r *http.Request) {
	var in service.SequenceInput
	if err := decodeJSON(w, r, &in); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	id, err := h.yoga.CreateSequence(r.Context(), middleware.GetActor(r), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, map[string]int64{"id": id})
}

// UpdateSequence handles PUT /yoga/sequences/{id}.
func (h *YogaHandler) UpdateSequence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var in service.SequenceInput
	if err := decodeJSON(w, r, &in); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := h.yoga.UpdateSequence(r.Context(), middleware.GetActor(r), id, in); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]bool{"updated": true})
}

// DeleteSequence handles DELETE /yoga/sequences/{id}.
func (h *YogaHandler) DeleteSequence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := h.yoga.DeleteSequence(r.Context(), middleware.GetActor(r), id); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]bool{"deleted": true})
}

// GetPlan handles GET /yoga/plans/{residentId}?weekStart=. A week without
// a plan returns plan: null.
func (h *YogaHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	residentID, err := pathID(r, paramResidentID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var q weekQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	plan, err := h.yoga.GetWeekPlan(r.Context(), residentID, q.WeekStart)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"plan": plan})
}

// UpsertPlan handles PUT /yoga/plans/{residentId}?weekStart=. The query
// weekStart wins over one in the body.
func (h *YogaHandler) UpsertPlan(w http.ResponseWriter, r *http.Request) {
	residentID, err := pathID(r, paramResidentID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var q weekQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	in := service.WeekPlanInput{WeekStart: req.WeekStart, Days: req.Days}
	if q.WeekStart != "" {
		in.WeekStart = q.WeekStart
	}
	if req.Plan != nil {
		in.Days = req.Plan.Days
	}

	if err := h.yoga.UpsertWeekPlan(r.Context(), middleware.GetActor(r), residentID, in); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]bool{"saved": true})
}
