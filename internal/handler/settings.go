// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
)

// SettingsHandler serves /settings.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Routes registers the settings routes. Callers must be authenticated.
func (h *SettingsHandler) Routes(r chi.Router) {
	r.Get(RouteMe, h.Me)
	r.Put(RouteMe, h.UpdateMe)
}

type settingsRequest struct {
	Theme        *string         `json:"theme" validate:"omitempty,max=20"`
	HighContrast flag            `json:"high_contrast"`
	CompactMode  flag            `json:"compact_mode"`
	Animations   flag            `json:"animations"`
	DNAOpacity   number[float64] `json:"dna_opacity"`
}

// Me handles GET /settings/me.
func (h *SettingsHandler) Me(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context(), middleware.GetActor(r).ID())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, st)
}

// UpdateMe handles PUT /settings/me. Unknown themes and out-of-range
// opacity are rejected.
func (h *SettingsHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	updateSettings(w, r, h.settings, service.SettingsStrict)
}

func updateSettings(w http.ResponseWriter, r *http.Request, settings *service.SettingsService, mode service.SettingsMode) {
	var req settingsRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	st, err := settings.Update(r.Context(), middleware.GetActor(r), mode, service.SettingsInput{
		Theme:        req.Theme,
		HighContrast: req.HighContrast.ptr(),
		CompactMode:  req.CompactMode.ptr(),
		Animations:   req.Animations.ptr(),
		DNAOpacity:   req.DNAOpacity.ptr(),
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, st)
}
