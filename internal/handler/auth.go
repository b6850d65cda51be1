// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
)

// AuthHandler serves /auth.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Email     string  `json:"email" validate:"required,max=190"`
	Password  string  `json:"password" validate:"required,min=8,max=120"`
	FirstName *string `json:"first_name" validate:"omitempty,max=120"`
	LastName  *string `json:"last_name" validate:"omitempty,max=120"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
	Role      string  `json:"role" validate:"max=40"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=190"`
	Password string `json:"password" validate:"required,min=8,max=120"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	res, err := h.auth.Register(r.Context(), middleware.GetActor(r), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
		Role:      req.Role,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), middleware.GetActor(r), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, res)
}

// Logout handles POST /auth/logout. Tokens are stateless; the sign-out is
// only recorded.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.GetActor(r)); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]bool{"logged_out": true})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		middleware.WriteError(w, r, apperr.Unauthorized("Not authenticated"))
		return
	}
	u, err := h.auth.Me(r.Context(), id.UserID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, u)
}
