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

// UsersHandler serves /users: the caller's own profile and settings, and
// account management for administrators.
type UsersHandler struct {
	users    *service.UserService
	settings *service.SettingsService
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(users *service.UserService, settings *service.SettingsService) *UsersHandler {
	return &UsersHandler{users: users, settings: settings}
}

// Routes registers the user routes. Callers must be authenticated.
func (h *UsersHandler) Routes(r chi.Router) {
	r.Get(RouteMe, h.Me)
	r.Put(RouteMe, h.UpdateMe)
	r.Put(RouteMe+"/password", h.ChangePassword)
	r.Get(RouteMe+"/settings", h.MySettings)
	r.Put(RouteMe+"/settings", h.UpdateMySettings)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(model.RoleAdmin))
		r.Get(RouteRoot, h.List)
		r.Post(RouteRoot, h.Create)
		r.Put(RouteParamID, h.Update)
	})
}

type profileRequest struct {
	Email     *string `json:"email" validate:"omitempty,max=190"`
	FirstName *string `json:"first_name" validate:"omitempty,max=120"`
	LastName  *string `json:"last_name" validate:"omitempty,max=120"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,min=8,max=120"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=120"`
}

type userQuery struct {
	Q        string `query:"q" validate:"max=190"`
	Role     string `query:"role" validate:"max=40"`
	IsActive *bool  `query:"is_active"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}

type createUserRequest struct {
	Email     string  `json:"email" validate:"required,max=190"`
	Password  string  `json:"password" validate:"required,min=8,max=120"`
	Role      string  `json:"role" validate:"required,max=40"`
	FirstName *string `json:"first_name" validate:"omitempty,max=120"`
	LastName  *string `json:"last_name" validate:"omitempty,max=120"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
}

type updateUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,max=40"`
	IsActive flag    `json:"is_active"`
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), middleware.GetActor(r).ID())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, u)
}

// UpdateMe handles PUT /users/me.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	u, err := h.users.UpdateMe(r.Context(), middleware.GetActor(r), service.ProfileInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, u)
}

// ChangePassword handles PUT /users/me/password.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := h.users.ChangePassword(r.Context(), middleware.GetActor(r), req.CurrentPassword, req.NewPassword); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, map[string]bool{"changed": true})
}

// MySettings handles GET /users/me/settings.
func (h *UsersHandler) MySettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context(), middleware.GetActor(r).ID())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, st)
}

// UpdateMySettings handles PUT /users/me/settings. Opacity is clamped
// instead of rejected and only the dark and light themes are accepted.
func (h *UsersHandler) UpdateMySettings(w http.ResponseWriter, r *http.Request) {
	updateSettings(w, r, h.settings, service.SettingsLenient)
}

// List handles GET /users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	var q userQuery
	if err := bindQuery(r, &q); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	page, err := h.users.List(r.Context(), service.UserFilter(q))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, page)
}

// Create handles POST /users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	u, err := h.users.Create(r.Context(), middleware.GetActor(r), service.AdminUserInput{
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, u)
}

// Update handles PUT /users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	u, err := h.users.Update(r.Context(), middleware.GetActor(r), id, service.AdminUpdateInput{
		Role:     req.Role,
		IsActive: req.IsActive.ptr(),
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, u)
}
