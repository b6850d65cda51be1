// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the Servimel API and the
// router that wires them to the middleware chain.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/cache"
	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
)

// Services are the domain services the handlers delegate to.
type Services struct {
	Audit     *service.AuditService
	Timeline  *service.TimelineService
	Residents *service.ResidentService
	Nursing   *service.NursingService
	Auth      *service.AuthService
	Users     *service.UserService
	Settings  *service.SettingsService
	Dashboard *service.DashboardService
	Kitchen   *service.KitchenService
	Yoga      *service.YogaService
}

// Handlers groups one handler per module.
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Users     *UsersHandler
	Residents *ResidentsHandler
	Nursing   *NursingHandler
	History   *HistoryHandler
	Audit     *AuditHandler
	Settings  *SettingsHandler
	Dashboard *DashboardHandler
	Kitchen   *KitchenHandler
	Yoga      *YogaHandler
}

// NewHandlers builds every module handler. kv is reported by the health
// endpoints and may be nil.
func NewHandlers(s Services, db Pinger, kv cache.Cache, version string) Handlers {
	return Handlers{
		Health:    NewHealthHandler(db, kv, version),
		Auth:      NewAuthHandler(s.Auth),
		Users:     NewUsersHandler(s.Users, s.Settings),
		Residents: NewResidentsHandler(s.Residents),
		Nursing:   NewNursingHandler(s.Nursing),
		History:   NewHistoryHandler(s.Timeline),
		Audit:     NewAuditHandler(s.Audit),
		Settings:  NewSettingsHandler(s.Settings),
		Dashboard: NewDashboardHandler(s.Dashboard),
		Kitchen:   NewKitchenHandler(s.Kitchen),
		Yoga:      NewYogaHandler(s.Yoga),
	}
}

// RouterConfig holds the cross-cutting settings of the router.
type RouterConfig struct {
	Tokens      middleware.TokenVerifier
	CORSOrigins []string
	// Development disables HSTS.
	Development bool
	// LoginRateLimit is the number of register and login attempts allowed
	// per client IP per minute. Zero disables the limit.
	LoginRateLimit int
	// Metrics is optional; without it /metrics is not served.
	Metrics *middleware.Metrics
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestContext)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.Development)))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, apperr.New(apperr.CodeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed))
	})

	r.Get(RouteHealth, h.Health.Health)
	r.Get(RouteHealth+"/ready", h.Health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, RouteMetrics, cfg.Metrics.Handler())
	}

	authn := middleware.Authenticate(cfg.Tokens)
	limiter := middleware.NewIPRateLimiter(cfg.LoginRateLimit)

	r.Route(RouteAuth, func(r chi.Router) {
		r.With(limiter.Middleware).Post("/register", h.Auth.Register)
		r.With(limiter.Middleware).Post("/login", h.Auth.Login)
		r.With(authn).Post("/logout", h.Auth.Logout)
		r.With(authn).Get(RouteMe, h.Auth.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Route(RouteUsers, h.Users.Routes)
		r.Route(RouteResidents, h.Residents.Routes)
		r.Route(RouteNursing, h.Nursing.Routes)
		r.Route(RouteHistory, h.History.Routes)
		r.Route(RouteAudit, h.Audit.Routes)
		r.Route(RouteSettings, h.Settings.Routes)
		r.Route(RouteDashboard, h.Dashboard.Routes)
		r.Route(RouteKitchen, h.Kitchen.Routes)
		r.Route(RouteYoga, h.Yoga.Routes)
	})

	return r
}
