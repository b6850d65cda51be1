// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import "github.com/servimel/servimel-go/internal/model"

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteMe is the caller's own resource.
	RouteMe = "/me"

	// RouteHealth is the liveness endpoint.
	RouteHealth = "/health"
	// RouteMetrics is the Prometheus scrape endpoint.
	RouteMetrics = "/metrics"

	// RouteAuth is the authentication module prefix.
	RouteAuth = "/auth"
	// RouteUsers is the user accounts module prefix.
	RouteUsers = "/users"
	// RouteResidents is the residents module prefix.
	RouteResidents = "/residentes"
	// RouteNursing is the nursing module prefix.
	RouteNursing = "/enfermeria"
	// RouteHistory is the clinical timeline module prefix.
	RouteHistory = "/historial"
	// RouteAudit is the audit log module prefix.
	RouteAudit = "/auditoria"
	// RouteSettings is the UI settings module prefix.
	RouteSettings = "/settings"
	// RouteDashboard is the dashboard module prefix.
	RouteDashboard = "/dashboard"
	// RouteKitchen is the kitchen module prefix.
	RouteKitchen = "/api/cocina"
	// RouteYoga is the yoga module prefix.
	RouteYoga = "/yoga"
)

// URL parameter names.
const (
	paramID         = "id"
	paramResidentID = "residentId"
	paramEventID    = "eventId"
)

// Role sets shared by several route groups.
var (
	clinicalRoles    = []string{model.RoleAdmin, model.RoleEnfermeria, model.RoleMedico}
	residentEditors  = []string{model.RoleAdmin, model.RoleEnfermeria}
	kitchenViewRoles = []string{model.RoleAdmin, model.RoleMedico, model.RoleEnfermeria, model.RoleCocinero}
	kitchenEditRoles = []string{model.RoleAdmin, model.RoleCocinero}
	yogaViewRoles    = []string{
		model.RoleAdmin, model.RoleMedico, model.RoleEnfermeria,
		model.RoleYoga, model.RoleProfesor, model.RoleCoordinacion,
	}
	yogaEditRoles = []string{
		model.RoleAdmin, model.RoleMedico,
		model.RoleYoga, model.RoleProfesor, model.RoleCoordinacion,
	}
)
