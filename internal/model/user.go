// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain records shared by services and handlers:
// residents, nursing records, timeline events, audit entries, users and the
// JSON documents stored by the clinical modules.
package model

import (
	"slices"
	"strings"
	"time"
)

// User roles.
const (
	RoleAdmin        = "admin"
	RoleEnfermeria   = "enfermeria"
	RoleMedico       = "medico"
	RoleCocinero     = "cocinero"
	RoleYoga         = "yoga"
	RoleProfesor     = "profesor"
	RoleCoordinacion = "coordinacion"
)

// Roles lists every role an administrator may assign.
var Roles = []string{
	RoleAdmin,
	RoleEnfermeria,
	RoleMedico,
	RoleCocinero,
	RoleYoga,
	RoleProfesor,
	RoleCoordinacion,
}

// BootstrapRoles are the roles the very first registered user may request.
var BootstrapRoles = []string{RoleAdmin, RoleEnfermeria, RoleMedico}

// NormalizeRole trims and lower-cases a role for comparison.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// IsRole reports whether role is a known role.
func IsRole(role string) bool {
	return slices.Contains(Roles, NormalizeRole(role))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is an account able to sign in.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Role         string     `db:"role" json:"role"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"` // Never expose in JSON
	FirstName    *string    `db:"first_name" json:"first_name"`
	LastName     *string    `db:"last_name" json:"last_name"`
	Phone        *string    `db:"phone" json:"phone"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Themes accepted by user settings.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeDim   = "dim"
)

// Opacity bounds for the background decoration.
const (
	MinDNAOpacity     = 0.10
	MaxDNAOpacity     = 0.50
	DefaultDNAOpacity = 0.20
)

// UserSettings holds per-user UI preferences.
type UserSettings struct {
	UserID       int64     `db:"user_id" json:"user_id"`
	Theme        string    `db:"theme" json:"theme"`
	HighContrast bool      `db:"high_contrast" json:"high_contrast"`
	CompactMode  bool      `db:"compact_mode" json:"compact_mode"`
	Animations   bool      `db:"animations" json:"animations"`
	DNAOpacity   float64   `db:"dna_opacity" json:"dna_opacity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultUserSettings returns the settings created alongside a new user.
func DefaultUserSettings(userID int64, now time.Time) UserSettings {
	return UserSettings{
		UserID:     userID,
		Theme:      ThemeDark,
		Animations: true,
		DNAOpacity: DefaultDNAOpacity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
