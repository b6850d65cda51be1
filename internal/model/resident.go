// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// Resident statuses.
const (
	ResidentEstable     = "estable"
	ResidentObservacion = "observacion"
	ResidentCritico     = "critico"
)

var residentStatuses = []string{ResidentEstable, ResidentObservacion, ResidentCritico}

// NormalizeResidentStatus maps unknown or empty statuses to estable.
func NormalizeResidentStatus(s string) string {
	if slices.Contains(residentStatuses, s) {
		return s
	}
	return ResidentEstable
}

// SoftDelete is embedded by records that are deactivated instead of
// removed. Inactive rows stay readable but are hidden from default lists.
type SoftDelete struct {
	IsActive  bool       `db:"is_active" json:"is_active"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at"`
}

// Resident is a person living in the facility.
type Resident struct {
	ID                    int64   `db:"id" json:"id"`
	FirstName             string  `db:"first_name" json:"first_name"`
	LastName              string  `db:"last_name" json:"last_name"`
	DocumentNumber        *string `db:"document_number" json:"document_number"`
	Room                  *string `db:"room" json:"room"`
	Status                string  `db:"status" json:"status"`
	EmergencyContactName  *string `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone *string `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	Notes                 *string `db:"notes" json:"notes"`
	SoftDelete
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the non-empty name parts.
func (r *Resident) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}
