// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// Medication statuses.
const (
	MedicationAdministered = "administered"
	MedicationPending      = "pending"
	MedicationLate         = "late"
	MedicationSuspended    = "suspended"
)

var medicationStatuses = []string{MedicationAdministered, MedicationPending, MedicationLate, MedicationSuspended}

// ResolveMedicationStatus keeps an allowed status and otherwise derives
// one: administered when an administration time is known, else pending.
func ResolveMedicationStatus(status string, administeredAt *time.Time) string {
	if slices.Contains(medicationStatuses, status) {
		return status
	}
	if administeredAt != nil {
		return MedicationAdministered
	}
	return MedicationPending
}

// Observation types.
const (
	ObservationNormal = "normal"
	ObservationAlerta = "alerta"
)

// NormalizeObservationType maps anything but alerta to normal.
func NormalizeObservationType(t string) string {
	if t == ObservationAlerta {
		return ObservationAlerta
	}
	return ObservationNormal
}

// Vital is one set of vital-sign measurements.
type Vital struct {
	ID          int64     `db:"id" json:"id"`
	ResidentID  int64     `db:"resident_id" json:"resident_id"`
	UserID      *int64    `db:"user_id" json:"user_id"`
	TakenAt     time.Time `db:"taken_at" json:"taken_at"`
	TempC       *float64  `db:"temp_c" json:"temp_c"`
	BPSystolic  *int64    `db:"bp_systolic" json:"bp_systolic"`
	BPDiastolic *int64    `db:"bp_diastolic" json:"bp_diastolic"`
	HR          *int64    `db:"hr" json:"hr"`
	RR          *int64    `db:"rr" json:"rr"`
	SpO2        *int64    `db:"spo2" json:"spo2"`
	Pain        *int64    `db:"pain" json:"pain"`
	Notes       *string   `db:"notes" json:"notes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Medication is a scheduled or administered dose.
type Medication struct {
	ID             int64      `db:"id" json:"id"`
	ResidentID     int64      `db:"resident_id" json:"resident_id"`
	UserID         *int64     `db:"user_id" json:"user_id"`
	DrugName       string     `db:"drug_name" json:"drug_name"`
	Dose           *string    `db:"dose" json:"dose"`
	Route          *string    `db:"route" json:"route"`
	Status         string     `db:"status" json:"status"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at"`
	AdministeredAt *time.Time `db:"administered_at" json:"administered_at"`
	Notes          *string    `db:"notes" json:"notes"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Observation is a free-text note, optionally flagged as an alert that
// stays open until resolved.
type Observation struct {
	ID               int64      `db:"id" json:"id"`
	ResidentID       int64      `db:"resident_id" json:"resident_id"`
	UserID           *int64     `db:"user_id" json:"user_id"`
	Type             string     `db:"type" json:"type"`
	ObservedAt       time.Time  `db:"observed_at" json:"observed_at"`
	Text             string     `db:"text" json:"text"`
	ResolvedAt       *time.Time `db:"resolved_at" json:"resolved_at"`
	ResolvedByUserID *int64     `db:"resolved_by_user_id" json:"resolved_by_user_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IsResolved reports whether the observation has been closed.
func (o *Observation) IsResolved() bool {
	return o.ResolvedAt != nil
}
