// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"
)

// Timeline event types.
const (
	EventTypeVital       = "vital"
	EventTypeMedication  = "medication"
	EventTypeObservation = "observation"
)

// Timeline severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Detail tables a timeline event may reference.
const (
	RefTableVitals       = "vitals"
	RefTableMedications  = "medications"
	RefTableObservations = "observations"
)

// TimelineEvent is one entry of a resident's clinical feed. It is written
// in the same transaction as the detail row it references and never
// rewritten afterwards.
type TimelineEvent struct {
	ID         int64     `db:"id" json:"id"`
	ResidentID int64     `db:"resident_id" json:"resident_id"`
	UserID     *int64    `db:"user_id" json:"user_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	RefTable   *string   `db:"ref_table" json:"ref_table"`
	RefID      *int64    `db:"ref_id" json:"ref_id"`
	Severity   string    `db:"severity" json:"severity"`
	Title      string    `db:"title" json:"title"`
	Summary    *string   `db:"summary" json:"summary"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	UserEmail     *string `db:"user_email" json:"user_email"`
	UserFirstName *string `db:"user_first_name" json:"user_first_name"`
	UserLastName  *string `db:"user_last_name" json:"user_last_name"`
}

// TimelineEventDetail is an event with its referenced detail row expanded.
// Detail is nil when the reference is unknown or the row no longer exists.
type TimelineEventDetail struct {
	TimelineEvent
	Detail any `json:"detail"`
}
