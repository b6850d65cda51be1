// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"
)

// Actor identifies who performed a mutation and from where. A nil UserID
// marks a system action.
type Actor struct {
	UserID    *int64
	Role      string
	IP        string
	UserAgent string
	RequestID string
}

// SystemActor returns the actor used by background jobs.
func SystemActor() Actor {
	return Actor{UserAgent: "system"}
}

// ID returns the acting user id or zero for system actions.
func (a Actor) ID() int64 {
	if a.UserID == nil {
		return 0
	}
	return *a.UserID
}

// AuditEntry is an immutable record of a mutation. Entries are only ever
// inserted.
type AuditEntry struct {
	ID         int64     `db:"id" json:"id"`
	Module     string    `db:"module" json:"module"`
	Action     string    `db:"action" json:"action"`
	Entity     string    `db:"entity" json:"entity"`
	EntityID   *int64    `db:"entity_id" json:"entity_id"`
	UserID     *int64    `db:"user_id" json:"user_id"`
	BeforeJSON RawJSON   `db:"before_json" json:"before_json"`
	AfterJSON  RawJSON   `db:"after_json" json:"after_json"`
	IP         *string   `db:"ip" json:"ip"`
	UserAgent  *string   `db:"user_agent" json:"user_agent"`
	RequestID  *string   `db:"request_id" json:"request_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	UserEmail     *string `db:"user_email" json:"user_email"`
	UserFirstName *string `db:"user_first_name" json:"user_first_name"`
	UserLastName  *string `db:"user_last_name" json:"user_last_name"`

	Client *ClientInfo `db:"-" json:"client,omitempty"`
}

// ClientInfo is derived from the stored user agent when listing entries.
type ClientInfo struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Device  string `json:"device"`
}
