// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql/driver"
	"time"
)

// Yoga tones, shared by sequences and plan days.
const (
	ToneSuave   = "suave"
	ToneMedio   = "medio"
	ToneIntenso = "intenso"
)

// YogaItem is one pose or exercise of a sequence.
type YogaItem struct {
	ItemID  int64  `json:"itemId"`
	Title   string `json:"title"`
	Minutes *int   `json:"minutes,omitempty"`
}

// YogaItems is stored as JSON in items_json.
type YogaItems []YogaItem

// Scan implements sql.Scanner. Unreadable values decode as an empty list.
func (it *YogaItems) Scan(src any) error {
	if err := scanDocument(it, src, func() YogaItems { return YogaItems{} }); err != nil {
		return err
	}
	if *it == nil {
		*it = YogaItems{}
	}
	return nil
}

// Value implements driver.Valuer.
func (it YogaItems) Value() (driver.Value, error) {
	if it == nil {
		it = YogaItems{}
	}
	return documentValue([]YogaItem(it))
}

// YogaSequence is a reusable routine. Deleting one only deactivates it.
type YogaSequence struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Tone      string    `db:"tone" json:"tone"`
	Minutes   int       `db:"minutes" json:"minutes"`
	Items     YogaItems `db:"items_json" json:"items"`
	Note      *string   `db:"note" json:"note"`
	IsActive  bool      `db:"is_active" json:"-"`
	CreatedBy *int64    `db:"created_by" json:"createdBy"`
	UpdatedBy *int64    `db:"updated_by" json:"updatedBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// YogaPlanDay is the session planned for one day.
type YogaPlanDay struct {
	DateISO    string  `json:"dateISO"`
	Time       *string `json:"time,omitempty"`
	Minutes    *int    `json:"minutes,omitempty"`
	Intensity  *string `json:"intensity,omitempty"`
	SequenceID *string `json:"sequenceId"`
	Notes      *string `json:"notes,omitempty"`
}

// YogaPlan is the seven-day document stored in plan_json.
type YogaPlan struct {
	Days []YogaPlanDay `json:"days"`
}

// Scan implements sql.Scanner. Unreadable plans decode as {days: []}.
func (p *YogaPlan) Scan(src any) error {
	if err := scanDocument(p, src, func() YogaPlan { return YogaPlan{} }); err != nil {
		return err
	}
	if p.Days == nil {
		p.Days = []YogaPlanDay{}
	}
	return nil
}

// Value implements driver.Valuer.
func (p YogaPlan) Value() (driver.Value, error) {
	if p.Days == nil {
		p.Days = []YogaPlanDay{}
	}
	return documentValue(struct {
		Days []YogaPlanDay `json:"days"`
	}{p.Days})
}

// YogaWeekPlan is a resident's plan for the week starting WeekStart, a Monday.
type YogaWeekPlan struct {
	ResidentID int64     `db:"resident_id" json:"residentId"`
	WeekStart  string    `db:"week_start" json:"weekStartISO"`
	Plan       YogaPlan  `db:"plan_json" json:"plan"`
	UpdatedBy  *int64    `db:"updated_by" json:"updatedBy"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAtISO"`
}
