// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql/driver"
	"regexp"
	"time"
)

// Menu statuses.
const (
	MenuDraft     = "draft"
	MenuPublished = "published"
)

// MenuSchemaV1 tags the current menu document layout.
const MenuSchemaV1 = "kitchen-v1"

// DefaultMenuTitle is used when a menu is created without a title.
const DefaultMenuTitle = "Menú semanal"

// MealKeys are the meals of a menu day, in serving order.
var MealKeys = []string{"desayuno", "almuerzo", "merienda", "cena"}

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseISODate parses a YYYY-MM-DD calendar date.
func ParseISODate(s string) (time.Time, bool) {
	if !isoDateRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AddDaysISO shifts a YYYY-MM-DD date by n days.
func AddDaysISO(s string, n int) string {
	t, ok := ParseISODate(s)
	if !ok {
		return s
	}
	return t.AddDate(0, 0, n).Format(time.DateOnly)
}

// Meal is one meal slot of a menu day.
type Meal struct {
	Main    string   `json:"main"`
	Side    string   `json:"side"`
	Drink   string   `json:"drink"`
	Dessert string   `json:"dessert"`
	Notes   string   `json:"notes"`
	Tags    []string `json:"tags"`
}

// MenuDay holds the meals of one day of the week.
type MenuDay struct {
	DayIndex int             `json:"dayIndex"`
	DateISO  string          `json:"dateIso"`
	Meals    map[string]Meal `json:"meals"`
}

// MenuDocument is the versioned weekly menu stored in menu_json.
type MenuDocument struct {
	Schema    string    `json:"schema,omitempty"`
	WeekStart string    `json:"weekStart,omitempty"`
	MealKeys  []string  `json:"mealKeys,omitempty"`
	Days      []MenuDay `json:"days,omitempty"`
}

// NewBlankMenu returns an empty seven-day menu starting at weekStart.
func NewBlankMenu(weekStart string) MenuDocument {
	days := make([]MenuDay, 7)
	for i := range days {
		meals := make(map[string]Meal, len(MealKeys))
		for _, k := range MealKeys {
			meals[k] = Meal{Tags: []string{}}
		}
		days[i] = MenuDay{
			DayIndex: i,
			DateISO:  AddDaysISO(weekStart, i),
			Meals:    meals,
		}
	}
	return MenuDocument{
		Schema:    MenuSchemaV1,
		WeekStart: weekStart,
		MealKeys:  append([]string(nil), MealKeys...),
		Days:      days,
	}
}

// IsEmpty reports whether the document carries no days.
func (d MenuDocument) IsEmpty() bool {
	return len(d.Days) == 0
}

// Scan implements sql.Scanner. Unreadable documents decode as empty.
func (d *MenuDocument) Scan(src any) error {
	return scanDocument(d, src, func() MenuDocument { return MenuDocument{} })
}

// Value implements driver.Valuer.
func (d MenuDocument) Value() (driver.Value, error) {
	return documentValue(d)
}

// KitchenMenu is a weekly menu. Published menus are read-only.
type KitchenMenu struct {
	ID        int64        `db:"id" json:"id"`
	WeekStart string       `db:"week_start" json:"weekStart"`
	WeekEnd   string       `db:"week_end" json:"weekEnd"`
	Status    string       `db:"status" json:"status"`
	Title     *string      `db:"title" json:"title"`
	MenuJSON  MenuDocument `db:"menu_json" json:"menuJson"`
	CreatedBy *int64       `db:"created_by" json:"createdBy"`
	UpdatedBy *int64       `db:"updated_by" json:"updatedBy"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"`
}

// IsPublished reports whether the menu can no longer be edited.
func (m *KitchenMenu) IsPublished() bool {
	return m.Status == MenuPublished
}

// MenuAssignment links a resident to a menu for one week.
type MenuAssignment struct {
	ID            *int64     `db:"id" json:"id"`
	ResidentID    int64      `db:"resident_id" json:"residentId"`
	WeekStart     string     `db:"week_start" json:"weekStart"`
	MenuID        *int64     `db:"menu_id" json:"menuId"`
	DietType      string     `db:"diet_type" json:"dietType"`
	ResidentNotes string     `db:"resident_notes" json:"residentNotes"`
	UpdatedBy     *int64     `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}
