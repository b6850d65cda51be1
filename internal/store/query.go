// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"strings"
	"time"
)

// Default and maximum page sizes for list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Where accumulates AND-ed predicates with their arguments.
type Where struct {
	clauses []string
	args    []any
}

// Add appends a predicate. Its placeholders must match args.
func (w *Where) Add(clause string, args ...any) *Where {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
	return w
}

// AddIf appends the predicate only when cond holds.
func (w *Where) AddIf(cond bool, clause string, args ...any) *Where {
	if cond {
		w.Add(clause, args...)
	}
	return w
}

// Active restricts the query to rows that are not soft-deleted.
func (w *Where) Active(alias string) *Where {
	return w.Add(Active(alias))
}

// SQL renders the predicate list, or an empty string when there is none.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the bound arguments in clause order.
func (w *Where) Args() []any {
	return append([]any(nil), w.args...)
}

// Active is the shared soft-delete predicate.
func Active(alias string) string {
	if alias == "" {
		return "is_active = 1"
	}
	return alias + ".is_active = 1"
}

// Paging is a clamped page request.
type Paging struct {
	Page  int
	Limit int
}

// NewPaging clamps page to at least 1 and limit into [1, max], using def
// when limit is not positive.
func NewPaging(page, limit, def, max int) Paging {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if limit < 1 {
		limit = 1
	}
	return Paging{Page: page, Limit: limit}
}

// Offset returns the row offset of the page.
func (p Paging) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of a list result.
type Page[T any] struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

// NewPage builds a page, never serializing items as null.
func NewPage[T any](p Paging, total int64, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Page: p.Page, Limit: p.Limit, Total: total, Items: items}
}

// Now returns the current UTC time at second precision, the resolution
// every timestamp column is stored with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// StartOfDayUTC returns midnight UTC of the day containing t.
func StartOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
