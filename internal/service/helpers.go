// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/store"
)

// optString trims s and returns nil when nothing is left.
func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// trimPtr trims an optional string, mapping blank values to nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return optString(*s)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr[T any](v T) *T {
	return &v
}

// lastInsertID reads the generated key of an INSERT.
func lastInsertID(res interface{ LastInsertId() (int64, error) }) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return id, nil
}

// getOr404 loads one row, translating no rows into NOT_FOUND.
func getOr404(ctx context.Context, ex store.Executor, dest any, notFound string, query string, args ...any) error {
	if err := ex.Get(ctx, dest, query, args...); err != nil {
		if store.IsNoRows(err) {
			return apperr.NotFound(notFound)
		}
		return err
	}
	return nil
}
