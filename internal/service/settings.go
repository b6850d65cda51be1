// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

const settingsColumns = `user_id, theme, high_contrast, compact_mode, animations, dna_opacity, created_at, updated_at`

// Theme aliases sent by older clients.
const (
	themeAliasServimelDark = "servimel-dark"
	themeAliasHighContrast = "high-contrast"
)

const (
	settingsEntity    = "user_settings"
	opacityRangeIssue = "range_0.10_0.50"
	opacityEpsilon    = 1e-9
)

// SettingsInput carries a partial settings update.
type SettingsInput struct {
	Theme        *string
	HighContrast *bool
	CompactMode  *bool
	Animations   *bool
	DNAOpacity   *float64
}

// SettingsMode selects how an update treats out-of-range values.
type SettingsMode int

const (
	// SettingsStrict rejects unknown themes and out-of-range opacity, and
	// accepts theme aliases and the dim theme.
	SettingsStrict SettingsMode = iota
	// SettingsLenient clamps opacity and accepts only dark and light.
	SettingsLenient
)

// SettingsService reads and updates per-user UI preferences.
type SettingsService struct {
	db    *store.DB
	audit *AuditService
	now   func() time.Time
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(db *store.DB, audit *AuditService) *SettingsService {
	return &SettingsService{db: db, audit: audit, now: store.Now}
}

// insertDefaultSettings creates the settings row of a new user.
func insertDefaultSettings(ctx context.Context, ex store.Executor, userID int64, now time.Time) error {
	d := model.DefaultUserSettings(userID, now)
	_, err := ex.Exec(ctx,
		"INSERT INTO user_settings ("+settingsColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		d.UserID, d.Theme, d.HighContrast, d.CompactMode, d.Animations, d.DNAOpacity, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting default settings: %w", err)
	}
	return nil
}

// ensureSettings creates the default row when it is missing. Concurrent
// callers converge on a single row.
func (s *SettingsService) ensureSettings(ctx context.Context, ex store.Executor, userID int64) error {
	d := model.DefaultUserSettings(userID, s.now())
	_, err := ex.Exec(ctx,
		"INSERT INTO user_settings ("+settingsColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"+
			ex.Dialect().Upsert([]string{"user_id"}, []string{"user_id"}),
		d.UserID, d.Theme, d.HighContrast, d.CompactMode, d.Animations, d.DNAOpacity, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ensuring settings: %w", err)
	}
	return nil
}

func (s *SettingsService) load(ctx context.Context, ex store.Executor, userID int64) (*model.UserSettings, error) {
	var st model.UserSettings
	if err := getOr404(ctx, ex, &st, "Settings not found",
		"SELECT "+settingsColumns+" FROM user_settings WHERE user_id = ?", userID); err != nil {
		return nil, err
	}
	st.DNAOpacity = clampOpacity(st.DNAOpacity)
	return &st, nil
}

// Get returns the user's settings, creating defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID int64) (*model.UserSettings, error) {
	st, err := s.load(ctx, s.db, userID)
	if err == nil || !apperr.IsCode(err, apperr.CodeNotFound) {
		return st, err
	}
	if err := s.ensureSettings(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, userID)
}

// Update applies a partial update. An empty update returns the current
// settings without writing.
func (s *SettingsService) Update(ctx context.Context, actor model.Actor, mode SettingsMode, in SettingsInput) (*model.UserSettings, error) {
	userID := actor.ID()
	sets, args, err := settingsChanges(mode, in)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return s.Get(ctx, userID)
	}

	module, action := ModuleSettings, "update_me"
	if mode == SettingsLenient {
		module, action = settingsEntity, "update_me_settings"
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.UserSettings, error) {
		if err := s.ensureSettings(ctx, ex, userID); err != nil {
			return nil, err
		}
		before, err := s.load(ctx, ex, userID)
		if err != nil {
			return nil, err
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, s.now(), userID)
		if _, err := ex.Exec(ctx,
			"UPDATE user_settings SET "+strings.Join(sets, ", ")+" WHERE user_id = ?", args...); err != nil {
			return nil, fmt.Errorf("updating settings: %w", err)
		}

		after, err := s.load(ctx, ex, userID)
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: module, Action: action, Entity: settingsEntity, EntityID: &userID,
			Before: before, After: after,
		}); err != nil {
			return nil, err
		}
		return after, nil
	})
}

// settingsChanges validates in and returns the SET clauses to apply.
func settingsChanges(mode SettingsMode, in SettingsInput) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets, args = append(sets, col+" = ?"), append(args, v)
	}

	highContrast := in.HighContrast
	if in.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*in.Theme))
		allowed := []string{model.ThemeDark, model.ThemeLight}
		if mode == SettingsStrict {
			allowed = append(allowed, model.ThemeDim)
			switch theme {
			case themeAliasServimelDark:
				theme = model.ThemeDark
			case themeAliasHighContrast:
				theme = model.ThemeDark
				if highContrast == nil {
					highContrast = ptr(true)
				}
			}
		}
		if !slices.Contains(allowed, theme) {
			return nil, nil, apperr.Invalid("Invalid theme", "theme", apperr.IssueEnum)
		}
		set("theme", theme)
	}
	if highContrast != nil {
		set("high_contrast", *highContrast)
	}
	if in.CompactMode != nil {
		set("compact_mode", *in.CompactMode)
	}
	if in.Animations != nil {
		set("animations", *in.Animations)
	}
	if in.DNAOpacity != nil {
		v := *in.DNAOpacity
		if mode == SettingsStrict {
			if math.IsNaN(v) || v < model.MinDNAOpacity-opacityEpsilon || v > model.MaxDNAOpacity+opacityEpsilon {
				return nil, nil, apperr.New(apperr.CodeValidation, "dna_opacity out of range", http.StatusBadRequest).
					WithDetails([]apperr.FieldIssue{{Field: "dna_opacity", Issue: opacityRangeIssue}})
			}
		} else {
			v = clampOpacity(v)
		}
		set("dna_opacity", v)
	}
	return sets, args, nil
}

func clampOpacity(v float64) float64 {
	if math.IsNaN(v) {
		return model.MinDNAOpacity
	}
	return math.Min(model.MaxDNAOpacity, math.Max(model.MinDNAOpacity, v))
}
