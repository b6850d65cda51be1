// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
	"github.com/servimel/servimel-go/internal/validate"
)

const (
	sequenceColumns = `id, name, tone, minutes, items_json, note, is_active,
		created_by, updated_by, created_at, updated_at`
	weekPlanColumns = "resident_id, week_start, plan_json, updated_by, updated_at"

	msgSequenceNotFound = "Sequence not found"

	defaultSequenceLimit = 200
	maxSequenceLimit     = 500
	defaultSequenceMins  = 30
	planDays             = 7
)

// SequenceItemInput is one pose of a sequence.
type SequenceItemInput struct {
	ItemID  int64  `json:"itemId" validate:"gt=0"`
	Title   string `json:"title" validate:"required,max=120"`
	Minutes *int   `json:"minutes" validate:"omitempty,min=0,max=180"`
}

// SequenceInput creates or replaces a yoga sequence.
type SequenceInput struct {
	Name    string              `json:"name" validate:"min=2,max=80"`
	Tone    string              `json:"tone" validate:"oneof=suave medio intenso"`
	Minutes int                 `json:"minutes" validate:"min=5,max=180"`
	Items   []SequenceItemInput `json:"items" validate:"min=1,max=40,dive"`
	Note    *string             `json:"note"`
}

// normalize applies defaults and trims text before validation.
func (in *SequenceInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Tone = strings.ToLower(strings.TrimSpace(in.Tone))
	if in.Tone == "" {
		in.Tone = model.ToneSuave
	}
	if in.Minutes == 0 {
		in.Minutes = defaultSequenceMins
	}
	for i := range in.Items {
		in.Items[i].Title = strings.TrimSpace(in.Items[i].Title)
	}
	in.Note = trimPtr(in.Note)
}

func (in SequenceInput) items() model.YogaItems {
	out := make(model.YogaItems, 0, len(in.Items))
	for _, it := range in.Items {
		out = append(out, model.YogaItem{ItemID: it.ItemID, Title: it.Title, Minutes: it.Minutes})
	}
	return out
}

// PlanDayInput is one day of a week plan.
type PlanDayInput struct {
	DateISO    string  `json:"dateISO" validate:"isodate"`
	Time       *string `json:"time"`
	Minutes    *int    `json:"minutes" validate:"omitempty,min=0,max=240"`
	Intensity  *string `json:"intensity" validate:"omitempty,oneof=suave medio intenso"`
	SequenceID *string `json:"sequenceId"`
	Notes      *string `json:"notes"`
}

// WeekPlanInput is the body of a week plan upsert.
type WeekPlanInput struct {
	WeekStart string         `json:"weekStart" validate:"monday"`
	Days      []PlanDayInput `json:"days" validate:"len=7,dive"`
}

func (in *WeekPlanInput) normalize() {
	in.WeekStart = strings.TrimSpace(in.WeekStart)
	for i := range in.Days {
		if in.Days[i].Intensity != nil {
			in.Days[i].Intensity = ptr(strings.ToLower(strings.TrimSpace(*in.Days[i].Intensity)))
		}
	}
}

func (in WeekPlanInput) plan() model.YogaPlan {
	days := make([]model.YogaPlanDay, 0, len(in.Days))
	for _, d := range in.Days {
		days = append(days, model.YogaPlanDay{
			DateISO:    d.DateISO,
			Time:       d.Time,
			Minutes:    d.Minutes,
			Intensity:  d.Intensity,
			SequenceID: d.SequenceID,
			Notes:      d.Notes,
		})
	}
	return model.YogaPlan{Days: days}
}

// YogaService manages yoga sequences and weekly plans.
type YogaService struct {
	db    *store.DB
	audit *AuditService
	now   func() time.Time
}

// NewYogaService creates a new YogaService.
func NewYogaService(db *store.DB, audit *AuditService) *YogaService {
	return &YogaService{db: db, audit: audit, now: store.Now}
}

// ListSequences returns active sequences, most recently updated first.
// limit defaults to 200 and is capped at 500.
func (s *YogaService) ListSequences(ctx context.Context, limit int) ([]model.YogaSequence, error) {
	if limit <= 0 {
		limit = defaultSequenceLimit
	}
	limit = min(limit, maxSequenceLimit)

	out := []model.YogaSequence{}
	if err := s.db.Select(ctx, &out,
		"SELECT "+sequenceColumns+" FROM yoga_sequences WHERE "+store.Active("")+
			" ORDER BY updated_at DESC, id DESC LIMIT ?",
		limit,
	); err != nil {
		return nil, fmt.Errorf("listing sequences: %w", err)
	}
	return out, nil
}

func getSequence(ctx context.Context, ex store.Executor, id int64) (*model.YogaSequence, error) {
	var seq model.YogaSequence
	if err := getOr404(ctx, ex, &seq, msgSequenceNotFound,
		"SELECT "+sequenceColumns+" FROM yoga_sequences WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &seq, nil
}

// CreateSequence stores a new sequence and returns its id.
func (s *YogaService) CreateSequence(ctx context.Context, actor model.Actor, in SequenceInput) (int64, error) {
	in.normalize()
	if err := validate.Struct(in, apperr.WhereBody); err != nil {
		return 0, err
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (int64, error) {
		now := s.now()
		res, err := ex.Exec(ctx, `
			INSERT INTO yoga_sequences
				(name, tone, minutes, items_json, note, is_active, created_by, updated_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`,
			in.Name, in.Tone, in.Minutes, in.items(), in.Note, actor.UserID, actor.UserID, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting sequence: %w", err)
		}
		id, err := lastInsertID(res)
		if err != nil {
			return 0, err
		}

		created, err := getSequence(ctx, ex, id)
		if err != nil {
			return 0, err
		}
		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleYoga, Action: "sequence_create", Entity: "yoga_sequences", EntityID: &id,
			After: created,
		}); err != nil {
			return 0, err
		}
		return id, nil
	})
}

// UpdateSequence replaces a sequence. Updating a deleted sequence
// reactivates it.
func (s *YogaService) UpdateSequence(ctx context.Context, actor model.Actor, id int64, in SequenceInput) error {
	in.normalize()
	if err := validate.Struct(in, apperr.WhereBody); err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(ctx context.Context, ex store.Executor) error {
		before, err := getSequence(ctx, ex, id)
		if err != nil {
			return err
		}

		if _, err := ex.Exec(ctx, `
			UPDATE yoga_sequences
			SET name = ?, tone = ?, minutes = ?, items_json = ?, note = ?,
				updated_by = ?, is_active = 1, updated_at = ?
			WHERE id = ?`,
			in.Name, in.Tone, in.Minutes, in.items(), in.Note, actor.UserID, s.now(), id,
		); err != nil {
			return fmt.Errorf("updating sequence: %w", err)
		}

		after, err := getSequence(ctx, ex, id)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleYoga, Action: "sequence_update", Entity: "yoga_sequences", EntityID: &id,
			Before: before, After: after,
		})
	})
}

// DeleteSequence deactivates a sequence. Plans that reference it keep
// their sequenceId.
func (s *YogaService) DeleteSequence(ctx context.Context, actor model.Actor, id int64) error {
	return s.db.WithTx(ctx, func(ctx context.Context, ex store.Executor) error {
		before, err := getSequence(ctx, ex, id)
		if err != nil {
			return err
		}

		if _, err := ex.Exec(ctx,
			"UPDATE yoga_sequences SET is_active = 0, updated_by = ?, updated_at = ? WHERE id = ?",
			actor.UserID, s.now(), id,
		); err != nil {
			return fmt.Errorf("deleting sequence: %w", err)
		}

		return s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleYoga, Action: "sequence_delete", Entity: "yoga_sequences", EntityID: &id,
			Before: map[string]any{"name": before.Name, "is_active": before.IsActive},
			After:  map[string]any{"is_active": false},
		})
	})
}

// checkMonday validates a week start used as a query parameter.
func checkMonday(weekStart string) error {
	t, ok := model.ParseISODate(weekStart)
	if !ok {
		return apperr.Invalid("weekStart must be a YYYY-MM-DD date", "weekStart", apperr.IssueRegex)
	}
	if t.Weekday() != time.Monday {
		return apperr.Invalid("weekStart must be a Monday", "weekStart", "monday")
	}
	return nil
}

// GetWeekPlan returns the plan of a resident for the week, or nil when
// none was saved.
func (s *YogaService) GetWeekPlan(ctx context.Context, residentID int64, weekStart string) (*model.YogaWeekPlan, error) {
	if err := checkMonday(weekStart); err != nil {
		return nil, err
	}
	var p model.YogaWeekPlan
	err := s.db.Get(ctx, &p,
		"SELECT "+weekPlanColumns+" FROM yoga_week_plans WHERE resident_id = ? AND week_start = ? AND "+store.Active(""),
		residentID, weekStart)
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading week plan: %w", err)
	}
	return &p, nil
}

// UpsertWeekPlan saves the seven-day plan of a resident for the week.
func (s *YogaService) UpsertWeekPlan(ctx context.Context, actor model.Actor, residentID int64, in WeekPlanInput) error {
	in.normalize()
	if err := checkMonday(in.WeekStart); err != nil {
		return err
	}
	if len(in.Days) != planDays {
		return apperr.Invalid("Plan must have 7 days", "days", apperr.IssueMin)
	}
	if err := validate.Struct(in, apperr.WhereBody); err != nil {
		return err
	}

	upsert := `
		INSERT INTO yoga_week_plans (resident_id, week_start, plan_json, is_active, updated_by, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)` +
		s.db.Dialect().Upsert(
			[]string{"resident_id", "week_start"},
			[]string{"plan_json", "is_active", "updated_by", "updated_at"},
		)

	return s.db.WithTx(ctx, func(ctx context.Context, ex store.Executor) error {
		if err := ensureActiveResident(ctx, ex, residentID); err != nil {
			return err
		}
		if _, err := ex.Exec(ctx, upsert,
			residentID, in.WeekStart, in.plan(), actor.UserID, s.now(),
		); err != nil {
			return fmt.Errorf("saving week plan: %w", err)
		}
		return s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleYoga, Action: "weekplan_upsert", Entity: "yoga_week_plans",
			After: map[string]any{"residentId": residentID, "weekStartISO": in.WeekStart},
		})
	})
}
