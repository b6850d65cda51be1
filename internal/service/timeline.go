// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

// Timeline range presets.
const (
	PresetToday = "hoy"
	Preset7d    = "7d"
	PresetAll   = "all"
)

// allHistory is how far back the "all" preset and open ranges reach.
const allHistory = 3650 * 24 * time.Hour

// NewTimelineEvent is the input to Append.
type NewTimelineEvent struct {
	ResidentID int64
	UserID     *int64
	EventType  string
	RefTable   string
	RefID      int64
	Severity   string
	Title      string
	Summary    *string
	OccurredAt time.Time
}

// TimelineService maintains the per-resident event feed.
type TimelineService struct {
	db  *store.DB
	now func() time.Time
}

// NewTimelineService creates a new TimelineService.
func NewTimelineService(db *store.DB) *TimelineService {
	return &TimelineService{db: db, now: store.Now}
}

// Append inserts one event through ex and returns its id.
func (s *TimelineService) Append(ctx context.Context, ex store.Executor, ev NewTimelineEvent) (int64, error) {
	res, err := ex.Exec(ctx, `
		INSERT INTO timeline_events
			(resident_id, user_id, event_type, ref_table, ref_id, severity, title, summary, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ResidentID, ev.UserID, ev.EventType, ev.RefTable, ev.RefID,
		ev.Severity, ev.Title, ev.Summary, ev.OccurredAt.UTC(), s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("appending timeline event: %w", err)
	}
	return lastInsertID(res)
}

// TimelineQuery selects a window of a resident's feed. From and To
// override Preset when either is set.
type TimelineQuery struct {
	Preset string
	From   *time.Time
	To     *time.Time
	Type   string
	Page   int
	Limit  int
}

// Range resolves the query to a closed [from, to] interval.
func (q TimelineQuery) Range(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	if q.From != nil || q.To != nil {
		from, to := now.Add(-allHistory), now
		if q.From != nil {
			from = q.From.UTC()
		}
		if q.To != nil {
			to = q.To.UTC()
		}
		return from, to
	}

	switch q.Preset {
	case PresetToday:
		start := store.StartOfDayUTC(now)
		return start, start.AddDate(0, 0, 1)
	case Preset7d:
		return now.AddDate(0, 0, -7), now
	default:
		return now.Add(-allHistory), now
	}
}

const timelineColumns = `
	t.id, t.resident_id, t.user_id, t.event_type, t.ref_table, t.ref_id,
	t.severity, t.title, t.summary, t.occurred_at, t.created_at,
	u.email AS user_email, u.first_name AS user_first_name, u.last_name AS user_last_name`

// ListByResident returns a page of the resident's events, newest first.
func (s *TimelineService) ListByResident(ctx context.Context, residentID int64, q TimelineQuery) (store.Page[model.TimelineEvent], error) {
	paging := store.NewPaging(q.Page, q.Limit, store.DefaultLimit, store.MaxLimit)
	from, to := q.Range(s.now())

	w := &store.Where{}
	w.Add("t.resident_id = ?", residentID)
	w.Add("t.occurred_at >= ?", from)
	w.Add("t.occurred_at <= ?", to)
	w.AddIf(q.Type != "", "t.event_type = ?", q.Type)

	var total int64
	if err := s.db.Get(ctx, &total, "SELECT COUNT(*) FROM timeline_events t"+w.SQL(), w.Args()...); err != nil {
		return store.Page[model.TimelineEvent]{}, fmt.Errorf("counting timeline: %w", err)
	}

	var items []model.TimelineEvent
	err := s.db.Select(ctx, &items, `
		SELECT`+timelineColumns+`
		FROM timeline_events t
		LEFT JOIN users u ON u.id = t.user_id`+w.SQL()+`
		ORDER BY t.occurred_at DESC, t.id DESC
		LIMIT ? OFFSET ?`,
		append(w.Args(), paging.Limit, paging.Offset())...,
	)
	if err != nil {
		return store.Page[model.TimelineEvent]{}, fmt.Errorf("listing timeline: %w", err)
	}

	return store.NewPage(paging, total, items), nil
}

// Get returns one event with its detail row expanded. A dangling or
// unknown reference yields a nil detail rather than an error.
func (s *TimelineService) Get(ctx context.Context, eventID int64) (*model.TimelineEventDetail, error) {
	var ev model.TimelineEvent
	err := getOr404(ctx, s.db, &ev, "Timeline event not found", `
		SELECT`+timelineColumns+`
		FROM timeline_events t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE t.id = ?`, eventID)
	if err != nil {
		return nil, err
	}

	out := &model.TimelineEventDetail{TimelineEvent: ev}
	if ev.RefTable == nil || ev.RefID == nil {
		return out, nil
	}

	detail, err := s.loadDetail(ctx, *ev.RefTable, *ev.RefID)
	if err != nil {
		return nil, err
	}
	out.Detail = detail
	return out, nil
}

func (s *TimelineService) loadDetail(ctx context.Context, table string, id int64) (any, error) {
	var (
		dest  any
		query string
	)
	switch table {
	case model.RefTableVitals:
		dest, query = &model.Vital{}, "SELECT "+vitalColumns+" FROM vitals WHERE id = ?"
	case model.RefTableMedications:
		dest, query = &model.Medication{}, "SELECT "+medicationColumns+" FROM medications WHERE id = ?"
	case model.RefTableObservations:
		dest, query = &model.Observation{}, "SELECT "+observationColumns+" FROM observations WHERE id = ?"
	default:
		return nil, nil
	}

	if err := s.db.Get(ctx, dest, query, id); err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading %s detail: %w", table, err)
	}
	return dest, nil
}
