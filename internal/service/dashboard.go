// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/servimel/servimel-go/internal/cache"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

const (
	kpisCacheKey = "dashboard:kpis"
	quickLimit   = 10
)

// DashboardKPIs are the headline counters of the home screen.
type DashboardKPIs struct {
	ResidentesActivos int64 `json:"residentes_activos"`
	RegistrosHoy      int64 `json:"registros_hoy"`
	AlertasPendientes int64 `json:"alertas_pendientes"`
}

// QuickItem is one recent warning or critical event.
type QuickItem struct {
	ID         int64     `json:"id"`
	Fecha      time.Time `json:"fecha"`
	Titulo     string    `json:"titulo"`
	Severity   string    `json:"severity"`
	ResidentID int64     `json:"residenteId"`
}

// DashboardQuick lists the latest alerts.
type DashboardQuick struct {
	UltimasAlertas []QuickItem `json:"ultimas_alertas"`
}

// DashboardService computes home screen aggregates.
type DashboardService struct {
	db   *store.DB
	kpis *cache.TypedCache[DashboardKPIs]
	now  func() time.Time
}

// NewDashboardService creates a new DashboardService. KPIs are cached in c
// for ttl.
func NewDashboardService(db *store.DB, c cache.Cache, ttl time.Duration) *DashboardService {
	return &DashboardService{
		db:   db,
		kpis: cache.NewTypedCache[DashboardKPIs](c, ttl),
		now:  store.Now,
	}
}

// InvalidateKPIs drops the cached counters so the next read recomputes
// them. A nil service does nothing.
func (s *DashboardService) InvalidateKPIs(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.kpis.Delete(ctx, kpisCacheKey)
}

// kpiTx runs fn in a transaction and drops the cached KPIs once it commits.
func kpiTx[T any](ctx context.Context, db *store.DB, dash *DashboardService, fn func(context.Context, store.Executor) (T, error)) (T, error) {
	v, err := store.InTx(ctx, db, fn)
	if err == nil {
		dash.InvalidateKPIs(ctx)
	}
	return v, err
}

// KPIs returns the counters, served from cache when fresh.
func (s *DashboardService) KPIs(ctx context.Context) (*DashboardKPIs, error) {
	return s.kpis.GetOrSet(ctx, kpisCacheKey, func() (*DashboardKPIs, error) {
		return s.computeKPIs(ctx)
	})
}

func (s *DashboardService) computeKPIs(ctx context.Context) (*DashboardKPIs, error) {
	start := store.StartOfDayUTC(s.now())
	out := &DashboardKPIs{}

	if err := s.db.Get(ctx, &out.ResidentesActivos,
		"SELECT COUNT(*) FROM residents WHERE "+store.Active("")); err != nil {
		return nil, fmt.Errorf("counting residents: %w", err)
	}

	var vitals, meds, obs int64
	if err := s.db.Get(ctx, &vitals, "SELECT COUNT(*) FROM vitals WHERE taken_at >= ?", start); err != nil {
		return nil, fmt.Errorf("counting vitals: %w", err)
	}
	if err := s.db.Get(ctx, &meds,
		"SELECT COUNT(*) FROM medications WHERE scheduled_at >= ? OR (administered_at IS NOT NULL AND administered_at >= ?)",
		start, start); err != nil {
		return nil, fmt.Errorf("counting medications: %w", err)
	}
	if err := s.db.Get(ctx, &obs, "SELECT COUNT(*) FROM observations WHERE observed_at >= ?", start); err != nil {
		return nil, fmt.Errorf("counting observations: %w", err)
	}
	out.RegistrosHoy = vitals + meds + obs

	var openAlerts, pendingMeds int64
	if err := s.db.Get(ctx, &openAlerts,
		"SELECT COUNT(*) FROM observations WHERE type = ? AND resolved_at IS NULL",
		model.ObservationAlerta); err != nil {
		return nil, fmt.Errorf("counting open alerts: %w", err)
	}
	if err := s.db.Get(ctx, &pendingMeds,
		"SELECT COUNT(*) FROM medications WHERE status IN (?, ?)",
		model.MedicationPending, model.MedicationLate); err != nil {
		return nil, fmt.Errorf("counting pending medications: %w", err)
	}
	out.AlertasPendientes = openAlerts + pendingMeds

	return out, nil
}

type quickRow struct {
	ID         int64     `db:"id"`
	ResidentID int64     `db:"resident_id"`
	Title      string    `db:"title"`
	Summary    *string   `db:"summary"`
	Severity   string    `db:"severity"`
	OccurredAt time.Time `db:"occurred_at"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
}

// Quick returns the latest warning and critical events of active residents.
func (s *DashboardService) Quick(ctx context.Context) (*DashboardQuick, error) {
	var rows []quickRow
	err := s.db.Select(ctx, &rows, `
		SELECT t.id, t.resident_id, t.title, t.summary, t.severity, t.occurred_at,
			r.first_name, r.last_name
		FROM timeline_events t
		JOIN residents r ON r.id = t.resident_id
		WHERE `+store.Active("r")+` AND t.severity IN (?, ?)
		ORDER BY t.occurred_at DESC, t.id DESC
		LIMIT ?`,
		model.SeverityWarning, model.SeverityCritical, quickLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent alerts: %w", err)
	}

	out := &DashboardQuick{UltimasAlertas: make([]QuickItem, 0, len(rows))}
	for _, r := range rows {
		out.UltimasAlertas = append(out.UltimasAlertas, QuickItem{
			ID:         r.ID,
			Fecha:      r.OccurredAt.UTC(),
			Titulo:     quickTitle(r),
			Severity:   r.Severity,
			ResidentID: r.ResidentID,
		})
	}
	return out, nil
}

// quickTitle renders "Name — Title: summary", dropping absent parts.
func quickTitle(r quickRow) string {
	title := r.Title
	if title == "" {
		title = "Alerta"
	}
	if r.Summary != nil && *r.Summary != "" {
		title += ": " + *r.Summary
	}
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if name == "" {
		return title
	}
	return name + " — " + title
}
