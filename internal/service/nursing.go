// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

const (
	vitalColumns = `id, resident_id, user_id, taken_at, temp_c, bp_systolic, bp_diastolic,
		hr, rr, spo2, pain, notes, created_at`
	medicationColumns = `id, resident_id, user_id, drug_name, dose, route, status,
		scheduled_at, administered_at, notes, created_at, updated_at`
	observationColumns = `id, resident_id, user_id, type, observed_at, text,
		resolved_at, resolved_by_user_id, created_at, updated_at`
)

// observationSummaryRunes bounds the timeline summary of an observation.
const observationSummaryRunes = 180

// VitalInput is a new set of vital signs.
type VitalInput struct {
	TakenAt     *time.Time
	TempC       *float64
	BPSystolic  *int64
	BPDiastolic *int64
	HR          *int64
	RR          *int64
	SpO2        *int64
	Pain        *int64
	Notes       *string
}

// MedicationInput is a new medication entry.
type MedicationInput struct {
	DrugName       string
	Dose           *string
	Route          *string
	Status         string
	ScheduledAt    *time.Time
	AdministeredAt *time.Time
	Notes          *string
}

// ObservationInput is a new observation.
type ObservationInput struct {
	Type       string
	ObservedAt *time.Time
	Text       string
}

// VitalRecord is a stored vital with the id of its timeline event.
type VitalRecord struct {
	model.Vital
	TimelineEventID int64 `json:"timeline_event_id"`
}

// MedicationRecord is a stored medication with the id of its timeline event.
type MedicationRecord struct {
	model.Medication
	TimelineEventID int64 `json:"timeline_event_id"`
}

// ObservationRecord is a stored observation with the id of its timeline event.
type ObservationRecord struct {
	model.Observation
	TimelineEventID int64 `json:"timeline_event_id"`
}

// ResolveResult is returned by ResolveObservation.
type ResolveResult struct {
	Resolved bool  `json:"resolved"`
	ID       int64 `json:"id"`
}

// TodayCounts is the nursing activity since UTC midnight.
type TodayCounts struct {
	DateUTC string `json:"date_utc"`
	Counts  struct {
		Vitals       int64 `json:"vitals"`
		Medications  int64 `json:"medications"`
		Observations int64 `json:"observations"`
	} `json:"counts"`
}

// NursingService records vitals, medications and observations. Each
// record is written together with its timeline event and audit entry.
type NursingService struct {
	db       *store.DB
	audit    *AuditService
	timeline *TimelineService
	dash     *DashboardService
	now      func() time.Time
}

// NewNursingService creates a new NursingService.
func NewNursingService(db *store.DB, audit *AuditService, timeline *TimelineService) *NursingService {
	return &NursingService{db: db, audit: audit, timeline: timeline, now: store.Now}
}

// UseDashboard makes every committed write drop the cached dashboard KPIs.
func (s *NursingService) UseDashboard(d *DashboardService) {
	s.dash = d
}

// Today counts the records created since UTC midnight.
func (s *NursingService) Today(ctx context.Context) (*TodayCounts, error) {
	start := store.StartOfDayUTC(s.now())
	out := &TodayCounts{DateUTC: start.Format(time.DateOnly)}

	if err := s.db.Get(ctx, &out.Counts.Vitals,
		"SELECT COUNT(*) FROM vitals WHERE taken_at >= ?", start); err != nil {
		return nil, fmt.Errorf("counting vitals: %w", err)
	}
	if err := s.db.Get(ctx, &out.Counts.Medications,
		"SELECT COUNT(*) FROM medications WHERE scheduled_at >= ? OR (administered_at IS NOT NULL AND administered_at >= ?)",
		start, start); err != nil {
		return nil, fmt.Errorf("counting medications: %w", err)
	}
	if err := s.db.Get(ctx, &out.Counts.Observations,
		"SELECT COUNT(*) FROM observations WHERE observed_at >= ?", start); err != nil {
		return nil, fmt.Errorf("counting observations: %w", err)
	}
	return out, nil
}

// CreateVital records vital signs for an active resident.
func (s *NursingService) CreateVital(ctx context.Context, actor model.Actor, residentID int64, in VitalInput) (*VitalRecord, error) {
	return kpiTx(ctx, s.db, s.dash, func(ctx context.Context, ex store.Executor) (*VitalRecord, error) {
		if err := ensureActiveResident(ctx, ex, residentID); err != nil {
			return nil, err
		}

		now := s.now()
		takenAt := orNow(in.TakenAt, now)
		res, err := ex.Exec(ctx, `
			INSERT INTO vitals
				(resident_id, user_id, taken_at, temp_c, bp_systolic, bp_diastolic, hr, rr, spo2, pain, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			residentID, actor.UserID, takenAt, in.TempC, in.BPSystolic, in.BPDiastolic,
			in.HR, in.RR, in.SpO2, in.Pain, trimPtr(in.Notes), now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting vital: %w", err)
		}
		id, err := lastInsertID(res)
		if err != nil {
			return nil, err
		}

		rec := &VitalRecord{}
		if err := ex.Get(ctx, &rec.Vital, "SELECT "+vitalColumns+" FROM vitals WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("reloading vital: %w", err)
		}

		rec.TimelineEventID, err = s.timeline.Append(ctx, ex, NewTimelineEvent{
			ResidentID: residentID,
			UserID:     actor.UserID,
			EventType:  model.EventTypeVital,
			RefTable:   model.RefTableVitals,
			RefID:      id,
			Severity:   model.SeverityInfo,
			Title:      "Signos vitales registrados",
			Summary:    optString(vitalSummary(in)),
			OccurredAt: takenAt,
		})
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleEnfermeria, Action: "create_vital", Entity: "vitals", EntityID: &id,
			After: rec,
		}); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// vitalSummary lists the headline measurements that were provided.
func vitalSummary(in VitalInput) string {
	var parts []string
	if in.TempC != nil {
		parts = append(parts, "Temp "+strconv.FormatFloat(*in.TempC, 'f', -1, 64)+"°C")
	}
	if in.HR != nil {
		parts = append(parts, fmt.Sprintf("FC %d", *in.HR))
	}
	if in.SpO2 != nil {
		parts = append(parts, fmt.Sprintf("SpO2 %d%%", *in.SpO2))
	}
	if in.BPSystolic != nil && in.BPDiastolic != nil {
		parts = append(parts, fmt.Sprintf("PA %d/%d", *in.BPSystolic, *in.BPDiastolic))
	}
	return strings.Join(parts, " · ")
}

// CreateMedication records a medication for an active resident.
func (s *NursingService) CreateMedication(ctx context.Context, actor model.Actor, residentID int64, in MedicationInput) (*MedicationRecord, error) {
	drug := strings.TrimSpace(in.DrugName)
	if drug == "" {
		return nil, apperr.Validation(apperr.FieldIssue{Field: "drug_name", Where: apperr.WhereBody, Issue: apperr.IssueRequired})
	}

	return kpiTx(ctx, s.db, s.dash, func(ctx context.Context, ex store.Executor) (*MedicationRecord, error) {
		if err := ensureActiveResident(ctx, ex, residentID); err != nil {
			return nil, err
		}

		now := s.now()
		scheduledAt := orNow(in.ScheduledAt, now)
		var administeredAt *time.Time
		if in.AdministeredAt != nil {
			administeredAt = ptr(in.AdministeredAt.UTC().Truncate(time.Second))
		}
		status := model.ResolveMedicationStatus(in.Status, administeredAt)
		dose, route := trimPtr(in.Dose), trimPtr(in.Route)

		res, err := ex.Exec(ctx, `
			INSERT INTO medications
				(resident_id, user_id, drug_name, dose, route, status,
				 scheduled_at, administered_at, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			residentID, actor.UserID, drug, dose, route, status,
			scheduledAt, administeredAt, trimPtr(in.Notes), now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting medication: %w", err)
		}
		id, err := lastInsertID(res)
		if err != nil {
			return nil, err
		}

		rec := &MedicationRecord{}
		if err := ex.Get(ctx, &rec.Medication, "SELECT "+medicationColumns+" FROM medications WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("reloading medication: %w", err)
		}

		severity := model.SeverityInfo
		if status == model.MedicationLate || status == model.MedicationSuspended {
			severity = model.SeverityWarning
		}
		occurredAt := scheduledAt
		if administeredAt != nil {
			occurredAt = *administeredAt
		}

		summary := []string{drug}
		if dose != nil {
			summary = append(summary, *dose)
		}
		if route != nil {
			summary = append(summary, *route)
		}
		summary = append(summary, status)

		rec.TimelineEventID, err = s.timeline.Append(ctx, ex, NewTimelineEvent{
			ResidentID: residentID,
			UserID:     actor.UserID,
			EventType:  model.EventTypeMedication,
			RefTable:   model.RefTableMedications,
			RefID:      id,
			Severity:   severity,
			Title:      "Medicación",
			Summary:    ptr(strings.Join(summary, " · ")),
			OccurredAt: occurredAt,
		})
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleEnfermeria, Action: "create_medication", Entity: "medications", EntityID: &id,
			After: rec,
		}); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// CreateObservation records an observation for an active resident. Alerts
// stay open until resolved.
func (s *NursingService) CreateObservation(ctx context.Context, actor model.Actor, residentID int64, in ObservationInput) (*ObservationRecord, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.Validation(apperr.FieldIssue{Field: "text", Where: apperr.WhereBody, Issue: apperr.IssueRequired})
	}

	return kpiTx(ctx, s.db, s.dash, func(ctx context.Context, ex store.Executor) (*ObservationRecord, error) {
		if err := ensureActiveResident(ctx, ex, residentID); err != nil {
			return nil, err
		}

		now := s.now()
		observedAt := orNow(in.ObservedAt, now)
		kind := model.NormalizeObservationType(in.Type)

		res, err := ex.Exec(ctx, `
			INSERT INTO observations
				(resident_id, user_id, type, observed_at, text, resolved_at, resolved_by_user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
			residentID, actor.UserID, kind, observedAt, text, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting observation: %w", err)
		}
		id, err := lastInsertID(res)
		if err != nil {
			return nil, err
		}

		rec := &ObservationRecord{}
		if err := ex.Get(ctx, &rec.Observation, "SELECT "+observationColumns+" FROM observations WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("reloading observation: %w", err)
		}

		title, severity := "Observación", model.SeverityInfo
		if kind == model.ObservationAlerta {
			title, severity = "Observación (ALERTA)", model.SeverityCritical
		}

		rec.TimelineEventID, err = s.timeline.Append(ctx, ex, NewTimelineEvent{
			ResidentID: residentID,
			UserID:     actor.UserID,
			EventType:  model.EventTypeObservation,
			RefTable:   model.RefTableObservations,
			RefID:      id,
			Severity:   severity,
			Title:      title,
			Summary:    ptr(truncate(text, observationSummaryRunes)),
			OccurredAt: observedAt,
		})
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleEnfermeria, Action: "create_observation", Entity: "observations", EntityID: &id,
			After: rec,
		}); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// ResolveObservation closes an observation. Resolving an already
// resolved observation succeeds without writing. The timeline event of
// the observation is left untouched.
func (s *NursingService) ResolveObservation(ctx context.Context, actor model.Actor, id int64) (*ResolveResult, error) {
	return kpiTx(ctx, s.db, s.dash, func(ctx context.Context, ex store.Executor) (*ResolveResult, error) {
		var before model.Observation
		if err := getOr404(ctx, ex, &before, "Observation not found",
			"SELECT "+observationColumns+" FROM observations WHERE id = ?", id); err != nil {
			return nil, err
		}
		if before.IsResolved() {
			return &ResolveResult{Resolved: true, ID: id}, nil
		}

		now := s.now()
		if _, err := ex.Exec(ctx,
			"UPDATE observations SET resolved_at = ?, resolved_by_user_id = ?, updated_at = ? WHERE id = ?",
			now, actor.UserID, now, id,
		); err != nil {
			return nil, fmt.Errorf("resolving observation: %w", err)
		}

		var after model.Observation
		if err := ex.Get(ctx, &after, "SELECT "+observationColumns+" FROM observations WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("reloading observation: %w", err)
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleEnfermeria, Action: "resolve_observation", Entity: "observations", EntityID: &id,
			Before: before, After: after,
		}); err != nil {
			return nil, err
		}
		return &ResolveResult{Resolved: true, ID: id}, nil
	})
}

// MarkLateMedications flips pending medications scheduled before
// now-lateAfter to late. Each medication is updated in its own transaction
// with a system audit entry; failures are joined and the rest still run.
func (s *NursingService) MarkLateMedications(ctx context.Context, lateAfter time.Duration) (int, error) {
	cutoff := s.now().Add(-lateAfter)

	var ids []int64
	if err := s.db.Select(ctx, &ids, `
		SELECT id FROM medications
		WHERE status = ? AND scheduled_at < ?
		ORDER BY scheduled_at, id`,
		model.MedicationPending, cutoff,
	); err != nil {
		return 0, fmt.Errorf("listing overdue medications: %w", err)
	}

	marked := 0
	var errs []error
	for _, id := range ids {
		changed, err := s.markLate(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("medication %d: %w", id, err))
			continue
		}
		if changed {
			marked++
		}
	}
	return marked, errors.Join(errs...)
}

func (s *NursingService) markLate(ctx context.Context, id int64) (bool, error) {
	return kpiTx(ctx, s.db, s.dash, func(ctx context.Context, ex store.Executor) (bool, error) {
		res, err := ex.Exec(ctx,
			"UPDATE medications SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			model.MedicationLate, s.now(), id, model.MedicationPending,
		)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return false, err
		}
		return true, s.audit.Record(ctx, ex, model.SystemActor(), AuditRecord{
			Module: ModuleEnfermeria, Action: "mark_late", Entity: "medications", EntityID: &id,
			Before: map[string]string{"status": model.MedicationPending},
			After:  map[string]string{"status": model.MedicationLate},
		})
	})
}

// orNow returns t in UTC at second precision, or now when t is nil.
func orNow(t *time.Time, now time.Time) time.Time {
	if t == nil {
		return now
	}
	return t.UTC().Truncate(time.Second)
}
