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
)

const residentColumns = `id, first_name, last_name, document_number, room, status,
	emergency_contact_name, emergency_contact_phone, notes, is_active, deleted_at,
	created_at, updated_at`

const msgResidentNotFound = "Resident not found"

// ResidentFilter narrows a resident listing. IsActive nil means active only.
type ResidentFilter struct {
	Q        string
	Status   string
	IsActive *bool
	Page     int
	Limit    int
}

// ResidentInput carries resident fields. On update only non-nil fields
// are written.
type ResidentInput struct {
	FirstName             *string
	LastName              *string
	DocumentNumber        *string
	Room                  *string
	Status                *string
	EmergencyContactName  *string
	EmergencyContactPhone *string
	Notes                 *string
}

// ResidentService manages resident records.
type ResidentService struct {
	db    *store.DB
	audit *AuditService
	dash  *DashboardService
	now   func() time.Time
}

// NewResidentService creates a new ResidentService.
func NewResidentService(db *store.DB, audit *AuditService) *ResidentService {
	return &ResidentService{db: db, audit: audit, now: store.Now}
}

// UseDashboard makes admissions and discharges drop the cached dashboard KPIs.
func (s *ResidentService) UseDashboard(d *DashboardService) {
	s.dash = d
}

// List returns residents ordered by last and first name.
func (s *ResidentService) List(ctx context.Context, f ResidentFilter) (store.Page[model.Resident], error) {
	paging := store.NewPaging(f.Page, f.Limit, store.DefaultLimit, store.MaxLimit)

	w := &store.Where{}
	if q := strings.TrimSpace(f.Q); q != "" {
		like := "%" + q + "%"
		w.Add("(first_name LIKE ? OR last_name LIKE ? OR document_number LIKE ? OR room LIKE ?)",
			like, like, like, like)
	}
	w.AddIf(f.Status != "", "status = ?", f.Status)
	if f.IsActive == nil {
		w.Active("")
	} else {
		w.Add("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := s.db.Get(ctx, &total, "SELECT COUNT(*) FROM residents"+w.SQL(), w.Args()...); err != nil {
		return store.Page[model.Resident]{}, fmt.Errorf("counting residents: %w", err)
	}

	var items []model.Resident
	err := s.db.Select(ctx, &items,
		"SELECT "+residentColumns+" FROM residents"+w.SQL()+
			" ORDER BY last_name ASC, first_name ASC, id ASC LIMIT ? OFFSET ?",
		append(w.Args(), paging.Limit, paging.Offset())...,
	)
	if err != nil {
		return store.Page[model.Resident]{}, fmt.Errorf("listing residents: %w", err)
	}

	return store.NewPage(paging, total, items), nil
}

// Get returns a resident regardless of its active flag.
func (s *ResidentService) Get(ctx context.Context, id int64) (*model.Resident, error) {
	return s.get(ctx, s.db, id)
}

func (s *ResidentService) get(ctx context.Context, ex store.Executor, id int64) (*model.Resident, error) {
	var r model.Resident
	if err := getOr404(ctx, ex, &r, msgResidentNotFound,
		"SELECT "+residentColumns+" FROM residents WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &r, nil
}

// ensureActiveResident fails with NOT_FOUND unless the resident exists
// and has not been deactivated.
func ensureActiveResident(ctx context.Context, ex store.Executor, id int64) error {
	var found int64
	return getOr404(ctx, ex, &found, msgResidentNotFound,
		"SELECT id FROM residents WHERE id = ? AND "+store.Active(""), id)
}

// Create inserts a resident and audits it.
func (s *ResidentService) Create(ctx context.Context, actor model.Actor, in ResidentInput) (*model.Resident, error) {
	first, last := strings.TrimSpace(deref(in.FirstName)), strings.TrimSpace(deref(in.LastName))
	var issues []apperr.FieldIssue
	if first == "" {
		issues = append(issues, apperr.FieldIssue{Field: "first_name", Where: apperr.WhereBody, Issue: apperr.IssueRequired})
	}
	if last == "" {
		issues = append(issues, apperr.FieldIssue{Field: "last_name", Where: apperr.WhereBody, Issue: apperr.IssueRequired})
	}
	if len(issues) > 0 {
		return nil, apperr.Validation(issues...)
	}

	return kpiTx(ctx, s.db, s.dash, func(ctx context.Context, ex store.Executor) (*model.Resident, error) {
		now := s.now()
		res, err := ex.Exec(ctx, `
			INSERT INTO residents
				(first_name, last_name, document_number, room, status,
				 emergency_contact_name, emergency_contact_phone, notes,
				 is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			first, last, trimPtr(in.DocumentNumber), trimPtr(in.Room),
			model.NormalizeResidentStatus(deref(in.Status)),
			trimPtr(in.EmergencyContactName), trimPtr(in.EmergencyContactPhone), trimPtr(in.Notes),
			now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting resident: %w", err)
		}
		id, err := lastInsertID(res)
		if err != nil {
			return nil, err
		}

		created, err := s.get(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleResidentes, Action: "create", Entity: "residents", EntityID: &id,
			After: created,
		}); err != nil {
			return nil, err
		}
		return created, nil
	})
}

// Update applies the non-nil fields of in. An empty update returns the
// current row without writing.
func (s *ResidentService) Update(ctx context.Context, actor model.Actor, id int64, in ResidentInput) (*model.Resident, error) {
	var (
		sets []string
		args []any
	)
	required := func(col string, v *string) error {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			return apperr.Validation(apperr.FieldIssue{Field: col, Where: apperr.WhereBody, Issue: apperr.IssueRequired})
		}
		sets, args = append(sets, col+" = ?"), append(args, t)
		return nil
	}
	optional := func(col string, v *string) {
		if v != nil {
			sets, args = append(sets, col+" = ?"), append(args, trimPtr(v))
		}
	}

	if err := required("first_name", in.FirstName); err != nil {
		return nil, err
	}
	if err := required("last_name", in.LastName); err != nil {
		return nil, err
	}
	optional("document_number", in.DocumentNumber)
	optional("room", in.Room)
	if in.Status != nil {
		sets, args = append(sets, "status = ?"), append(args, model.NormalizeResidentStatus(*in.Status))
	}
	optional("emergency_contact_name", in.EmergencyContactName)
	optional("emergency_contact_phone", in.EmergencyContactPhone)
	optional("notes", in.Notes)

	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.Resident, error) {
		before, err := s.get(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, s.now(), id)
		if _, err := ex.Exec(ctx, "UPDATE residents SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return nil, fmt.Errorf("updating resident: %w", err)
		}

		after, err := s.get(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleResidentes, Action: "update", Entity: "residents", EntityID: &id,
			Before: before, After: after,
		}); err != nil {
			return nil, err
		}
		return after, nil
	})
}

// Deactivate soft-deletes a resident. Deactivating an inactive resident
// succeeds without writing.
func (s *ResidentService) Deactivate(ctx context.Context, actor model.Actor, id int64) error {
	err := s.db.WithTx(ctx, func(ctx context.Context, ex store.Executor) error {
		before, err := s.get(ctx, ex, id)
		if err != nil {
			return err
		}
		if !before.IsActive {
			return nil
		}

		now := s.now()
		if _, err := ex.Exec(ctx,
			"UPDATE residents SET is_active = 0, deleted_at = ?, updated_at = ? WHERE id = ?",
			now, now, id,
		); err != nil {
			return fmt.Errorf("deactivating resident: %w", err)
		}

		after, err := s.get(ctx, ex, id)
		if err != nil {
			return err
		}

		return s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleResidentes, Action: "deactivate", Entity: "residents", EntityID: &id,
			Before: before, After: after,
		})
	})
	if err == nil {
		s.dash.InvalidateKPIs(ctx)
	}
	return err
}
