// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the business rules of every module. Services
// own their SQL, run multi-table writes in one transaction and record an
// audit entry inside that same transaction.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/useragent"

	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

// Audit modules.
const (
	ModuleAuth       = "auth"
	ModuleUsers      = "users"
	ModuleSettings   = "settings"
	ModuleResidentes = "residentes"
	ModuleEnfermeria = "enfermeria"
	ModuleCocina     = "cocina"
	ModuleYoga       = "yoga"
)

// AuditRecord describes one mutation to be recorded.
type AuditRecord struct {
	Module   string
	Action   string
	Entity   string
	EntityID *int64
	Before   any
	After    any
}

// AuditService appends to and reads the audit log.
type AuditService struct {
	db  *store.DB
	now func() time.Time
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *store.DB) *AuditService {
	return &AuditService{db: db, now: store.Now}
}

// Record inserts one audit entry through ex, so it commits or rolls back
// together with the business write it describes. A failure is returned
// to the caller and aborts the surrounding transaction.
func (s *AuditService) Record(ctx context.Context, ex store.Executor, actor model.Actor, rec AuditRecord) error {
	before, err := model.MarshalRawJSON(rec.Before)
	if err != nil {
		return err
	}
	after, err := model.MarshalRawJSON(rec.After)
	if err != nil {
		return err
	}

	_, err = ex.Exec(ctx, `
		INSERT INTO audits
			(module, action, entity, entity_id, user_id, before_json, after_json, ip, user_agent, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Module, rec.Action, rec.Entity, rec.EntityID, actor.UserID,
		before, after,
		optString(truncate(actor.IP, 64)),
		optString(truncate(actor.UserAgent, 255)),
		optString(truncate(actor.RequestID, 64)),
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("recording audit %s.%s: %w", rec.Module, rec.Action, err)
	}
	return nil
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	Module string
	Action string
	Entity string
	UserID *int64
	Page   int
	Limit  int
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, f AuditFilter) (store.Page[model.AuditEntry], error) {
	paging := store.NewPaging(f.Page, f.Limit, store.DefaultLimit, store.MaxLimit)

	w := &store.Where{}
	w.AddIf(f.Module != "", "a.module = ?", f.Module)
	w.AddIf(f.Action != "", "a.action = ?", f.Action)
	w.AddIf(f.Entity != "", "a.entity = ?", f.Entity)
	if f.UserID != nil {
		w.Add("a.user_id = ?", *f.UserID)
	}

	var total int64
	if err := s.db.Get(ctx, &total, "SELECT COUNT(*) FROM audits a"+w.SQL(), w.Args()...); err != nil {
		return store.Page[model.AuditEntry]{}, fmt.Errorf("counting audits: %w", err)
	}

	var items []model.AuditEntry
	err := s.db.Select(ctx, &items, `
		SELECT a.id, a.module, a.action, a.entity, a.entity_id, a.user_id,
			a.before_json, a.after_json, a.ip, a.user_agent, a.request_id, a.created_at,
			u.email AS user_email, u.first_name AS user_first_name, u.last_name AS user_last_name
		FROM audits a
		LEFT JOIN users u ON u.id = a.user_id`+w.SQL()+`
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?`,
		append(w.Args(), paging.Limit, paging.Offset())...,
	)
	if err != nil {
		return store.Page[model.AuditEntry]{}, fmt.Errorf("listing audits: %w", err)
	}

	for i := range items {
		items[i].Client = clientInfo(items[i].UserAgent)
	}

	return store.NewPage(paging, total, items), nil
}

// clientInfo summarizes a stored user agent for display.
func clientInfo(ua *string) *model.ClientInfo {
	if ua == nil || *ua == "" {
		return nil
	}
	parsed := useragent.Parse(*ua)
	device := "desktop"
	switch {
	case parsed.Bot:
		device = "bot"
	case parsed.Tablet:
		device = "tablet"
	case parsed.Mobile:
		device = "mobile"
	case parsed.Name == "" && parsed.OS == "":
		device = "unknown"
	}
	return &model.ClientInfo{
		Browser: parsed.Name,
		OS:      parsed.OS,
		Device:  device,
	}
}
