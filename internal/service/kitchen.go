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

const (
	menuColumns = `id, week_start, week_end, status, title, menu_json,
		created_by, updated_by, created_at, updated_at`
	assignmentColumns = `id, resident_id, week_start, menu_id,
		COALESCE(diet_type, '') AS diet_type, COALESCE(resident_notes, '') AS resident_notes,
		updated_by, updated_at`

	msgMenuNotFound = "Menú no encontrado"

	menuTitleMax     = 120
	dietTypeMax      = 80
	residentNotesMax = 240
)

// MenuInput creates or replaces a weekly menu.
type MenuInput struct {
	WeekStart string
	WeekEnd   *string
	Title     *string
	MenuJSON  *model.MenuDocument
	// DuplicateFromMenuID copies the document of another menu on create.
	DuplicateFromMenuID int64
}

// AssignmentInput is one resident row of a weekly assignment save.
type AssignmentInput struct {
	ResidentID    int64
	MenuID        *int64
	DietType      *string
	ResidentNotes *string
}

// SaveResult reports how many assignments were written.
type SaveResult struct {
	Saved int `json:"saved"`
}

// ViewerData is the menu a resident gets for one week.
type ViewerData struct {
	Assignment model.MenuAssignment `json:"assignment"`
	Menu       *model.KitchenMenu   `json:"menu"`
}

// KitchenService manages weekly menus and their assignment to residents.
type KitchenService struct {
	db    *store.DB
	audit *AuditService
	now   func() time.Time
}

// NewKitchenService creates a new KitchenService.
func NewKitchenService(db *store.DB, audit *AuditService) *KitchenService {
	return &KitchenService{db: db, audit: audit, now: store.Now}
}

// checkWeek validates a YYYY-MM-DD week boundary.
func checkWeek(field, value string) error {
	if _, ok := model.ParseISODate(value); !ok {
		return apperr.Invalid(field+" must be a YYYY-MM-DD date", field, apperr.IssueRegex)
	}
	return nil
}

// weekBounds validates weekStart and resolves weekEnd, which defaults to
// six days after weekStart.
func weekBounds(in MenuInput) (string, string, error) {
	start := strings.TrimSpace(in.WeekStart)
	if err := checkWeek("weekStart", start); err != nil {
		return "", "", err
	}
	end := strings.TrimSpace(deref(in.WeekEnd))
	if end == "" {
		return start, model.AddDaysISO(start, 6), nil
	}
	if err := checkWeek("weekEnd", end); err != nil {
		return "", "", err
	}
	return start, end, nil
}

func menuTitle(title *string) *string {
	t := trimPtr(title)
	if t == nil {
		return nil
	}
	return ptr(truncate(*t, menuTitleMax))
}

// ListMenus returns the menus of a week, published first.
func (s *KitchenService) ListMenus(ctx context.Context, weekStart string) ([]model.KitchenMenu, error) {
	if err := checkWeek("weekStart", weekStart); err != nil {
		return nil, err
	}
	menus := []model.KitchenMenu{}
	if err := s.db.Select(ctx, &menus,
		"SELECT "+menuColumns+" FROM kitchen_weekly_menus WHERE week_start = ? ORDER BY status DESC, id DESC",
		weekStart,
	); err != nil {
		return nil, fmt.Errorf("listing menus: %w", err)
	}
	return menus, nil
}

// GetMenu returns one menu.
func (s *KitchenService) GetMenu(ctx context.Context, id int64) (*model.KitchenMenu, error) {
	return getMenu(ctx, s.db, id)
}

func getMenu(ctx context.Context, ex store.Executor, id int64) (*model.KitchenMenu, error) {
	var m model.KitchenMenu
	if err := getOr404(ctx, ex, &m, msgMenuNotFound,
		"SELECT "+menuColumns+" FROM kitchen_weekly_menus WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMenu inserts a draft menu. The document is blank unless
// DuplicateFromMenuID names a menu to copy.
func (s *KitchenService) CreateMenu(ctx context.Context, actor model.Actor, in MenuInput) (*model.KitchenMenu, error) {
	start, end, err := weekBounds(in)
	if err != nil {
		return nil, err
	}
	title := menuTitle(in.Title)
	if title == nil {
		title = ptr(model.DefaultMenuTitle)
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.KitchenMenu, error) {
		doc := model.NewBlankMenu(start)
		if in.DuplicateFromMenuID > 0 {
			var src model.MenuDocument
			if err := getOr404(ctx, ex, &src, "Menu to duplicate not found",
				"SELECT menu_json FROM kitchen_weekly_menus WHERE id = ?", in.DuplicateFromMenuID); err != nil {
				return nil, err
			}
			if !src.IsEmpty() {
				src.WeekStart = start
				doc = src
			}
		}

		now := s.now()
		res, err := ex.Exec(ctx, `
			INSERT INTO kitchen_weekly_menus
				(week_start, week_end, status, title, menu_json, created_by, updated_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			start, end, model.MenuDraft, title, doc, actor.UserID, actor.UserID, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting menu: %w", err)
		}
		id, err := lastInsertID(res)
		if err != nil {
			return nil, err
		}

		created, err := getMenu(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleCocina, Action: "menu_create", Entity: "kitchen_weekly_menus", EntityID: &id,
			After: created,
		}); err != nil {
			return nil, err
		}
		return created, nil
	})
}

// UpdateMenu replaces the week, title and document of a draft menu.
// Published menus are rejected with MENU_PUBLISHED.
func (s *KitchenService) UpdateMenu(ctx context.Context, actor model.Actor, id int64, in MenuInput) (*model.KitchenMenu, error) {
	start, end, err := weekBounds(in)
	if err != nil {
		return nil, err
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.KitchenMenu, error) {
		before, err := getMenu(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if before.IsPublished() {
			return nil, apperr.Conflict(apperr.CodeMenuPublished, "Published menus cannot be edited")
		}

		doc := model.NewBlankMenu(start)
		if in.MenuJSON != nil && !in.MenuJSON.IsEmpty() {
			doc = *in.MenuJSON
		}

		if _, err := ex.Exec(ctx, `
			UPDATE kitchen_weekly_menus
			SET week_start = ?, week_end = ?, title = ?, menu_json = ?, updated_by = ?, updated_at = ?
			WHERE id = ?`,
			start, end, menuTitle(in.Title), doc, actor.UserID, s.now(), id,
		); err != nil {
			return nil, fmt.Errorf("updating menu: %w", err)
		}

		after, err := getMenu(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleCocina, Action: "menu_update", Entity: "kitchen_weekly_menus", EntityID: &id,
			Before: before, After: after,
		}); err != nil {
			return nil, err
		}
		return after, nil
	})
}

// PublishMenu marks a menu published. Publishing twice returns the menu
// unchanged.
func (s *KitchenService) PublishMenu(ctx context.Context, actor model.Actor, id int64) (*model.KitchenMenu, error) {
	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.KitchenMenu, error) {
		before, err := getMenu(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if before.IsPublished() {
			return before, nil
		}

		if _, err := ex.Exec(ctx,
			"UPDATE kitchen_weekly_menus SET status = ?, updated_by = ?, updated_at = ? WHERE id = ?",
			model.MenuPublished, actor.UserID, s.now(), id,
		); err != nil {
			return nil, fmt.Errorf("publishing menu: %w", err)
		}

		after, err := getMenu(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleCocina, Action: "menu_publish", Entity: "kitchen_weekly_menus", EntityID: &id,
			Before: map[string]string{"status": before.Status},
			After:  map[string]string{"status": after.Status},
		}); err != nil {
			return nil, err
		}
		return after, nil
	})
}

// ListAssignments returns the assignments of a week ordered by resident.
func (s *KitchenService) ListAssignments(ctx context.Context, weekStart string) ([]model.MenuAssignment, error) {
	if err := checkWeek("weekStart", weekStart); err != nil {
		return nil, err
	}
	out := []model.MenuAssignment{}
	if err := s.db.Select(ctx, &out,
		"SELECT "+assignmentColumns+" FROM kitchen_resident_assignments WHERE week_start = ? ORDER BY resident_id",
		weekStart,
	); err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	return out, nil
}

// SaveAssignments upserts one assignment per resident for the week.
// Entries without a positive resident id are skipped.
func (s *KitchenService) SaveAssignments(ctx context.Context, actor model.Actor, weekStart string, items []AssignmentInput) (*SaveResult, error) {
	weekStart = strings.TrimSpace(weekStart)
	if err := checkWeek("weekStart", weekStart); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &SaveResult{}, nil
	}

	upsert := `
		INSERT INTO kitchen_resident_assignments
			(resident_id, week_start, menu_id, diet_type, resident_notes, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)` +
		s.db.Dialect().Upsert(
			[]string{"resident_id", "week_start"},
			[]string{"menu_id", "diet_type", "resident_notes", "updated_by", "updated_at"},
		)

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*SaveResult, error) {
		now := s.now()
		saved := 0
		for _, it := range items {
			if it.ResidentID <= 0 {
				continue
			}
			var found int64
			if err := getOr404(ctx, ex, &found, msgResidentNotFound,
				"SELECT id FROM residents WHERE id = ?", it.ResidentID); err != nil {
				return nil, err
			}
			menuID := it.MenuID
			if menuID != nil && *menuID <= 0 {
				menuID = nil
			}
			if menuID != nil {
				if err := getOr404(ctx, ex, &found, msgMenuNotFound,
					"SELECT id FROM kitchen_weekly_menus WHERE id = ?", *menuID); err != nil {
					return nil, err
				}
			}

			var diet, notes *string
			if d := trimPtr(it.DietType); d != nil {
				diet = ptr(truncate(*d, dietTypeMax))
			}
			if n := trimPtr(it.ResidentNotes); n != nil {
				notes = ptr(truncate(*n, residentNotesMax))
			}

			if _, err := ex.Exec(ctx, upsert,
				it.ResidentID, weekStart, menuID, diet, notes, actor.UserID, now,
			); err != nil {
				return nil, fmt.Errorf("saving assignment: %w", err)
			}
			saved++
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleCocina, Action: "assignments_save", Entity: "kitchen_resident_assignments",
			After: map[string]any{"weekStart": weekStart, "count": saved},
		}); err != nil {
			return nil, err
		}
		return &SaveResult{Saved: saved}, nil
	})
}

// Viewer returns the assignment of a resident for the week and the menu
// it points to. A resident without an assignment gets an empty one.
func (s *KitchenService) Viewer(ctx context.Context, residentID int64, weekStart string) (*ViewerData, error) {
	if residentID <= 0 {
		return nil, apperr.Invalid("residentId must be a positive integer", "residentId", apperr.IssueMin)
	}
	if err := checkWeek("weekStart", weekStart); err != nil {
		return nil, err
	}

	out := &ViewerData{}
	err := s.db.Get(ctx, &out.Assignment,
		"SELECT "+assignmentColumns+" FROM kitchen_resident_assignments WHERE resident_id = ? AND week_start = ?",
		residentID, weekStart)
	switch {
	case store.IsNoRows(err):
		out.Assignment = model.MenuAssignment{ResidentID: residentID, WeekStart: weekStart}
		return out, nil
	case err != nil:
		return nil, fmt.Errorf("loading assignment: %w", err)
	}

	if out.Assignment.MenuID == nil {
		return out, nil
	}
	menu, err := s.GetMenu(ctx, *out.Assignment.MenuID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return out, nil
		}
		return nil, err
	}
	out.Menu = menu
	return out, nil
}
