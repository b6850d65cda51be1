// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/auth"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

const userColumns = `id, role, email, password_hash, first_name, last_name, phone, avatar_url,
	is_active, last_login_at, created_at, updated_at`

type newUser struct {
	Role         string
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Phone        *string
	AvatarURL    *string
}

// insertUser creates a user together with its default settings row.
func insertUser(ctx context.Context, ex store.Executor, now time.Time, u newUser) (int64, error) {
	res, err := ex.Exec(ctx, `
		INSERT INTO users
			(role, email, password_hash, first_name, last_name, phone, avatar_url, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		u.Role, u.Email, u.PasswordHash,
		trimPtr(u.FirstName), trimPtr(u.LastName), trimPtr(u.Phone), trimPtr(u.AvatarURL),
		now, now,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return 0, errEmailTaken
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, err
	}
	if err := insertDefaultSettings(ctx, ex, id, now); err != nil {
		return 0, err
	}
	return id, nil
}

func getUser(ctx context.Context, ex store.Executor, id int64) (*model.User, error) {
	var u model.User
	if err := getOr404(ctx, ex, &u, "User not found",
		"SELECT "+userColumns+" FROM users WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

// ProfileInput updates the caller's own profile. Nil fields are kept.
type ProfileInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Q        string
	Role     string
	IsActive *bool
	Page     int
	Limit    int
}

// AdminUserInput creates a user on behalf of an administrator.
type AdminUserInput struct {
	Email     string
	Password  string
	Role      string
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string
}

// AdminUpdateInput changes the role or active flag of a user.
type AdminUpdateInput struct {
	Role     *string
	IsActive *bool
}

// UserService manages accounts.
type UserService struct {
	db    *store.DB
	audit *AuditService
	now   func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *store.DB, audit *AuditService) *UserService {
	return &UserService{db: db, audit: audit, now: store.Now}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return getUser(ctx, s.db, id)
}

// UpdateMe changes the caller's profile. A blank email is rejected and a
// taken email fails with AUTH_EMAIL_TAKEN.
func (s *UserService) UpdateMe(ctx context.Context, actor model.Actor, in ProfileInput) (*model.User, error) {
	id := actor.ID()
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets, args = append(sets, col+" = ?"), append(args, v)
	}

	var email string
	if in.Email != nil {
		email = model.NormalizeEmail(*in.Email)
		if email == "" {
			return nil, apperr.Validation(apperr.FieldIssue{Field: "email", Where: apperr.WhereBody, Issue: apperr.IssueRequired})
		}
		set("email", email)
	}
	if in.FirstName != nil {
		set("first_name", trimPtr(in.FirstName))
	}
	if in.LastName != nil {
		set("last_name", trimPtr(in.LastName))
	}
	if in.Phone != nil {
		set("phone", trimPtr(in.Phone))
	}
	if in.AvatarURL != nil {
		set("avatar_url", trimPtr(in.AvatarURL))
	}

	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.User, error) {
		before, err := getUser(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		if email != "" && email != before.Email {
			var taken int64
			if err := ex.Get(ctx, &taken, "SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?", email, id); err != nil {
				return nil, fmt.Errorf("checking email: %w", err)
			}
			if taken > 0 {
				return nil, errEmailTaken
			}
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, s.now(), id)
		if _, err := ex.Exec(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			if store.IsUniqueViolation(err) {
				return nil, errEmailTaken
			}
			return nil, fmt.Errorf("updating profile: %w", err)
		}

		after, err := getUser(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleUsers, Action: "update_me", Entity: "users", EntityID: &id,
			Before: before, After: after,
		}); err != nil {
			return nil, err
		}
		return after, nil
	})
}

// ChangePassword replaces the caller's password after verifying the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, actor model.Actor, current, next string) error {
	if err := checkPasswordLength("new_password", next); err != nil {
		return err
	}
	id := actor.ID()

	var hash string
	if err := getOr404(ctx, s.db, &hash, "User not found",
		"SELECT password_hash FROM users WHERE id = ?", id); err != nil {
		return err
	}
	ok, err := auth.CheckPassword(current, hash)
	if err != nil || !ok {
		return apperr.New(apperr.CodeInvalidCredentials, "Current password invalid", http.StatusUnauthorized)
	}

	newHash, err := auth.HashPassword(next)
	if err != nil {
		return apperr.Internal(err)
	}

	return s.db.WithTx(ctx, func(ctx context.Context, ex store.Executor) error {
		if _, err := ex.Exec(ctx, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
			newHash, s.now(), id); err != nil {
			return fmt.Errorf("changing password: %w", err)
		}
		return s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleUsers, Action: "change_password", Entity: "users", EntityID: &id,
			Before: map[string]bool{"password_changed": false},
			After:  map[string]bool{"password_changed": true},
		})
	})
}

// List returns users newest first.
func (s *UserService) List(ctx context.Context, f UserFilter) (store.Page[model.User], error) {
	paging := store.NewPaging(f.Page, f.Limit, store.DefaultLimit, store.MaxLimit)

	w := &store.Where{}
	if q := strings.TrimSpace(f.Q); q != "" {
		like := "%" + q + "%"
		w.Add("(email LIKE ? OR first_name LIKE ? OR last_name LIKE ?)", like, like, like)
	}
	if role := model.NormalizeRole(f.Role); role != "" {
		w.Add("role = ?", role)
	}
	if f.IsActive != nil {
		w.Add("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := s.db.Get(ctx, &total, "SELECT COUNT(*) FROM users"+w.SQL(), w.Args()...); err != nil {
		return store.Page[model.User]{}, fmt.Errorf("counting users: %w", err)
	}

	var items []model.User
	err := s.db.Select(ctx, &items,
		"SELECT "+userColumns+" FROM users"+w.SQL()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(w.Args(), paging.Limit, paging.Offset())...,
	)
	if err != nil {
		return store.Page[model.User]{}, fmt.Errorf("listing users: %w", err)
	}

	return store.NewPage(paging, total, items), nil
}

// Create adds a user with default settings.
func (s *UserService) Create(ctx context.Context, actor model.Actor, in AdminUserInput) (*model.User, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation(apperr.FieldIssue{Field: "email", Where: apperr.WhereBody, Issue: apperr.IssueRequired})
	}
	if err := checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}
	role := model.NormalizeRole(in.Role)
	if role == "" {
		role = model.RoleEnfermeria
	}
	if !model.IsRole(role) {
		return nil, apperr.Invalid("Invalid role", "role", apperr.IssueEnum)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.User, error) {
		var taken int64
		if err := ex.Get(ctx, &taken, "SELECT COUNT(*) FROM users WHERE email = ?", email); err != nil {
			return nil, fmt.Errorf("checking email: %w", err)
		}
		if taken > 0 {
			return nil, errEmailTaken
		}

		id, err := insertUser(ctx, ex, s.now(), newUser{
			Role: role, Email: email, PasswordHash: hash,
			FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone, AvatarURL: in.AvatarURL,
		})
		if err != nil {
			return nil, err
		}

		created, err := getUser(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleUsers, Action: "admin_create", Entity: "users", EntityID: &id,
			After: created,
		}); err != nil {
			return nil, err
		}
		return created, nil
	})
}

// Update changes a user's role or active flag.
func (s *UserService) Update(ctx context.Context, actor model.Actor, id int64, in AdminUpdateInput) (*model.User, error) {
	var (
		sets []string
		args []any
	)
	if in.Role != nil {
		role := model.NormalizeRole(*in.Role)
		if !model.IsRole(role) {
			return nil, apperr.Invalid("Invalid role", "role", apperr.IssueEnum)
		}
		sets, args = append(sets, "role = ?"), append(args, role)
	}
	if in.IsActive != nil {
		sets, args = append(sets, "is_active = ?"), append(args, *in.IsActive)
	}

	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	return store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.User, error) {
		before, err := getUser(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, s.now(), id)
		if _, err := ex.Exec(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}

		after, err := getUser(ctx, ex, id)
		if err != nil {
			return nil, err
		}

		if err := s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleUsers, Action: "admin_update", Entity: "users", EntityID: &id,
			Before: before, After: after,
		}); err != nil {
			return nil, err
		}
		return after, nil
	})
}
