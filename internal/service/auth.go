// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/auth"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/store"
)

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string
	Role      string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// AuthService registers and signs in users.
type AuthService struct {
	db     *store.DB
	audit  *AuditService
	tokens *auth.Tokens
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(db *store.DB, audit *AuditService, tokens *auth.Tokens, logger *slog.Logger) *AuthService {
	return &AuthService{db: db, audit: audit, tokens: tokens, logger: logger, now: store.Now}
}

func checkPasswordLength(field, password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < auth.MinPasswordLength:
		return apperr.Validation(apperr.FieldIssue{Field: field, Where: apperr.WhereBody, Issue: apperr.IssueMin})
	case n > auth.MaxPasswordLength:
		return apperr.Validation(apperr.FieldIssue{Field: field, Where: apperr.WhereBody, Issue: apperr.IssueMax})
	}
	return nil
}

var errEmailTaken = apperr.Conflict(apperr.CodeEmailTaken, "Email already in use")

// Register creates an account with default settings. Only the very first
// account may pick a bootstrap role; every later one is enfermeria.
func (s *AuthService) Register(ctx context.Context, actor model.Actor, in RegisterInput) (*AuthResult, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation(apperr.FieldIssue{Field: "email", Where: apperr.WhereBody, Issue: apperr.IssueRequired})
	}
	if err := checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user, err := store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.User, error) {
		var existing int64
		err := ex.Get(ctx, &existing, "SELECT COUNT(*) FROM users WHERE email = ?", email)
		if err != nil {
			return nil, fmt.Errorf("checking email: %w", err)
		}
		if existing > 0 {
			return nil, errEmailTaken
		}

		role := model.RoleEnfermeria
		if requested := model.NormalizeRole(in.Role); requested != "" {
			var users int64
			if err := ex.Get(ctx, &users, "SELECT COUNT(*) FROM users"); err != nil {
				return nil, fmt.Errorf("counting users: %w", err)
			}
			if users == 0 && slices.Contains(model.BootstrapRoles, requested) {
				role = requested
			}
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

		self := actor
		self.UserID = &id
		if err := s.audit.Record(ctx, ex, self, AuditRecord{
			Module: ModuleAuth, Action: "register", Entity: "users", EntityID: &id,
			After: created,
		}); err != nil {
			return nil, err
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

var (
	errInvalidCredentials = apperr.New(apperr.CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
	errUserDisabled       = apperr.New(apperr.CodeUserDisabled, "User is disabled", http.StatusForbidden)
)

// Login verifies credentials, stamps last_login_at and upgrades legacy
// password hashes.
func (s *AuthService) Login(ctx context.Context, actor model.Actor, email, password string) (*AuthResult, error) {
	email = model.NormalizeEmail(email)

	var u model.User
	if err := s.db.Get(ctx, &u, "SELECT "+userColumns+" FROM users WHERE email = ?", email); err != nil {
		if store.IsNoRows(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, errUserDisabled
	}

	ok, err := auth.CheckPassword(password, u.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "user_id", u.ID, "error", err)
		return nil, errInvalidCredentials
	}
	if !ok {
		return nil, errInvalidCredentials
	}

	var rehash string
	if auth.NeedsRehash(u.PasswordHash) {
		if rehash, err = auth.HashPassword(password); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	user, err := store.InTx(ctx, s.db, func(ctx context.Context, ex store.Executor) (*model.User, error) {
		now := s.now()
		if _, err := ex.Exec(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", now, u.ID); err != nil {
			return nil, fmt.Errorf("stamping login: %w", err)
		}
		if rehash != "" {
			if _, err := ex.Exec(ctx, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
				rehash, now, u.ID); err != nil {
				return nil, fmt.Errorf("upgrading password hash: %w", err)
			}
		}

		self := actor
		self.UserID = &u.ID
		if err := s.audit.Record(ctx, ex, self, AuditRecord{
			Module: ModuleAuth, Action: "login", Entity: "users", EntityID: &u.ID,
			After: map[string]any{"email": email, "rehashed": rehash != ""},
		}); err != nil {
			return nil, err
		}
		return getUser(ctx, ex, u.ID)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Logout records the sign-out. Tokens are stateless and stay valid until
// they expire.
func (s *AuthService) Logout(ctx context.Context, actor model.Actor) error {
	return s.db.WithTx(ctx, func(ctx context.Context, ex store.Executor) error {
		return s.audit.Record(ctx, ex, actor, AuditRecord{
			Module: ModuleAuth, Action: "logout", Entity: "users", EntityID: actor.UserID,
		})
	})
}

// Me returns the signed-in user. Disabled accounts are rejected.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	u, err := getUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, errUserDisabled
	}
	return u, nil
}
