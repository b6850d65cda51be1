// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/auth"
	"github.com/servimel/servimel-go/internal/logging"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/util"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyIdentity ContextKey = "identity"
	ContextKeyClient   ContextKey = "client"
)

// client is the caller's network identity captured once per request.
type client struct {
	IP        string
	UserAgent string
	RequestID string
}

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// RequestContext captures the client address, user agent and request id and
// attaches them to the context for handlers and log records. It must run
// after chi's RequestID middleware.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := client{
			IP:        util.ClientIP(r),
			UserAgent: r.UserAgent(),
			RequestID: chimw.GetReqID(r.Context()),
		}
		ctx := context.WithValue(r.Context(), ContextKeyClient, c)
		ctx = logging.WithAttrs(ctx,
			slog.String("request_id", c.RequestID),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the caller's identity in the request context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				WriteError(w, r, apperr.Unauthorized("Missing or invalid Authorization header"))
				return
			}

			id, err := tokens.Verify(token)
			if err != nil {
				WriteError(w, r, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, id)
			ctx = logging.WithAttrs(ctx, slog.Int64("user_id", id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated identity from the context.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(auth.Identity)
	return id, ok
}

// WithIdentity returns a context carrying id. Used by tests and internal callers.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// GetActor builds the audit actor for the request: the authenticated user
// (if any) plus the client address, user agent and request id.
func GetActor(r *http.Request) model.Actor {
	c, ok := r.Context().Value(ContextKeyClient).(client)
	if !ok {
		c = client{IP: util.ClientIP(r), UserAgent: r.UserAgent(), RequestID: chimw.GetReqID(r.Context())}
	}
	actor := model.Actor{IP: c.IP, UserAgent: c.UserAgent, RequestID: c.RequestID}
	if id, ok := GetIdentity(r.Context()); ok {
		uid := id.UserID
		actor.UserID = &uid
		actor.Role = id.Role
	}
	return actor
}

// RequireRole allows the request through only when the authenticated role
// is one of roles. Comparison ignores case and surrounding spaces.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				WriteError(w, r, apperr.Unauthorized("Not authenticated"))
				return
			}

			if !id.HasRole(roles...) {
				// Log 403 for security monitoring
				slog.WarnContext(r.Context(), "access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", id.UserID,
					"user_role", id.Role,
					"required_roles", roles,
				)
				WriteError(w, r, apperr.Forbidden("Insufficient role"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
