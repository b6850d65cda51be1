// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/servimel/servimel-go/internal/model"
)

// ErrInvalidToken covers malformed, badly signed and expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID int64
	Role   string
}

// HasRole reports whether the identity holds one of roles.
func (id Identity) HasRole(roles ...string) bool {
	role := model.NormalizeRole(id.Role)
	for _, r := range roles {
		if model.NormalizeRole(r) == role {
			return true
		}
	}
	return false
}

// Claims is the payload of issued tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer. ttl is the lifetime of issued tokens.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.
func (t *Tokens) Issue(userID int64, role string) (string, error) {
	if userID == 0 {
		return "", errors.New("user id is required to issue a token")
	}
	now := t.now()
	claims := Claims{
		Role: model.NormalizeRole(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry and returns the identity.
// Tokens minted by older clients carry the role under "rol"; it is
// accepted here and nowhere else.
func (t *Tokens) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, ok := subjectID(claims["sub"])
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role, _ = claims["rol"].(string)
	}

	return Identity{UserID: userID, Role: model.NormalizeRole(role)}, nil
}

// subjectID accepts both string and numeric subjects.
func subjectID(v any) (int64, bool) {
	switch s := v.(type) {
	case string:
		id, err := strconv.ParseInt(s, 10, 64)
		return id, err == nil && id > 0
	case float64:
		return int64(s), s > 0
	default:
		return 0, false
	}
}
