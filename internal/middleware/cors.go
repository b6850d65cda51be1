// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/cors"

	"github.com/servimel/servimel-go/internal/apperr"
)

// previewOrigin matches deploy previews of the web client.
var previewOrigin = regexp.MustCompile(`^https://.*\.netlify\.app$`)

// corsMaxAge is how long browsers may cache a preflight answer, in seconds.
const corsMaxAge = 600

// CORS adds CORS headers for allowed origins and answers preflight requests
// with 204. Requests without an Origin header pass through untouched;
// requests from any other origin are rejected with 403.
func CORS(allowed []string) func(http.Handler) http.Handler {
	allow := func(origin string) bool { return isOriginAllowed(allowed, origin) }
	c := cors.New(cors.Options{
		AllowOriginFunc:    func(_ *http.Request, origin string) bool { return allow(origin) },
		AllowedMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials:   true,
		MaxAge:             corsMaxAge,
		OptionsPassthrough: true,
	})

	return func(next http.Handler) http.Handler {
		// Preflights pass through so they can end with 204 instead of 200.
		h := c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		}))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && !allow(origin) {
				WriteError(w, r, apperr.Forbidden("CORS blocked for origin: "+origin))
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// isOriginAllowed checks if an origin matches the allow-list or is a
// preview deployment.
func isOriginAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), origin) {
			return true
		}
	}
	return previewOrigin.MatchString(origin)
}
