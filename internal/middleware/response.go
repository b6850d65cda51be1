// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/servimel/servimel-go/internal/apperr"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a successful envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Envelope{OK: true, Data: data})
}

// WriteError classifies err, logs it and writes the error envelope.
// Unclassified errors are reported as INTERNAL_ERROR without their message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"code", ae.Code,
		"status", ae.Status,
	}
	if ae.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", append(attrs, "error", err)...)
	} else {
		slog.WarnContext(r.Context(), "request rejected", append(attrs, "message", ae.Message)...)
	}

	writeEnvelope(w, ae.Status, Envelope{Error: &ErrorBody{
		Code:    ae.Code,
		Message: ae.Message,
		Details: ae.Details,
	}})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
