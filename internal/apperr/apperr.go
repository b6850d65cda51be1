// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package apperr defines the typed errors returned by services and
// translated into HTTP responses at the handler boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by every module.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "AUTH_UNAUTHORIZED"
	CodeForbidden           = "AUTH_FORBIDDEN"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeUserDisabled        = "AUTH_USER_DISABLED"
	CodeEmailTaken          = "AUTH_EMAIL_TAKEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeMenuPublished       = "MENU_PUBLISHED"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeRateLimited         = "RATE_LIMITED"
	CodePlaceholderMismatch = "DB_PLACEHOLDER_MISMATCH"
	CodeInternal            = "INTERNAL_ERROR"
)

// Issue names used in validation details.
const (
	IssueRequired = "required"
	IssueMin      = "min"
	IssueMax      = "max"
	IssueEnum     = "enum"
	IssueRegex    = "regex"

	IssueTypeNumber  = "type_number"
	IssueTypeBoolean = "type_boolean"
	IssueTypeString  = "type_string"
	IssueTypeObject  = "type_object"
	IssueTypeDate    = "type_date"
)

// Where values for validation details.
const (
	WhereParams = "params"
	WhereQuery  = "query"
	WhereBody   = "body"
)

// FieldIssue describes one failed validation rule.
type FieldIssue struct {
	Field string `json:"field"`
	Where string `json:"where,omitempty"`
	Issue string `json:"issue"`
}

// Error is a classified application error.
type Error struct {
	Code    string
	Message string
	Status  int
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an Error with the given classification.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// Wrap attaches a cause to a classified error.
func Wrap(cause error, code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status, cause: cause}
}

// Validation returns a VALIDATION_ERROR carrying every failed rule.
func Validation(issues ...FieldIssue) *Error {
	e := New(CodeValidation, "Validation failed", http.StatusBadRequest)
	if len(issues) > 0 {
		e.Details = issues
	}
	return e
}

// Invalid returns a VALIDATION_ERROR with a custom message and one issue.
func Invalid(message, field, issue string) *Error {
	return New(CodeValidation, message, http.StatusBadRequest).
		WithDetails([]FieldIssue{{Field: field, Issue: issue}})
}

// Unauthorized returns a 401 AUTH_UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden returns a 403 AUTH_FORBIDDEN error.
func Forbidden(message string) *Error {
	return New(CodeForbidden, message, http.StatusForbidden)
}

// NotFound returns a 404 NOT_FOUND error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message, http.StatusNotFound)
}

// Conflict returns a 409 error with the given code.
func Conflict(code, message string) *Error {
	return New(code, message, http.StatusConflict)
}

// Internal returns a 500 INTERNAL_ERROR wrapping cause.
func Internal(cause error) *Error {
	return Wrap(cause, CodeInternal, "Unexpected error", http.StatusInternalServerError)
}

// As extracts an *Error from err. Unclassified errors become INTERNAL_ERROR.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var cls interface{ AppError() *Error }
	if errors.As(err, &cls) {
		return cls.AppError()
	}
	return Internal(err)
}

// IsCode reports whether err is classified with code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
