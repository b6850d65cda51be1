// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package validate runs declarative struct validation and reports failures
// as VALIDATION_ERROR details.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/model"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, ok := model.ParseISODate(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("monday", func(fl validator.FieldLevel) bool {
			t, ok := model.ParseISODate(fl.Field().String())
			return ok && t.Weekday() == time.Monday
		})
		// Blank timestamps are absent; optional pointers reach here with "".
		_ = v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true
			}
			_, ok := model.ParseTimestamp(s)
			return ok
		})
		instance = v
	})
	return instance
}

// fieldName reports fields by their JSON name, falling back to the query
// tag and then to the Go name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Struct validates v. Failures are returned as a VALIDATION_ERROR whose
// details list one issue per failed field, tagged with where.
func Struct(v any, where string) error {
	issues, err := Issues(v, where)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}
	return apperr.Validation(issues...)
}

// Issues validates v and returns the failures in field order, so callers
// can merge them with issues found while decoding.
func Issues(v any, where string) ([]apperr.FieldIssue, error) {
	err := Validator().Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, apperr.Internal(err)
	}
	issues := make([]apperr.FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, apperr.FieldIssue{
			Field: fieldPath(fe),
			Where: where,
			Issue: issueFor(fe.Tag()),
		})
	}
	return issues, nil
}

// Merge combines decode issues with validation issues. A field that
// already failed to decode is not reported again by its rules.
func Merge(decoded, checked []apperr.FieldIssue) error {
	issues := append([]apperr.FieldIssue(nil), decoded...)
	for _, is := range checked {
		if !covered(decoded, is.Field) {
			issues = append(issues, is)
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return apperr.Validation(issues...)
}

func covered(decoded []apperr.FieldIssue, field string) bool {
	for _, d := range decoded {
		if field == d.Field || strings.HasPrefix(field, d.Field+".") || strings.HasPrefix(field, d.Field+"[") {
			return true
		}
	}
	return false
}

// fieldPath drops the root struct name from the namespace, so nested
// failures read as items[0].title.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func issueFor(tag string) string {
	switch tag {
	case "required", "required_if", "required_without":
		return apperr.IssueRequired
	case "min", "gte", "gt", "len":
		return apperr.IssueMin
	case "max", "lte", "lt":
		return apperr.IssueMax
	case "oneof":
		return apperr.IssueEnum
	case "email", "isodate", "monday":
		return apperr.IssueRegex
	case "timestamp":
		return apperr.IssueTypeDate
	default:
		return tag
	}
}
