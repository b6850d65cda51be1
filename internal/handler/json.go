// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form/v4"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/validate"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

// writeOK writes a 200 envelope.
func writeOK(w http.ResponseWriter, data any) {
	middleware.WriteJSON(w, http.StatusOK, data)
}

// writeCreated writes a 201 envelope.
func writeCreated(w http.ResponseWriter, data any) {
	middleware.WriteJSON(w, http.StatusCreated, data)
}

// decodeJSON decodes the request body into dst. An empty body leaves dst
// untouched. Each field is decoded on its own so every value of the wrong
// type is reported.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	issues, err := decodeBody(w, r, dst)
	if err != nil {
		return err
	}
	return validate.Merge(issues, nil)
}

// decodeAndValidate decodes the body into dst and runs its validate tags.
// Type mismatches and rule failures come back in one VALIDATION_ERROR.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	issues, err := decodeBody(w, r, dst)
	if err != nil {
		return err
	}
	checked, err := validate.Issues(dst, apperr.WhereBody)
	if err != nil {
		return err
	}
	return validate.Merge(issues, checked)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) ([]apperr.FieldIssue, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.New(apperr.CodeValidation, "Request body too large", http.StatusRequestEntityTooLarge)
		}
		return nil, apperr.Wrap(err, apperr.CodeValidation, "Invalid JSON body", http.StatusBadRequest)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		if err := json.Unmarshal(body, dst); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeValidation, "Invalid JSON body", http.StatusBadRequest)
		}
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeValidation, "Invalid JSON body", http.StatusBadRequest)
	}
	var issues []apperr.FieldIssue
	decodeFields(rv.Elem(), fields, &issues)
	return issues, nil
}

// decodeFields sets each field of v from its JSON member. Members are
// matched like encoding/json does: exact name first, then case-insensitively.
func decodeFields(v reflect.Value, fields map[string]json.RawMessage, issues *[]apperr.FieldIssue) {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && tag == "" {
			decodeFields(v.Field(i), fields, issues)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		raw, ok := member(fields, name)
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, v.Field(i).Addr().Interface()); err != nil {
			*issues = append(*issues, fieldIssue(name, sf.Type, err))
		}
	}
}

func member(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if raw, ok := fields[name]; ok {
		return raw, true
	}
	for k, raw := range fields {
		if strings.EqualFold(k, name) {
			return raw, true
		}
	}
	return nil, false
}

func fieldIssue(name string, t reflect.Type, err error) apperr.FieldIssue {
	is := apperr.FieldIssue{Field: name, Where: apperr.WhereBody, Issue: typeIssue(t)}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		is.Issue = typeIssue(typeErr.Type)
		if typeErr.Field != "" {
			is.Field = name + "." + typeErr.Field
		}
	}
	return is
}

func typeIssue(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return apperr.IssueTypeObject
	}
	if t == timeType {
		return apperr.IssueTypeDate
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return apperr.IssueTypeNumber
	case reflect.Bool:
		return apperr.IssueTypeBoolean
	case reflect.String:
		return apperr.IssueTypeString
	default:
		return apperr.IssueTypeObject
	}
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, apperr.Validation(apperr.FieldIssue{Field: name, Where: apperr.WhereParams, Issue: apperr.IssueRequired})
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation(apperr.FieldIssue{Field: name, Where: apperr.WhereParams, Issue: apperr.IssueTypeNumber})
	}
	if id <= 0 {
		return 0, apperr.Validation(apperr.FieldIssue{Field: name, Where: apperr.WhereParams, Issue: apperr.IssueMin})
	}
	return id, nil
}

// optTime parses an optional timestamp already checked by the timestamp
// rule. Blank values are nil.
func optTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, ok := model.ParseTimestamp(*s)
	if !ok {
		return nil
	}
	return &t
}

var (
	timeType = reflect.TypeOf(time.Time{})

	queryDecoder = newQueryDecoder()
)

func newQueryDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetTagName("query")
	d.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		t, ok := model.ParseTimestamp(vals[0])
		if !ok {
			return nil, fmt.Errorf("invalid timestamp %q", vals[0])
		}
		return t, nil
	}, time.Time{})
	return d
}

// bindQuery decodes the query string into dst, a struct with query tags,
// and runs its validate tags. Values are trimmed and blank ones are
// treated as absent. Every malformed value is reported together.
func bindQuery(r *http.Request, dst any) error {
	values := url.Values{}
	for k, vs := range r.URL.Query() {
		if len(vs) == 0 {
			continue
		}
		if v := strings.TrimSpace(vs[0]); v != "" {
			values.Set(k, v)
		}
	}

	var issues []apperr.FieldIssue
	if err := queryDecoder.Decode(dst, values); err != nil {
		var errs form.DecodeErrors
		if !errors.As(err, &errs) {
			return apperr.Internal(err)
		}
		issues = queryIssues(reflect.TypeOf(dst).Elem(), errs)
	}
	checked, err := validate.Issues(dst, apperr.WhereQuery)
	if err != nil {
		return err
	}
	return validate.Merge(issues, checked)
}

// queryIssues lists decode failures in field order.
func queryIssues(t reflect.Type, errs form.DecodeErrors) []apperr.FieldIssue {
	var issues []apperr.FieldIssue
	for i := range t.NumField() {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("query"), ",")
		if name == "" {
			name = sf.Name
		}
		if _, failed := errs[name]; failed {
			issues = append(issues, apperr.FieldIssue{Field: name, Where: apperr.WhereQuery, Issue: typeIssue(sf.Type)})
		}
	}
	return issues
}
