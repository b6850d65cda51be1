// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// number is a body number that also accepts a numeric string, as sent by
// form-backed clients. null and blank strings leave it unset.
type number[T int64 | float64] struct {
	val T
	set bool
}

func (n *number[T]) UnmarshalJSON(b []byte) error {
	var zero T
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	_, integer := any(zero).(int64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || (integer && f != math.Trunc(f)) {
		return &json.UnmarshalTypeError{Value: s, Type: reflect.TypeOf(zero)}
	}
	n.val, n.set = T(f), true
	return nil
}

// ptr returns the value, or nil when it was not sent.
func (n number[T]) ptr() *T {
	if !n.set {
		return nil
	}
	v := n.val
	return &v
}

// flag is a body boolean that also accepts "true" and "false".
type flag struct {
	val bool
	set bool
}

func (f *flag) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "null", `""`:
		return nil
	case "true", `"true"`:
		f.val, f.set = true, true
	case "false", `"false"`:
		f.val, f.set = false, true
	default:
		return &json.UnmarshalTypeError{Value: string(b), Type: reflect.TypeOf(false)}
	}
	return nil
}

func (f flag) ptr() *bool {
	if !f.set {
		return nil
	}
	v := f.val
	return &v
}
