// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RawJSON is an opaque JSON column value. An empty value maps to SQL NULL
// and to JSON null.
type RawJSON []byte

// MarshalRawJSON encodes v for storage. A nil v yields a NULL column.
func MarshalRawJSON(v any) (RawJSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	if string(b) == "null" {
		return nil, nil
	}
	return RawJSON(b), nil
}

// Scan implements sql.Scanner.
func (j *RawJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = RawJSON(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (j RawJSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// MarshalJSON implements json.Marshaler.
func (j RawJSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 || !json.Valid(j) {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *RawJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], data...)
	return nil
}

// scanDocument decodes a typed document stored as JSON text. Malformed or
// missing stored values decode to fallback().
func scanDocument[T any](dst *T, src any, fallback func() T) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*dst = fallback()
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		*dst = fallback()
		return nil
	}
	*dst = out
	return nil
}

func documentValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
