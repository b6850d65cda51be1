// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler_AddsRequestAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", true)

	ctx := WithAttrs(context.Background(), slog.String("request_id", "abc"), slog.String("path", "/api/residents"))
	ctx = WithAttrs(ctx, slog.Int64("user_id", 7))
	logger.InfoContext(ctx, "resident created", "resident_id", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "resident created", rec["msg"])
	assert.Equal(t, "abc", rec["request_id"])
	assert.Equal(t, "/api/residents", rec["path"])
	assert.InDelta(t, 7, rec["user_id"], 0)
	assert.InDelta(t, 3, rec["resident_id"], 0)
}

func TestContextHandler_WithoutAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", false)

	logger.Info("plain")
	out := buf.String()
	assert.Contains(t, out, "msg=plain")
	assert.NotContains(t, out, "request_id")
}

func TestContextHandler_WithGroupAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", true).With("component", "scheduler").WithGroup("job")

	ctx := WithAttrs(context.Background(), slog.String("request_id", "r1"))
	logger.DebugContext(ctx, "tick", "name", "mark_late")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "scheduler", rec["component"])
	job, ok := rec["job"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mark_late", job["name"])
	assert.Equal(t, "r1", job["request_id"])
}

func TestContextHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", true)
	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Warn("shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestWithAttrs_DoesNotAlias(t *testing.T) {
	base := WithAttrs(context.Background(), slog.String("a", "1"))
	left := WithAttrs(base, slog.String("b", "2"))
	right := WithAttrs(base, slog.String("c", "3"))

	assert.Len(t, Attrs(base), 1)
	assert.Equal(t, "b", Attrs(left)[1].Key)
	assert.Equal(t, "c", Attrs(right)[1].Key)
	assert.Equal(t, base, WithAttrs(base))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
