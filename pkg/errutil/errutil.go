// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package errutil carries shared helpers for coded oops errors: structured
// logging at the edges and code assertions in tests.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error through the given logger. Coded oops errors are
// expanded into their code and context attributes; anything else is logged
// as a plain error string.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
