// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. For oops errors the code and context
// are logged as separate attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	LogErrorContext(context.Background(), logger, msg, err, attrs...)
}

// LogWarn is LogError at warning level, for failures of best-effort work
// that do not change an operation's result.
func LogWarn(logger *slog.Logger, msg string, err error, attrs ...any) {
	LogWarnContext(context.Background(), logger, msg, err, attrs...)
}

// LogErrorContext is LogError with a context, so trace ids reach the
// handler.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.Log(ctx, slog.LevelError, msg, errorAttrs(err, attrs)...)
}

// LogWarnContext is LogWarn with a context.
func LogWarnContext(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.Log(ctx, slog.LevelWarn, msg, errorAttrs(err, attrs)...)
}

func errorAttrs(err error, extra []any) []any {
	attrs := make([]any, 0, len(extra)+6)
	attrs = append(attrs, extra...)
	if err == nil {
		return attrs
	}
	attrs = append(attrs, "error", err.Error())
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return attrs
	}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}
