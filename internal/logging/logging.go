// Package logging carries a request scoped slog.Logger through the context so
// the transport middleware and the staffing services annotate the same log
// stream for one operation.
package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// ContextWithLogger returns a derived context carrying the logger. A nil
// logger leaves the context untouched.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger attached to the context, or nil when the
// context carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}

// Resolve picks the logger for an operation: the context logger when one was
// attached, otherwise the fallback, otherwise the process default. The
// attributes are applied to whichever logger wins.
func Resolve(ctx context.Context, fallback *slog.Logger, attrs ...any) *slog.Logger {
	logger := FromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
