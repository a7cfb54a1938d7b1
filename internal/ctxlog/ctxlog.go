// Package ctxlog carries the process logger on a context.Context. Every
// long-lived entry point (App, HTTP handlers, CLI commands) stores its
// logger with WithLogger; sessions and stores pick it up with FromContext.
package ctxlog

import (
	"context"
	"log/slog"
)

type key struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// FromContext returns the logger stored on ctx. A context without a logger
// is a wiring bug, so it panics instead of falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(key{}).(*slog.Logger); ok {
		return logger
	}
	panic("ctxlog: logger missing from context")
}

// With returns a copy of ctx whose logger carries args as attributes.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}
