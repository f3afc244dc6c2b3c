package slogx

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext stores the logger in the context so handlers further down the
// chain log with the same request-scoped attributes.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by WithContext, or slog.Default if
// the context carries none. Callers never get a nil logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
