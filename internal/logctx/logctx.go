// Package logctx threads a *slog.Logger through a context.Context so the
// compiler core never touches a package-global logger. Grounded on the
// stdout/stderr context helpers in pkg/ioctx, applied to logging instead
// of I/O writers. Unlike those helpers, a context with no logger attached
// yields slog.Default() rather than a no-op; Discard returns the no-op
// logger.
package logctx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger attaches a logger to ctx. Subsequent stages read it with
// FromContext instead of accepting a logger parameter, so adding a new
// pipeline stage never means threading one more argument through every
// call in between.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or slog.Default() if
// none was attached. Never returns nil.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// Discard returns a logger that drops every record, used when neither
// Verbose nor ShowTiming is requested so stage instrumentation costs
// nothing beyond the slog.Logger.Enabled check.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
