package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey keeps this package's context values from colliding with keys
// owned by other packages.
type contextKey string

// severityHookKey carries the per-call severity callback.
const severityHookKey contextKey = "severity_hook"

// WithSeverityHook attaches a severity hook to the context. The logging
// adapter invokes it for every WARN-or-worse event so callers can track the
// worst severity seen during a call.
func WithSeverityHook(ctx context.Context, hook func(zerolog.Level)) context.Context {
	if ctx != nil && hook != nil {
		ctx = context.WithValue(ctx, severityHookKey, hook)
	}
	return ctx
}

func severityHookFromContext(ctx context.Context) func(zerolog.Level) {
	if ctx == nil {
		return nil
	}
	hook, _ := ctx.Value(severityHookKey).(func(zerolog.Level))
	return hook
}
