// Package logger defines the logging contract used throughout the library.
// It provides a structured logging abstraction so transport code never
// depends on a concrete logging backend.
package logger

import (
	"context"
	"time"
)

// Logger hands out leveled log events and derived loggers. Implementations
// must be safe for concurrent use.
type Logger interface {
	Trace() LogEvent
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	Fatal() LogEvent

	// WithContext returns a logger bound to the context: a backend stored
	// in the context is adopted, and a severity hook stored there is
	// invoked for WARN-or-worse events.
	WithContext(ctx context.Context) Logger

	// WithFields returns a logger that stamps the given fields, redacted,
	// onto every event it emits.
	WithFields(fields map[string]any) Logger
}

// LogEvent accumulates typed fields and fires when Msg or Msgf is called.
// Field methods return the event so calls chain.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Uint64(key string, value uint64) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
	Bytes(key string, val []byte) LogEvent
}
