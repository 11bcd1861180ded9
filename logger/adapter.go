package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogEventAdapter implements LogEvent on top of a zerolog event. String and
// interface fields pass through the sensitive-data filter before they reach
// the underlying event.
type LogEventAdapter struct {
	event  *zerolog.Event
	filter *SensitiveDataFilter
	level  zerolog.Level
	hook   func(zerolog.Level)
}

// derive carries the filter, level, and severity hook onto the next event in
// a field chain.
func (a *LogEventAdapter) derive(event *zerolog.Event) LogEvent {
	return &LogEventAdapter{event: event, filter: a.filter, level: a.level, hook: a.hook}
}

// Msg sends the event with the given message.
func (a *LogEventAdapter) Msg(msg string) {
	a.trackSeverity()
	a.event.Msg(msg)
}

// Msgf sends the event with a formatted message.
func (a *LogEventAdapter) Msgf(format string, args ...any) {
	a.trackSeverity()
	a.event.Msgf(format, args...)
}

// Err attaches an error to the event.
func (a *LogEventAdapter) Err(err error) LogEvent {
	return a.derive(a.event.Err(err))
}

// Str adds a string field, masking the value when the key looks sensitive.
func (a *LogEventAdapter) Str(key, value string) LogEvent {
	return a.derive(a.event.Str(key, a.filter.FilterString(key, value)))
}

// Int adds an integer field.
func (a *LogEventAdapter) Int(key string, value int) LogEvent {
	return a.derive(a.event.Int(key, value))
}

// Int64 adds an int64 field.
func (a *LogEventAdapter) Int64(key string, value int64) LogEvent {
	return a.derive(a.event.Int64(key, value))
}

// Uint64 adds a uint64 field.
func (a *LogEventAdapter) Uint64(key string, value uint64) LogEvent {
	return a.derive(a.event.Uint64(key, value))
}

// Dur adds a duration field.
func (a *LogEventAdapter) Dur(key string, d time.Duration) LogEvent {
	return a.derive(a.event.Dur(key, d))
}

// Interface adds an arbitrary field, masking sensitive leaves recursively.
func (a *LogEventAdapter) Interface(key string, i any) LogEvent {
	return a.derive(a.event.Interface(key, a.filter.FilterValue(key, i)))
}

// Bytes adds a byte-slice field.
func (a *LogEventAdapter) Bytes(key string, val []byte) LogEvent {
	return a.derive(a.event.Bytes(key, val))
}

func (a *LogEventAdapter) trackSeverity() {
	if a.hook != nil && a.level >= zerolog.WarnLevel {
		a.hook(a.level)
	}
}

// newEvent wraps a zerolog event at the given level with the logger's filter
// and severity hook.
func (l *ZeroLogger) newEvent(event *zerolog.Event, level zerolog.Level) LogEvent {
	return &LogEventAdapter{event: event, filter: l.filter, level: level, hook: l.severityHook}
}

// Trace creates a trace-level log event.
func (l *ZeroLogger) Trace() LogEvent {
	return l.newEvent(l.zlog.Trace(), zerolog.TraceLevel)
}

// Debug creates a debug-level log event.
func (l *ZeroLogger) Debug() LogEvent {
	return l.newEvent(l.zlog.Debug(), zerolog.DebugLevel)
}

// Info creates an info-level log event.
func (l *ZeroLogger) Info() LogEvent {
	return l.newEvent(l.zlog.Info(), zerolog.InfoLevel)
}

// Warn creates a warn-level log event.
func (l *ZeroLogger) Warn() LogEvent {
	return l.newEvent(l.zlog.Warn(), zerolog.WarnLevel)
}

// Error creates an error-level log event.
func (l *ZeroLogger) Error() LogEvent {
	return l.newEvent(l.zlog.Error(), zerolog.ErrorLevel)
}

// Fatal creates a fatal-level log event.
func (l *ZeroLogger) Fatal() LogEvent {
	return l.newEvent(l.zlog.Fatal(), zerolog.FatalLevel)
}
