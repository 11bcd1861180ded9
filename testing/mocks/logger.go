package mocks

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gaborage/go-conduit/logger"
)

// LogEntry is one captured structured log event.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// Field returns the named field value and whether it was present.
func (e LogEntry) Field(name string) (any, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// LogRecorder captures structured log events emitted through a real logger
// so tests can assert on levels, messages, and fields.
//
// Example usage:
//
//	recorder := mocks.NewLogRecorder()
//	pool, _ := transport.New(transport.WithLogger(recorder.Logger()))
//	// ... drive requests ...
//	assert.True(t, recorder.Has("trace", "Outbound request begin"))
type LogRecorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
	log logger.Logger
}

// NewLogRecorder creates a recorder whose Logger accepts every level.
func NewLogRecorder() *LogRecorder {
	r := &LogRecorder{}
	r.log = logger.NewFromZerolog(zerolog.New(r).Level(zerolog.TraceLevel))
	return r
}

// Logger returns the capturing logger to hand to the code under test.
func (r *LogRecorder) Logger() logger.Logger {
	return r.log
}

// Write implements io.Writer for zerolog output. Not for direct use.
func (r *LogRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// Entries decodes every captured event in emission order.
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	raw := r.buf.String()
	r.mu.Unlock()

	var entries []LogEntry
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(line), &fields); err != nil {
			continue
		}
		entry := LogEntry{Fields: fields}
		if level, ok := fields[zerolog.LevelFieldName].(string); ok {
			entry.Level = level
		}
		if message, ok := fields[zerolog.MessageFieldName].(string); ok {
			entry.Message = message
		}
		entries = append(entries, entry)
	}
	return entries
}

// WithLevel returns the captured events at the given level, in order.
func (r *LogRecorder) WithLevel(level string) []LogEntry {
	var matched []LogEntry
	for _, entry := range r.Entries() {
		if entry.Level == level {
			matched = append(matched, entry)
		}
	}
	return matched
}

// WithMessage returns the captured events carrying the given message.
func (r *LogRecorder) WithMessage(message string) []LogEntry {
	var matched []LogEntry
	for _, entry := range r.Entries() {
		if entry.Message == message {
			matched = append(matched, entry)
		}
	}
	return matched
}

// Has reports whether an event with the given level and message was captured.
func (r *LogRecorder) Has(level, message string) bool {
	for _, entry := range r.Entries() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

// Reset discards everything captured so far.
func (r *LogRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
}
