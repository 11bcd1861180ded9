package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger implements Logger on top of zerolog with sensitive-field
// redaction and optional per-call severity tracking.
type ZeroLogger struct {
	zlog         *zerolog.Logger
	filter       *SensitiveDataFilter
	severityHook func(zerolog.Level)
}

var _ Logger = (*ZeroLogger)(nil)

// CallerMarshalFunc is process-global in zerolog; set it once.
var callerOnce sync.Once

// shortCallerMarshal renders the caller as "pkg/file.go:line".
func shortCallerMarshal(_ uintptr, file string, line int) string {
	caller := filepath.Base(file) + ":" + strconv.Itoa(line)
	parent := filepath.Base(filepath.Dir(file))
	if parent == "." || parent == "" {
		return caller
	}
	return parent + "/" + caller
}

func newZerolog(level string, pretty bool) *zerolog.Logger {
	callerOnce.Do(func() { zerolog.CallerMarshalFunc = shortCallerMarshal })

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}

	l := zerolog.New(out).Level(parsed).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	return &l
}

// New creates a logger at the given level with the default sensitive-data
// filter. Pretty output is for local development; production gets JSON.
func New(level string, pretty bool) *ZeroLogger {
	return &ZeroLogger{
		zlog:   newZerolog(level, pretty),
		filter: NewSensitiveDataFilter(DefaultFilterConfig()),
	}
}

// NewWithFilter creates a logger with a caller-supplied filter configuration
// for applications that need to widen or narrow what counts as sensitive.
func NewWithFilter(level string, pretty bool, cfg *FilterConfig) *ZeroLogger {
	return &ZeroLogger{
		zlog:   newZerolog(level, pretty),
		filter: NewSensitiveDataFilter(cfg),
	}
}

// NewFromZerolog wraps an existing zerolog.Logger. The default sensitive data
// filter is applied; pass-through of an already configured logger is the
// intended use in tests and embedding scenarios.
func NewFromZerolog(zl zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{
		zlog:   &zl,
		filter: NewSensitiveDataFilter(DefaultFilterConfig()),
	}
}

// WithContext returns a logger bound to the context. A zerolog logger stored
// in the context replaces the receiver's backend, and a severity hook stored
// there is picked up for event tracking.
func (l *ZeroLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}

	hook := severityHookFromContext(ctx)
	if zl := zerolog.Ctx(ctx); zl != nil && zl.GetLevel() != zerolog.Disabled {
		return &ZeroLogger{zlog: zl, filter: l.filter, severityHook: hook}
	}
	if hook == nil {
		return l
	}
	return &ZeroLogger{zlog: l.zlog, filter: l.filter, severityHook: hook}
}

// WithFields returns a logger that stamps the given fields, redacted, onto
// every event it emits.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	child := l.zlog.With().Fields(l.filter.FilterFields(fields)).Logger()
	return &ZeroLogger{zlog: &child, filter: l.filter, severityHook: l.severityHook}
}
