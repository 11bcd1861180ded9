// Package trace carries request correlation identifiers across outbound HTTP
// calls: a per-request ID and the W3C trace context header values.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	nethttp "net/http"

	"github.com/google/uuid"
)

// contextKey keeps this package's context values from colliding with keys
// owned by other packages.
type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"
)

// Correlation header names stamped onto outbound requests.
const (
	HeaderXRequestID  = "X-Request-ID"
	HeaderTraceParent = "traceparent"
	HeaderTraceState  = "tracestate"
)

// stringFromContext reads a non-empty string value stored under key.
func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the context's request ID when one is set.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, requestIDKey)
}

// EnsureRequestID returns the context's request ID, generating a fresh UUID
// when the context carries none.
func EnsureRequestID(ctx context.Context) string {
	if requestID, ok := RequestIDFromContext(ctx); ok {
		return requestID
	}
	return uuid.New().String()
}

// WithTraceParent stores a W3C traceparent value in the context.
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns the context's traceparent when one is set.
func ParentFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, traceParentKey)
}

// WithTraceState stores a W3C tracestate value in the context.
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns the context's tracestate when one is set.
func StateFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, traceStateKey)
}

// Propagate stamps correlation headers onto an outbound request. The request
// ID comes from the context or is generated; an existing X-Request-ID header
// is left alone. The traceparent travels from the context when present and is
// generated otherwise, and tracestate is forwarded only alongside a context
// traceparent.
func Propagate(ctx context.Context, header nethttp.Header) {
	if header.Get(HeaderXRequestID) == "" {
		header.Set(HeaderXRequestID, EnsureRequestID(ctx))
	}

	if header.Get(HeaderTraceParent) != "" {
		return
	}
	if tp, ok := ParentFromContext(ctx); ok {
		header.Set(HeaderTraceParent, tp)
		if ts, ok := StateFromContext(ctx); ok {
			header.Set(HeaderTraceState, ts)
		}
		return
	}
	header.Set(HeaderTraceParent, GenerateTraceParent())
}

// GenerateTraceParent creates a minimal W3C traceparent header value in the
// form version(2)-trace-id(32)-span-id(16)-flags(2), marked sampled.
func GenerateTraceParent() string {
	return "00-" + hex.EncodeToString(randomNonZero(16)) + "-" + hex.EncodeToString(randomNonZero(8)) + "-01"
}

// randomNonZero returns n random bytes that are not all zero; all-zero trace
// and span IDs are invalid on the wire.
func randomNonZero(n int) []byte {
	b := make([]byte, n)
	_, _ = crand.Read(b)
	for _, v := range b {
		if v != 0 {
			return b
		}
	}
	b[n-1] = 0x01
	return b
}
