package trace

import (
	"context"
	nethttp "net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleParent and sampleState are the W3C Trace Context spec examples.
const (
	sampleParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	sampleState  = "congo=t61rcWkgMzE"
)

var traceParentRe = regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`)

func TestWireHeaderNames(t *testing.T) {
	assert.Equal(t, "X-Request-ID", HeaderXRequestID)
	assert.Equal(t, "traceparent", HeaderTraceParent)
	assert.Equal(t, "tracestate", HeaderTraceState)
}

func TestRequestIDLifecycle(t *testing.T) {
	t.Run("existing_id_reused", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-7f3a")
		assert.Equal(t, "req-7f3a", EnsureRequestID(ctx))
	})

	t.Run("generated_when_missing", func(t *testing.T) {
		got := EnsureRequestID(context.Background())
		_, err := uuid.Parse(got)
		assert.NoError(t, err, "generated request IDs are UUIDs")
	})

	t.Run("empty_value_treated_as_absent", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "")
		_, ok := RequestIDFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestContextCarriers(t *testing.T) {
	t.Run("traceparent_round_trip", func(t *testing.T) {
		ctx := WithTraceParent(context.Background(), sampleParent)
		got, ok := ParentFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, sampleParent, got)
	})

	t.Run("tracestate_round_trip", func(t *testing.T) {
		ctx := WithTraceState(context.Background(), sampleState)
		got, ok := StateFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, sampleState, got)
	})

	t.Run("absent_values_report_false", func(t *testing.T) {
		_, ok := ParentFromContext(context.Background())
		assert.False(t, ok)
		_, ok = StateFromContext(context.Background())
		assert.False(t, ok)
	})
}

func TestGenerateTraceParent(t *testing.T) {
	got := GenerateTraceParent()

	assert.Regexp(t, traceParentRe, got)

	// All-zero trace and span IDs are invalid on the wire.
	segments := strings.Split(got, "-")
	require.Len(t, segments, 4)
	assert.NotEqual(t, strings.Repeat("0", 32), segments[1])
	assert.NotEqual(t, strings.Repeat("0", 16), segments[2])
}

func TestPropagate(t *testing.T) {
	t.Run("generates_missing_headers", func(t *testing.T) {
		header := nethttp.Header{}
		Propagate(context.Background(), header)

		_, err := uuid.Parse(header.Get(HeaderXRequestID))
		assert.NoError(t, err)
		assert.Regexp(t, traceParentRe, header.Get(HeaderTraceParent))
		assert.Empty(t, header.Get(HeaderTraceState), "tracestate only travels alongside a context traceparent")
	})

	t.Run("forwards_context_values", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-7f3a")
		ctx = WithTraceParent(ctx, sampleParent)
		ctx = WithTraceState(ctx, sampleState)

		header := nethttp.Header{}
		Propagate(ctx, header)

		assert.Equal(t, "req-7f3a", header.Get(HeaderXRequestID))
		assert.Equal(t, sampleParent, header.Get(HeaderTraceParent))
		assert.Equal(t, sampleState, header.Get(HeaderTraceState))
	})

	t.Run("preset_headers_win", func(t *testing.T) {
		header := nethttp.Header{}
		header.Set(HeaderXRequestID, "preset")
		header.Set(HeaderTraceParent, sampleParent)

		ctx := WithTraceParent(context.Background(), "00-11111111111111111111111111111111-2222222222222222-01")
		Propagate(ctx, header)

		assert.Equal(t, "preset", header.Get(HeaderXRequestID))
		assert.Equal(t, sampleParent, header.Get(HeaderTraceParent))
		assert.Empty(t, header.Get(HeaderTraceState), "a preset traceparent suppresses tracestate forwarding")
	})
}
