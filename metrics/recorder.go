// Package metrics provides the metric emission contract used by the transport
// stages along with an OpenTelemetry-backed implementation and provider
// lifecycle management.
package metrics

import (
	"context"
	"time"
)

// Tags carries the string dimensions attached to a metric observation.
type Tags map[string]string

// Recorder is the sink the transport stages emit metrics to. Implementations
// must be safe for concurrent use. Observation calls do not return errors
// because instrumentation must never fail the request it observes.
type Recorder interface {
	// IncrementCounter adds one to the named counter.
	IncrementCounter(ctx context.Context, name string, tags Tags)

	// RecordTiming records an elapsed wall-time observation for the named
	// distribution, in milliseconds.
	RecordTiming(ctx context.Context, name string, elapsed time.Duration, tags Tags)
}
