package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// disabledProvider satisfies Provider when metric export is turned off. Every
// meter it hands out records nothing.
type disabledProvider struct{}

// MeterProvider returns a meter provider whose instruments discard all input.
func (disabledProvider) MeterProvider() metric.MeterProvider {
	return metricnoop.NewMeterProvider()
}

// Shutdown has nothing to stop.
func (disabledProvider) Shutdown(context.Context) error { return nil }

// ForceFlush has nothing to flush.
func (disabledProvider) ForceFlush(context.Context) error { return nil }

// NoopRecorder discards every observation. It is the default sink wherever a
// Recorder is required but metric export is disabled.
type NoopRecorder struct{}

// Ensure NoopRecorder implements the interface
var _ Recorder = NoopRecorder{}

// IncrementCounter discards the observation.
func (NoopRecorder) IncrementCounter(_ context.Context, _ string, _ Tags) {}

// RecordTiming discards the observation.
func (NoopRecorder) RecordTiming(_ context.Context, _ string, _ time.Duration, _ Tags) {}
