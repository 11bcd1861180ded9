package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName identifies the instrumentation scope for emitted metrics.
const meterName = "github.com/gaborage/go-conduit"

// OTelRecorder implements Recorder on top of an OpenTelemetry meter.
// Instruments are created lazily per metric name and cached for reuse, so
// hot-path observations only pay for a read lock and the instrument call.
type OTelRecorder struct {
	meter      metric.Meter
	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// Ensure OTelRecorder implements the interface
var _ Recorder = (*OTelRecorder)(nil)

// NewRecorder creates a Recorder that emits through the given meter provider.
func NewRecorder(provider metric.MeterProvider) *OTelRecorder {
	return &OTelRecorder{
		meter:      provider.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// IncrementCounter adds one to the named counter with the given tags.
// Instrument creation failures are reported to the OTel error handler and the
// observation is dropped.
func (r *OTelRecorder) IncrementCounter(ctx context.Context, name string, tags Tags) {
	counter, err := r.counter(name)
	if err != nil {
		otel.Handle(err)
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attributesFromTags(tags)...))
}

// RecordTiming records elapsed wall time in milliseconds on the named histogram.
func (r *OTelRecorder) RecordTiming(ctx context.Context, name string, elapsed time.Duration, tags Tags) {
	histogram, err := r.histogram(name)
	if err != nil {
		otel.Handle(err)
		return
	}
	ms := float64(elapsed) / float64(time.Millisecond)
	histogram.Record(ctx, ms, metric.WithAttributes(attributesFromTags(tags)...))
}

func (r *OTelRecorder) counter(name string) (metric.Int64Counter, error) {
	r.mu.RLock()
	counter, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return counter, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if counter, ok := r.counters[name]; ok {
		return counter, nil
	}

	counter, err := r.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	r.counters[name] = counter
	return counter, nil
}

func (r *OTelRecorder) histogram(name string) (metric.Float64Histogram, error) {
	r.mu.RLock()
	histogram, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		return histogram, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if histogram, ok := r.histograms[name]; ok {
		return histogram, nil
	}

	histogram, err := r.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	r.histograms[name] = histogram
	return histogram, nil
}

func attributesFromTags(tags Tags) []attribute.KeyValue {
	if len(tags) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for key, value := range tags {
		attrs = append(attrs, attribute.String(key, value))
	}
	return attrs
}
