package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/gaborage/go-conduit/metrics"
)

// MetricCall is one recorded counter increment or timing observation.
type MetricCall struct {
	Name    string
	Tags    metrics.Tags
	Elapsed time.Duration
}

// MetricsRecorder is a thread-safe metrics.Recorder that records every call
// for later assertion instead of exporting it.
//
// Example usage:
//
//	recorder := mocks.NewMetricsRecorder()
//	pool, _ := transport.New(transport.WithRecorder(recorder))
//	// ... drive requests ...
//	assert.Equal(t, 1, recorder.CounterCount("transport.client.success"))
type MetricsRecorder struct {
	mu       sync.Mutex
	counters []MetricCall
	timings  []MetricCall
}

// Ensure MetricsRecorder implements the interface
var _ metrics.Recorder = (*MetricsRecorder)(nil)

// NewMetricsRecorder creates an empty recording recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// IncrementCounter implements metrics.Recorder
func (r *MetricsRecorder) IncrementCounter(_ context.Context, name string, tags metrics.Tags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, MetricCall{Name: name, Tags: cloneTags(tags)})
}

// RecordTiming implements metrics.Recorder
func (r *MetricsRecorder) RecordTiming(_ context.Context, name string, elapsed time.Duration, tags metrics.Tags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings = append(r.timings, MetricCall{Name: name, Tags: cloneTags(tags), Elapsed: elapsed})
}

// Counters returns a copy of every recorded counter increment in order.
func (r *MetricsRecorder) Counters() []MetricCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MetricCall(nil), r.counters...)
}

// Timings returns a copy of every recorded timing observation in order.
func (r *MetricsRecorder) Timings() []MetricCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MetricCall(nil), r.timings...)
}

// CounterCount returns how many times the named counter was incremented.
func (r *MetricsRecorder) CounterCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, call := range r.counters {
		if call.Name == name {
			count++
		}
	}
	return count
}

// TimingCount returns how many observations the named timing received.
func (r *MetricsRecorder) TimingCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, call := range r.timings {
		if call.Name == name {
			count++
		}
	}
	return count
}

// LastCounter returns the most recent increment of the named counter and
// whether one was recorded.
func (r *MetricsRecorder) LastCounter(name string) (MetricCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.counters) - 1; i >= 0; i-- {
		if r.counters[i].Name == name {
			return r.counters[i], true
		}
	}
	return MetricCall{}, false
}

// LastTiming returns the most recent observation of the named timing and
// whether one was recorded.
func (r *MetricsRecorder) LastTiming(name string) (MetricCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.timings) - 1; i >= 0; i-- {
		if r.timings[i].Name == name {
			return r.timings[i], true
		}
	}
	return MetricCall{}, false
}

// Reset discards everything recorded so far.
func (r *MetricsRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = nil
	r.timings = nil
}

func cloneTags(tags metrics.Tags) metrics.Tags {
	if tags == nil {
		return nil
	}
	cloned := make(metrics.Tags, len(tags))
	for k, v := range tags {
		cloned[k] = v
	}
	return cloned
}
