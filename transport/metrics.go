package transport

import (
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gaborage/go-conduit/metrics"
)

// Metric names emitted by the metrics stage.
const (
	metricRequest  = "transport.client.request"
	metricSuccess  = "transport.client.success"
	metricFailure  = "transport.client.failure"
	metricTimeout  = "transport.client.timeout"
	metricDuration = "transport.client.duration"
)

// Metric tag keys.
const (
	tagURI     = "uri"
	tagGroup   = "group"
	tagCommand = "command"
	tagStatus  = "status"
	tagError   = "error"
)

type metricsStage struct {
	recorder metrics.Recorder
	opts     Options
}

// newMetricsStage builds the stage that counts and times every call it
// forwards. Callers must not insert it when metrics are disabled.
func newMetricsStage(recorder metrics.Recorder, opts Options) Stage {
	s := &metricsStage{recorder: recorder, opts: opts}
	return s.forward
}

func (s *metricsStage) forward(req *nethttp.Request, next nethttp.RoundTripper) (*nethttp.Response, error) {
	ctx := req.Context()
	base := s.baseTags(req)

	safely(func() {
		s.recorder.IncrementCounter(ctx, metricRequest, base)
	})

	start := time.Now()
	resp, err := next.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		safely(func() {
			tags := cloneTags(base)
			tags[tagError] = errorTypeName(err)
			s.recorder.RecordTiming(ctx, metricDuration, elapsed, tags)
			s.recorder.IncrementCounter(ctx, metricFailure, tags)
		})
		return resp, err
	}

	safely(func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		tags := cloneTags(base)
		tags[tagStatus] = strconv.Itoa(status)
		s.recorder.RecordTiming(ctx, metricDuration, elapsed, tags)
		s.recorder.IncrementCounter(ctx, classifyStatus(status), tags)
	})
	return resp, nil
}

func (s *metricsStage) baseTags(req *nethttp.Request) metrics.Tags {
	tags := metrics.Tags{
		tagGroup:   s.opts.CommandGroup,
		tagCommand: s.opts.CommandName,
	}
	if req != nil && req.URL != nil {
		tags[tagURI] = sanitizedRequestURI(req.URL)
	}
	return tags
}

// classifyStatus maps a response status to exactly one outcome counter.
// 408 and 504 are timeouts; 504 is claimed by the timeout arm and stays out
// of the >=500 failure rule.
func classifyStatus(status int) string {
	switch {
	case status == nethttp.StatusRequestTimeout || status == nethttp.StatusGatewayTimeout:
		return metricTimeout
	case status >= nethttp.StatusInternalServerError:
		return metricFailure
	default:
		return metricSuccess
	}
}

func cloneTags(tags metrics.Tags) metrics.Tags {
	cloned := make(metrics.Tags, len(tags)+1)
	for k, v := range tags {
		cloned[k] = v
	}
	return cloned
}
