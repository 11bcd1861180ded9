package transport

import (
	nethttp "net/http"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-conduit/trace"
)

// WithCorrelation returns a filter that stamps correlation headers
// (X-Request-ID, traceparent, tracestate) onto every outbound request. The
// request is cloned before stamping so the caller's request is never
// mutated.
func WithCorrelation() ConfigFilter {
	return func(plan *ChainPlan) {
		next := plan.Inner
		plan.Inner = RoundTripperFunc(func(req *nethttp.Request) (*nethttp.Response, error) {
			clone := req.Clone(req.Context())
			trace.Propagate(clone.Context(), clone.Header)
			return next.RoundTrip(clone)
		})
	}
}

// WithThrottle returns a filter that bounds the outbound request rate with
// a token bucket refilled at rps tokens per second. The bucket is shared by
// every chain built with the same filter value. Requests wait for a token
// and fail with the request context's error if it ends first.
func WithThrottle(rps float64, burst int) ConfigFilter {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(plan *ChainPlan) {
		next := plan.Inner
		plan.Inner = RoundTripperFunc(func(req *nethttp.Request) (*nethttp.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}
