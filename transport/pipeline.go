package transport

import (
	nethttp "net/http"
	"net/url"
)

// ChainPlan is the mutable blueprint a stage chain is assembled from.
// Configuration filters receive it before composition fixes the order and
// may replace any slot. The pool disposes the factory-built transport it
// owns on rotation, so a filter that wraps Inner only changes what requests
// flow through, never what gets disposed.
type ChainPlan struct {
	Name    string
	Options *Options

	// Inner is the network-facing transport at the bottom of the chain.
	Inner nethttp.RoundTripper

	// Retry and Breaker are the opaque collaborator slots. Nil skips a slot.
	Retry   StageBuilder
	Breaker StageBuilder

	// Logging and Metrics are the built-in observation stages. Nil skips.
	Logging Stage
	Metrics Stage
}

// ConfigFilter adjusts a build plan before the stage order is fixed.
// Filters run in registration order.
type ConfigFilter func(plan *ChainPlan)

// compose assembles the chain inside-out: inner transport, retry, circuit
// breaker, logging, metrics. The outermost stage is what callers see.
// Composition is deterministic and performs no I/O.
func compose(plan *ChainPlan, filters []ConfigFilter) nethttp.RoundTripper {
	if plan.Inner == nil {
		plan.Inner = nethttp.DefaultTransport
	}
	for _, filter := range filters {
		if filter != nil {
			filter(plan)
		}
	}

	rt := plan.Inner
	if rt == nil {
		rt = nethttp.DefaultTransport
	}

	if plan.Retry != nil {
		if wrapped := plan.Retry.Wrap(plan.Name, plan.Options, rt); wrapped != nil {
			rt = wrapped
		}
	}
	if plan.Breaker != nil {
		if wrapped := plan.Breaker.Wrap(plan.Name, plan.Options, rt); wrapped != nil {
			rt = wrapped
		}
	}
	if plan.Logging != nil {
		rt = plan.Logging.roundTripper(rt)
	}
	if plan.Metrics != nil {
		rt = plan.Metrics.roundTripper(rt)
	}

	return rt
}

// sanitizedRequestURI renders scheme+host+path with the query and fragment
// dropped, the shape shared by log metadata and metric tags.
func sanitizedRequestURI(u *url.URL) string {
	if u == nil {
		return ""
	}
	sanitized := url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   u.Path,
	}
	return sanitized.String()
}

// safely runs an instrumentation step and swallows any panic so observation
// can never change what the caller receives.
func safely(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
