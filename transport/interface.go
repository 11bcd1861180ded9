package transport

import (
	"context"
	nethttp "net/http"
)

// Factory is the pool contract callers depend on: named client hand-out,
// terminal shutdown, and a statistics snapshot.
type Factory interface {
	// Client returns a handle for the named client, building the pooled
	// stage chain on first use. An empty name fails with a validation error.
	Client(name string) (*Client, error)

	// Shutdown stops the timers and disposes every pooled chain, live
	// handles included. The pool is unusable afterwards.
	Shutdown(ctx context.Context) error

	// Stats returns a point-in-time snapshot of pool activity.
	Stats() PoolStats
}

// Stage forwards one outbound request to next, observing or transforming it.
// Stages compose inside-out; the outermost stage sees the request first.
type Stage func(req *nethttp.Request, next nethttp.RoundTripper) (*nethttp.Response, error)

// StageBuilder is the configuration contract for opaque collaborator stages
// (retry, circuit breaker). Wrap receives the chain assembled so far as next
// and returns the decorated transport; returning next unchanged leaves the
// slot empty. Implementations own their policy configuration entirely.
type StageBuilder interface {
	Wrap(name string, opts *Options, next nethttp.RoundTripper) nethttp.RoundTripper
}

// StageBuilderFunc adapts a plain function to the StageBuilder interface.
type StageBuilderFunc func(name string, opts *Options, next nethttp.RoundTripper) nethttp.RoundTripper

// Wrap implements StageBuilder.
func (f StageBuilderFunc) Wrap(name string, opts *Options, next nethttp.RoundTripper) nethttp.RoundTripper {
	return f(name, opts, next)
}

// TransportFactory produces the inner, network-facing transport for a named
// client. The pool owns the returned value and disposes it on rotation, so
// implementations must return a dedicated instance per call.
type TransportFactory func(name string) (nethttp.RoundTripper, error)

// ClientMutator adjusts handle-level settings (timeout, base URL, default
// headers) on hand-out. Mutators run in registration order and must not
// touch pool internals.
type ClientMutator func(c *Client)

// RoundTripperFunc adapts a function to nethttp.RoundTripper.
type RoundTripperFunc func(req *nethttp.Request) (*nethttp.Response, error)

// RoundTrip implements nethttp.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	return f(req)
}

// roundTripper binds a stage to its forwarding target.
func (s Stage) roundTripper(next nethttp.RoundTripper) nethttp.RoundTripper {
	return RoundTripperFunc(func(req *nethttp.Request) (*nethttp.Response, error) {
		return s(req, next)
	})
}
