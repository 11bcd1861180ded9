package metrics

import "errors"

// ErrNilConfig reports a Validate call on a nil Config.
var ErrNilConfig = errors.New("metrics: config is nil")

// ErrMissingServiceName reports enabled export without a service name.
var ErrMissingServiceName = errors.New("metrics: service name is required when metric export is enabled")

// ErrInvalidProtocol reports an export protocol other than "http" or "grpc".
var ErrInvalidProtocol = errors.New("metrics: protocol must be either 'http' or 'grpc'")

// ErrInvalidEndpointFormat reports an endpoint whose scheme contradicts the
// protocol: OTLP/HTTP endpoints need http:// or https://, OTLP/gRPC endpoints
// are bare host:port.
var ErrInvalidEndpointFormat = errors.New("metrics: invalid endpoint format for protocol")
