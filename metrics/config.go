package metrics

import (
	"strings"
	"time"
)

const (
	// EndpointStdout routes export to the console instead of a collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP selects OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC selects OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the environment assumed when none is set.
	EnvironmentDevelopment = "development"
)

// Config defines the configuration for metric export.
type Config struct {
	// Enabled controls whether metric export is active.
	// When false, NewProvider returns a no-op provider.
	Enabled bool `koanf:"enabled" mapstructure:"enabled"`

	// Service identifies the emitting service.
	Service ServiceConfig `koanf:"service" mapstructure:"service"`

	// Environment names the deployment environment (production, staging,
	// development). It drives export-timeout defaults and resource tags.
	Environment string `koanf:"environment" mapstructure:"environment"`

	// Endpoint is the export destination. The value "stdout" selects console
	// export; anything else is an OTLP endpoint ("http://localhost:4318" for
	// HTTP, "localhost:4317" for gRPC).
	Endpoint string `koanf:"endpoint" mapstructure:"endpoint"`

	// Protocol picks the OTLP transport, "http" or "grpc". Ignored for the
	// stdout endpoint.
	Protocol string `koanf:"protocol" mapstructure:"protocol"`

	// Insecure disables TLS on OTLP connections, for local collectors.
	Insecure bool `koanf:"insecure" mapstructure:"insecure"`

	// Headers are attached to every OTLP export, typically auth tokens.
	Headers map[string]string `koanf:"headers" mapstructure:"headers"`

	// Interval is the export period.
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`

	// Export bounds export round trips.
	Export ExportConfig `koanf:"export" mapstructure:"export"`
}

// ServiceConfig identifies the emitting service.
type ServiceConfig struct {
	// Name labels exported metrics. Required when export is enabled.
	Name string `koanf:"name" mapstructure:"name"`

	// Version labels exported metrics with the running build.
	Version string `koanf:"version" mapstructure:"version"`
}

// ExportConfig bounds export round trips.
type ExportConfig struct {
	// Timeout caps how long one export may take before it is abandoned.
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills unset fields after unmarshaling. Export timeouts are
// environment-aware: short in development for fast feedback, long in
// production to ride out network latency.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}

	// Stdout export has no transport security to configure
	if c.Endpoint == EndpointStdout {
		c.Insecure = true
	}

	if c.Interval == 0 {
		c.Interval = 10 * time.Second
	}
	if c.Export.Timeout == 0 {
		c.Export.Timeout = 60 * time.Second
		if c.Environment == EnvironmentDevelopment || c.Endpoint == EndpointStdout {
			c.Export.Timeout = 10 * time.Second
		}
	}
}

// Validate reports configuration problems. A disabled config is always
// valid; an enabled one needs a service name and a well-formed endpoint.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.Endpoint == EndpointStdout || c.Endpoint == "" {
		return nil
	}

	proto := c.Protocol
	if proto == "" {
		proto = ProtocolHTTP
	}
	return checkEndpointScheme(c.Endpoint, proto)
}

// checkEndpointScheme enforces the scheme convention per protocol: OTLP/HTTP
// endpoints carry http:// or https://, OTLP/gRPC endpoints are bare host:port.
func checkEndpointScheme(endpoint, proto string) error {
	scheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	switch proto {
	case ProtocolHTTP:
		if !scheme {
			return ErrInvalidEndpointFormat
		}
	case ProtocolGRPC:
		if scheme {
			return ErrInvalidEndpointFormat
		}
	default:
		return ErrInvalidProtocol
	}
	return nil
}
