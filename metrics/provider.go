package metrics

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"google.golang.org/grpc/credentials/insecure"
)

// Provider owns the metric export pipeline from meter to backend.
type Provider interface {
	// MeterProvider returns the meter provider recorders draw meters from.
	MeterProvider() metric.MeterProvider

	// Shutdown stops the pipeline, exporting whatever is still pending.
	Shutdown(ctx context.Context) error

	// ForceFlush pushes pending metric data out immediately.
	ForceFlush(ctx context.Context) error
}

// provider implements Provider with the OpenTelemetry SDK.
type provider struct {
	cfg Config
	mp  *sdkmetric.MeterProvider
	mu  sync.Mutex
}

// NewProvider builds a provider for the given configuration, applying
// defaults and validating first, so callers hand over raw unmarshaled
// config. A disabled config yields a no-op provider. The caller's config
// value is never mutated.
func NewProvider(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	resolved := *cfg
	resolved.ApplyDefaults()

	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	if !resolved.Enabled {
		return disabledProvider{}, nil
	}

	p := &provider{cfg: resolved}
	if err := p.initMeterProvider(); err != nil {
		return nil, fmt.Errorf("failed to set up metric export: %w", err)
	}

	otel.SetMeterProvider(p.mp)

	return p, nil
}

// MustNewProvider is NewProvider that panics on error, for wiring code that
// has no sensible degraded mode.
func MustNewProvider(cfg *Config) Provider {
	p, err := NewProvider(cfg)
	if err != nil {
		panic(fmt.Errorf("failed to create metrics provider: %w", err))
	}
	return p
}

func (p *provider) initMeterProvider() error {
	res, err := p.buildResource()
	if err != nil {
		return fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	exporter, err := newExporter(p.cfg)
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(p.cfg.Interval),
		sdkmetric.WithTimeout(p.cfg.Export.Timeout),
	)

	p.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	return nil
}

// buildResource merges the service identity attributes over the SDK default
// resource. The custom resource carries no schema URL, which keeps the merge
// from failing on schema conflicts.
func (p *provider) buildResource() (*resource.Resource, error) {
	identity, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(p.cfg.Service.Name),
			semconv.ServiceVersion(p.cfg.Service.Version),
			semconv.DeploymentEnvironmentName(p.cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), identity)
}

// newExporter picks the exporter for the configured endpoint: pretty-printed
// stdout for local development, OTLP over HTTP or gRPC otherwise.
func newExporter(cfg Config) (sdkmetric.Exporter, error) {
	if cfg.Endpoint == EndpointStdout {
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	}

	switch cfg.Protocol {
	case ProtocolHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
		}
		return otlpmetrichttp.New(context.Background(), opts...)

	case ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)

	default:
		return nil, fmt.Errorf("metrics protocol '%s': %w", cfg.Protocol, ErrInvalidProtocol)
	}
}

func (p *provider) MeterProvider() metric.MeterProvider {
	return p.mp
}

func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mp == nil {
		return nil
	}
	if err := p.mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop metric export: %w", err)
	}
	return nil
}

func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mp == nil {
		return nil
	}
	if err := p.mp.ForceFlush(ctx); err != nil {
		return fmt.Errorf("failed to flush pending metrics: %w", err)
	}
	return nil
}
