//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	echoImage = "mendhak/http-https-echo"
	echoPort  = "8080/tcp"
)

// HTTPEchoContainerConfig controls the echo server container used by the
// transport integration suite.
type HTTPEchoContainerConfig struct {
	// ImageTag pins the mendhak/http-https-echo release.
	ImageTag string
	// StartupTimeout bounds the wait for the container to accept connections.
	StartupTimeout time.Duration
}

// DefaultHTTPEchoConfig returns the image tag and startup timeout the suite
// normally runs with.
func DefaultHTTPEchoConfig() *HTTPEchoContainerConfig {
	return &HTTPEchoContainerConfig{ImageTag: "31", StartupTimeout: 60 * time.Second}
}

// HTTPEchoContainer is a running echo server that answers every request with
// a JSON document describing its method, path, headers, and body.
type HTTPEchoContainer struct {
	container testcontainers.Container
	host      string
	port      int
}

// StartHTTPEchoContainer launches an echo server container and waits until it
// listens. A nil cfg selects DefaultHTTPEchoConfig. When no Docker daemon is
// reachable the calling test is skipped instead of failed.
func StartHTTPEchoContainer(ctx context.Context, t *testing.T, cfg *HTTPEchoContainerConfig) (*HTTPEchoContainer, error) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultHTTPEchoConfig()
	}
	skipWithoutDocker(ctx, t)

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        fmt.Sprintf("%s:%s", echoImage, cfg.ImageTag),
			ExposedPorts: []string{echoPort},
			WaitingFor:   wait.ForListeningPort(echoPort).WithStartupTimeout(cfg.StartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("starting echo container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("resolving echo container host: %w", err)
	}
	mapped, err := ctr.MappedPort(ctx, echoPort)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("resolving echo container port: %w", err)
	}

	t.Logf("http echo container listening at %s:%d", host, mapped.Int())
	return &HTTPEchoContainer{container: ctr, host: host, port: mapped.Int()}, nil
}

// MustStartHTTPEchoContainer is StartHTTPEchoContainer with errors promoted to
// t.Fatalf.
func MustStartHTTPEchoContainer(ctx context.Context, t *testing.T, cfg *HTTPEchoContainerConfig) *HTTPEchoContainer {
	t.Helper()

	ctr, err := StartHTTPEchoContainer(ctx, t, cfg)
	if err != nil {
		t.Fatalf("http echo container: %v", err)
	}
	return ctr
}

// skipWithoutDocker skips the calling test when no Docker daemon answers.
func skipWithoutDocker(ctx context.Context, t *testing.T) {
	t.Helper()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		t.Skipf("skipping integration test, docker provider unavailable: %v", err)
	}
	defer provider.Close()
	if _, err := provider.DaemonHost(ctx); err != nil {
		t.Skipf("skipping integration test, docker daemon unreachable: %v", err)
	}
}

// Host returns the mapped container host.
func (c *HTTPEchoContainer) Host() string { return c.host }

// Port returns the mapped container port.
func (c *HTTPEchoContainer) Port() int { return c.port }

// BaseURL returns the plain-HTTP root of the echo server.
func (c *HTTPEchoContainer) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.host, c.port)
}

// Terminate stops and removes the container. It is safe on a partially
// constructed value.
func (c *HTTPEchoContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	return c.container.Terminate(ctx)
}

// WithCleanup terminates the container when the test finishes and returns the
// receiver for chaining.
func (c *HTTPEchoContainer) WithCleanup(t *testing.T) *HTTPEchoContainer {
	t.Helper()

	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("warning: failed to terminate echo container: %v", err)
		}
	})
	return c
}
