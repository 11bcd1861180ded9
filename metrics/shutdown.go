package metrics

import (
	"context"
	"fmt"
	"time"
)

// DefaultShutdownTimeout bounds graceful teardown when the caller passes a
// non-positive timeout.
const DefaultShutdownTimeout = 10 * time.Second

// Shutdown flushes pending metric data and stops the provider, waiting at
// most timeout for both. A nil provider is a no-op so callers can hand over
// whatever they hold at teardown.
func Shutdown(p Provider, timeout time.Duration) error {
	if p == nil {
		return nil
	}

	deadline := timeout
	if deadline <= 0 {
		deadline = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	if err := p.ForceFlush(ctx); err != nil {
		return fmt.Errorf("metrics flush failed: %w", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics shutdown failed: %w", err)
	}
	return nil
}

// MustShutdown panics when Shutdown fails. Meant for defers in mains and
// tests where no error path remains.
func MustShutdown(p Provider, timeout time.Duration) {
	if err := Shutdown(p, timeout); err != nil {
		panic(err)
	}
}
