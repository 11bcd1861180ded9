package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gaborage/go-conduit/metrics"
)

// Deployment environment names accepted by Validate.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

func Validate(cfg *Config) error {
	if err := validateEnvironment(cfg.Environment); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if err := validateLogLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := validateTransport(&cfg.Transport); err != nil {
		return fmt.Errorf("transport: %w", err)
	}

	if err := validateMetrics(&cfg.Metrics); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	return nil
}

func validateEnvironment(env string) error {
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return nil
	}
	return fmt.Errorf("invalid environment: %s (expected %s, %s or %s)",
		env, EnvDevelopment, EnvStaging, EnvProduction)
}

// validateLogLevel checks the level against the names the logger accepts.
func validateLogLevel(level string) error {
	levels := []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	if slices.Contains(levels, level) {
		return nil
	}
	return fmt.Errorf("invalid log level: %s (expected one of %s)",
		level, strings.Join(levels, ", "))
}

// validateTransport validates the cleanup scheduler settings and every
// declared client block. Client names are checked in sorted order so the
// first reported error is deterministic.
func validateTransport(cfg *TransportConfig) error {
	if cfg.Cleanup.Interval < 0 {
		return fmt.Errorf("cleanup interval must be zero or positive")
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Clients)) {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("client name must not be empty or whitespace")
		}

		if err := validateClient(name, cfg.Clients[name]); err != nil {
			return err
		}
	}

	return nil
}

func validateClient(name string, cfg ClientConfig) error {
	if cfg.Lifetime < 0 {
		return fmt.Errorf("client %q: lifetime must be zero or positive", name)
	}

	return nil
}

// validateMetrics delegates to the metrics package when export is enabled.
// Defaults are applied to a copy so validation never mutates the loaded tree.
func validateMetrics(cfg *metrics.Config) error {
	if !cfg.Enabled {
		return nil
	}

	defaulted := *cfg
	defaulted.ApplyDefaults()
	return defaulted.Validate()
}
