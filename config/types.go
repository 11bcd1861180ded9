package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-conduit/metrics"
)

// Config is the root of the library configuration: logging preferences,
// metrics export, and the outbound HTTP transport layer (client pool and
// instrumentation). Keys outside these sections stay reachable through the
// Get accessors.
type Config struct {
	Environment string          `koanf:"environment" json:"environment" yaml:"environment" toml:"environment" mapstructure:"environment"`
	Log         LogConfig       `koanf:"log" json:"log" yaml:"log" toml:"log" mapstructure:"log"`
	Metrics     metrics.Config  `koanf:"metrics" json:"metrics" yaml:"metrics" toml:"metrics" mapstructure:"metrics"`
	Transport   TransportConfig `koanf:"transport" json:"transport" yaml:"transport" toml:"transport" mapstructure:"transport"`

	// k retains the loaded tree so accessors can reach undeclared keys
	k *koanf.Koanf `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" toml:"level" mapstructure:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" toml:"pretty" mapstructure:"pretty"`
}

// TransportConfig holds settings for the outbound HTTP transport layer.
type TransportConfig struct {
	Cleanup CleanupConfig           `koanf:"cleanup" json:"cleanup" yaml:"cleanup" toml:"cleanup" mapstructure:"cleanup"`
	Clients map[string]ClientConfig `koanf:"clients" json:"clients" yaml:"clients" toml:"clients" mapstructure:"clients"`
}

// CleanupConfig holds settings for the expired-handler cleanup scheduler.
type CleanupConfig struct {
	// Interval is the delay between cleanup passes over expired handlers.
	// Default: 10s.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval" toml:"interval" mapstructure:"interval"`
}

// ClientConfig holds per-client settings for a named HTTP client.
// Pointer fields distinguish "not set" (library default applies) from an
// explicit false; use BoolPtr to set them programmatically.
type ClientConfig struct {
	Group    string              `koanf:"group" json:"group" yaml:"group" toml:"group" mapstructure:"group"`
	Command  string              `koanf:"command" json:"command" yaml:"command" toml:"command" mapstructure:"command"`
	Lifetime time.Duration       `koanf:"lifetime" json:"lifetime" yaml:"lifetime" toml:"lifetime" mapstructure:"lifetime"`
	Logging  ClientLoggingConfig `koanf:"logging" json:"logging" yaml:"logging" toml:"logging" mapstructure:"logging"`
	Metrics  ClientMetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics" toml:"metrics" mapstructure:"metrics"`
}

// ClientLoggingConfig holds per-client logging settings.
type ClientLoggingConfig struct {
	// Enabled toggles the logging stage. Default: true.
	Enabled *bool              `koanf:"enabled" json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	Trace   TraceCaptureConfig `koanf:"trace" json:"trace" yaml:"trace" toml:"trace" mapstructure:"trace"`
	Errors  ErrorLoggingConfig `koanf:"errors" json:"errors" yaml:"errors" toml:"errors" mapstructure:"errors"`
}

// TraceCaptureConfig holds detailed request/response tracing toggles.
// Both default to false because payload capture is expensive.
type TraceCaptureConfig struct {
	Request  bool `koanf:"request" json:"request" yaml:"request" toml:"request" mapstructure:"request"`
	Response bool `koanf:"response" json:"response" yaml:"response" toml:"response" mapstructure:"response"`
}

// ErrorLoggingConfig controls how non-success HTTP statuses are logged.
type ErrorLoggingConfig struct {
	// Enabled escalates non-success statuses to error severity. Default: false.
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	// Include4xx lowers the escalation floor from 500 to 400. Default: true.
	Include4xx *bool `koanf:"include4xx" json:"include4xx" yaml:"include4xx" toml:"include4xx" mapstructure:"include4xx"`
	// AsWarnings downgrades escalated statuses to warning severity. Default: false.
	AsWarnings bool `koanf:"aswarnings" json:"aswarnings" yaml:"aswarnings" toml:"aswarnings" mapstructure:"aswarnings"`
}

// ClientMetricsConfig holds per-client metrics settings.
type ClientMetricsConfig struct {
	// Enabled toggles the metrics stage. Default: true.
	Enabled *bool `koanf:"enabled" json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
}

// BoolPtr returns a pointer to the provided bool value.
// Useful for setting optional boolean configuration fields.
func BoolPtr(v bool) *bool {
	return &v
}

// Client returns the configuration block for the named client and whether
// one was declared. Callers fall back to library defaults when ok is false.
func (c *Config) Client(name string) (ClientConfig, bool) {
	if c == nil || c.Transport.Clients == nil {
		return ClientConfig{}, false
	}
	cc, ok := c.Transport.Clients[name]
	return cc, ok
}

// GetString returns the string at key, or the optional fallback when the
// key is absent from the loaded tree.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if c.Exists(key) {
		return c.k.String(key)
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return ""
}

// GetBool returns the bool at key, or the optional fallback.
func (c *Config) GetBool(key string, defaultVal ...bool) bool {
	if c.Exists(key) {
		return c.k.Bool(key)
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return false
}

// GetInt returns the int at key, or the optional fallback.
func (c *Config) GetInt(key string, defaultVal ...int) int {
	if c.Exists(key) {
		return c.k.Int(key)
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return 0
}

// GetDuration returns the duration at key, or the optional fallback.
func (c *Config) GetDuration(key string, defaultVal ...time.Duration) time.Duration {
	if c.Exists(key) {
		return c.k.Duration(key)
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return 0
}

// Exists reports whether the given key is present in the loaded tree. It is
// safe on a nil or unloaded Config.
func (c *Config) Exists(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}
