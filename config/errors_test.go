package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "all_parts",
			err: &ConfigError{
				Category: "invalid",
				Field:    "transport.cleanup.interval",
				Message:  "must be positive",
				Action:   "use a duration like 10s",
				Details:  []string{"got -5s"},
			},
			want: "config_invalid: transport.cleanup.interval must be positive use a duration like 10s got -5s",
		},
		{
			name: "message_only",
			err:  &ConfigError{Message: "boom"},
			want: "boom",
		},
		{
			name: "joined_details",
			err: &ConfigError{
				Category: "missing",
				Field:    "log.level",
				Details:  []string{"first", "second"},
			},
			want: "config_missing: log.level first; second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	t.Run("missing_field", func(t *testing.T) {
		err := NewMissingFieldError("metrics.service.name", "CONDUIT_METRICS__SERVICE__NAME", "metrics.service.name")
		assert.Equal(t, "missing", err.Category)
		assert.Contains(t, err.Error(), "CONDUIT_METRICS__SERVICE__NAME")
		assert.Contains(t, err.Error(), "conduit.yaml")
	})

	t.Run("invalid_field_with_options", func(t *testing.T) {
		err := NewInvalidFieldError("log.level", "unknown level", []string{"info", "debug"})
		assert.Equal(t, "invalid", err.Category)
		assert.Contains(t, err.Error(), "must be one of: info, debug")
	})

	t.Run("invalid_field_without_options", func(t *testing.T) {
		err := NewInvalidFieldError("log.level", "unknown level", nil)
		assert.Empty(t, err.Action)
	})

	t.Run("not_configured", func(t *testing.T) {
		err := NewNotConfiguredError("metrics", "CONDUIT_METRICS__ENABLED", "metrics.enabled")
		assert.Equal(t, "not_configured", err.Category)
		assert.Contains(t, err.Error(), "to enable:")
	})

	t.Run("validation", func(t *testing.T) {
		err := NewValidationError("transport", "bad shape")
		assert.Equal(t, "invalid", err.Category)
		assert.Equal(t, "config_invalid: transport bad shape", err.Error())
	})
}

func TestIsNotConfigured(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil_error", err: nil, want: false},
		{name: "sentinel", err: ErrNotConfigured, want: true},
		{name: "wrapped_sentinel", err: fmt.Errorf("metrics: %w", ErrNotConfigured), want: true},
		{name: "not_configured_category", err: NewNotConfiguredError("metrics", "X", "y"), want: true},
		{name: "other_category", err: NewValidationError("log.level", "bad"), want: false},
		{name: "unrelated_error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotConfigured(tt.err))
		})
	}
}
