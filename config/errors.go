package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured marks a feature that is intentionally left unconfigured.
// Callers treat it as a state, not a failure.
var ErrNotConfigured = errors.New("not configured")

const (
	categoryMissing       = "missing"
	categoryInvalid       = "invalid"
	categoryNotConfigured = "not_configured"
)

// ConfigError is a configuration problem with actionable guidance attached.
// Messages are lowercase throughout.
//
//nolint:revive // keeps the explicit name at call sites
type ConfigError struct {
	Category string   // one of the category constants above
	Field    string   // config field path, e.g. "transport.cleanup.interval"
	Message  string   // what is wrong
	Action   string   // how to fix it
	Details  []string // extra context or examples
}

// Error renders "config_<category>: <field> <message> <action> <details>",
// skipping absent parts.
func (e *ConfigError) Error() string {
	var b strings.Builder
	if e.Category != "" {
		b.WriteString("config_")
		b.WriteString(e.Category)
		b.WriteByte(':')
	}
	for _, part := range [4]string{e.Field, e.Message, e.Action, strings.Join(e.Details, "; ")} {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(part)
	}
	return b.String()
}

// NewMissingFieldError reports a required field that has no value.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	action := fmt.Sprintf("set %s env var or add %s to conduit.yaml", envVar, yamlPath)
	return &ConfigError{Category: categoryMissing, Field: field, Message: "required", Action: action}
}

// NewInvalidFieldError reports a field whose value is out of range or
// malformed. When validOptions is non-empty the action lists them.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	e := &ConfigError{Category: categoryInvalid, Field: field, Message: message}
	if opts := strings.Join(validOptions, ", "); opts != "" {
		e.Action = "must be one of: " + opts
	}
	return e
}

// NewNotConfiguredError reports an optional feature that is switched off.
func NewNotConfiguredError(feature, envVar, yamlPath string) *ConfigError {
	action := fmt.Sprintf("to enable: set %s env var or add %s to conduit.yaml", envVar, yamlPath)
	return &ConfigError{Category: categoryNotConfigured, Field: feature, Message: "(optional)", Action: action}
}

// NewValidationError reports a field that failed semantic validation.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{Category: categoryInvalid, Field: field, Message: message}
}

// IsNotConfigured reports whether err marks an intentionally unconfigured
// feature, either via a ConfigError carrying the not_configured category or
// the ErrNotConfigured sentinel.
func IsNotConfigured(err error) bool {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Category == categoryNotConfigured {
		return true
	}
	return errors.Is(err, ErrNotConfigured)
}
