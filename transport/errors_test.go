package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyUpstreamError struct{}

func (flakyUpstreamError) Error() string {
	return "upstream hiccup"
}

func TestErrorConstructors(t *testing.T) {
	t.Run("validation_error_with_field", func(t *testing.T) {
		err := NewValidationError("client name must not be empty", "name")
		require.Error(t, err)
		assert.Equal(t, ValidationError, err.Type())
		assert.Equal(t, "validation error: client name must not be empty (field: name)", err.Error())
	})

	t.Run("validation_error_without_field", func(t *testing.T) {
		err := NewValidationError("bad options", "")
		assert.Equal(t, "validation error: bad options", err.Error())
	})

	t.Run("disposed_error_with_name", func(t *testing.T) {
		err := NewDisposedError("billing_api")
		assert.Equal(t, DisposedError, err.Type())
		assert.Equal(t, "disposed error: pool is shut down (client: billing_api)", err.Error())
	})

	t.Run("disposed_error_without_name", func(t *testing.T) {
		err := NewDisposedError("")
		assert.Equal(t, "disposed error: pool is shut down", err.Error())
	})

	t.Run("configuration_error_wraps_cause", func(t *testing.T) {
		cause := errors.New("dial failed")
		err := NewConfigurationError("failed to build inner transport", cause)
		assert.Equal(t, ConfigurationError, err.Type())
		assert.Equal(t, "configuration error: failed to build inner transport: dial failed", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("configuration_error_without_cause", func(t *testing.T) {
		err := NewConfigurationError("missing factory", nil)
		assert.Equal(t, "configuration error: missing factory", err.Error())
	})
}

func TestIsErrorType(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		errorType ErrorType
		expected  bool
	}{
		{
			name:      "nil_error",
			err:       nil,
			errorType: ValidationError,
			expected:  false,
		},
		{
			name:      "matching_type",
			err:       NewValidationError("bad", "field"),
			errorType: ValidationError,
			expected:  true,
		},
		{
			name:      "mismatched_type",
			err:       NewValidationError("bad", "field"),
			errorType: DisposedError,
			expected:  false,
		},
		{
			name:      "wrapped_transport_error",
			err:       fmt.Errorf("outer: %w", NewDisposedError("x")),
			errorType: DisposedError,
			expected:  true,
		},
		{
			name:      "plain_error",
			err:       errors.New("plain"),
			errorType: ValidationError,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsErrorType(tt.err, tt.errorType))
		})
	}
}

func TestIsSuccessStatus(t *testing.T) {
	assert.False(t, IsSuccessStatus(199))
	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(204))
	assert.True(t, IsSuccessStatus(299))
	assert.False(t, IsSuccessStatus(300))
	assert.False(t, IsSuccessStatus(404))
	assert.False(t, IsSuccessStatus(500))
}

func TestErrorTypeName(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil_error",
			err:      nil,
			expected: "unknown",
		},
		{
			name:     "deadline_exceeded",
			err:      context.DeadlineExceeded,
			expected: "timeout",
		},
		{
			name:     "wrapped_deadline_exceeded",
			err:      fmt.Errorf("request aborted: %w", context.DeadlineExceeded),
			expected: "timeout",
		},
		{
			name:     "context_canceled",
			err:      context.Canceled,
			expected: "canceled",
		},
		{
			name:     "url_error_carrying_deadline",
			err:      &url.Error{Op: "Get", URL: "https://api.example.com", Err: context.DeadlineExceeded},
			expected: "timeout",
		},
		{
			name:     "transport_error_uses_category",
			err:      NewConfigurationError("broken", nil),
			expected: "configuration",
		},
		{
			name:     "url_error_uses_type_name",
			err:      &url.Error{Op: "Get", URL: "https://api.example.com", Err: io.ErrUnexpectedEOF},
			expected: "url.Error",
		},
		{
			name:     "custom_struct_error",
			err:      flakyUpstreamError{},
			expected: "transport.flakyUpstreamError",
		},
		{
			name:     "pointer_error_dereferenced",
			err:      &flakyUpstreamError{},
			expected: "transport.flakyUpstreamError",
		},
		{
			name:     "stdlib_error_string",
			err:      errors.New("plain"),
			expected: "errors.errorString",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errorTypeName(tt.err))
		})
	}
}
