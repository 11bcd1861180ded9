package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaborage/go-conduit/internal/reflection"
)

// Error is the contract all transport-layer errors satisfy. The category
// feeds the metrics error tag, so it stays bounded.
type Error interface {
	error
	Type() ErrorType
}

// ErrorType categorizes a transport error.
type ErrorType string

const (
	ValidationError    ErrorType = "validation"
	DisposedError      ErrorType = "disposed"
	ConfigurationError ErrorType = "configuration"
)

// transportError is the one concrete implementation behind Error. The
// rendered message is "<category> error: <message><detail>", with the cause
// appended when present.
type transportError struct {
	kind    ErrorType
	message string
	detail  string
	cause   error
}

func (e *transportError) Error() string {
	s := string(e.kind) + " error: " + e.message + e.detail
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *transportError) Type() ErrorType {
	return e.kind
}

func (e *transportError) Unwrap() error {
	return e.cause
}

// NewValidationError reports a contract violation caught before any work
// starts. The field name, when given, is appended to the message.
func NewValidationError(message, field string) Error {
	e := &transportError{kind: ValidationError, message: message}
	if field != "" {
		e.detail = fmt.Sprintf(" (field: %s)", field)
	}
	return e
}

// NewDisposedError reports use of a pool that has been shut down.
func NewDisposedError(name string) Error {
	e := &transportError{kind: DisposedError, message: "pool is shut down"}
	if name != "" {
		e.detail = fmt.Sprintf(" (client: %s)", name)
	}
	return e
}

// NewConfigurationError reports unusable client or pool configuration,
// wrapping the underlying cause when there is one.
func NewConfigurationError(message string, cause error) Error {
	return &transportError{kind: ConfigurationError, message: message, cause: cause}
}

// IsErrorType reports whether err, or anything it wraps, is a transport
// Error of the given category.
func IsErrorType(err error, errorType ErrorType) bool {
	var terr Error
	return errors.As(err, &terr) && terr.Type() == errorType
}

// IsSuccessStatus reports whether the status code is in the 2xx range.
func IsSuccessStatus(statusCode int) bool {
	return statusCode/100 == 2
}

// errorTypeName derives a bounded-cardinality tag value for a transport
// failure: context outcomes collapse to fixed names, transport errors use
// their category, everything else uses the package-qualified type name.
func errorTypeName(err error) string {
	if err == nil {
		return "unknown"
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var terr Error
	if errors.As(err, &terr) {
		return string(terr.Type())
	}

	if name := reflection.TypeName(err); name != "" {
		return name
	}
	return "unknown"
}
