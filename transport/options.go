package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gaborage/go-conduit/config"
)

// DefaultHandlerLifetime is how long a pooled chain serves requests after
// its first hand-out before it is rotated.
const DefaultHandlerLifetime = 2 * time.Minute

// optionsValidator is shared; validator.Validate is safe for concurrent use.
var optionsValidator = validator.New(validator.WithRequiredStructEnabled())

// Options is the per-name pipeline configuration. An Options value is fixed
// into a chain at build time; only Mutators are consulted again on every
// hand-out, because they configure the handle rather than the chain.
type Options struct {
	// CommandGroup and CommandName identify the logical operation in log
	// events and metric tags. Both default to the client name.
	CommandGroup string `validate:"omitempty,printascii,max=100"`
	CommandName  string `validate:"omitempty,printascii,max=100"`

	// EnableLogging inserts the logging stage. Default: true.
	EnableLogging bool
	// EnableMetrics inserts the metrics stage. Default: true.
	EnableMetrics bool

	// EnableDetailedRequestTracing captures query string, request body, and
	// request headers on log events. Default: false.
	EnableDetailedRequestTracing bool
	// EnableDetailedResponseTracing captures response body and response
	// headers on log events. Default: false.
	EnableDetailedResponseTracing bool

	// TreatNonSuccessAsErrorsWhenLogging escalates responses at or above the
	// error floor to error severity. Default: false.
	TreatNonSuccessAsErrorsWhenLogging bool
	// Treat4xxAsErrorsWhenLogging sets the error floor to 400 instead of 500.
	// Only consulted when TreatNonSuccessAsErrorsWhenLogging is set.
	// Default: true.
	Treat4xxAsErrorsWhenLogging bool
	// TreatErrorsAsWarningsWhenLogging downgrades escalated events from error
	// to warning severity. Default: false.
	TreatErrorsAsWarningsWhenLogging bool

	// HandlerLifetime bounds how long a pooled chain is used after its first
	// hand-out. Zero means DefaultHandlerLifetime; negative is rejected.
	HandlerLifetime time.Duration `validate:"min=0"`

	// Mutators run against every handle on hand-out, in order.
	Mutators []ClientMutator `validate:"-"`
}

// DefaultOptions returns the documented default configuration.
func DefaultOptions() Options {
	return Options{
		EnableLogging:               true,
		EnableMetrics:               true,
		Treat4xxAsErrorsWhenLogging: true,
		HandlerLifetime:             DefaultHandlerLifetime,
	}
}

// Validate reports whether the options violate their contract.
func (o *Options) Validate() error {
	if o.HandlerLifetime < 0 {
		return NewValidationError("handler lifetime must be zero or positive", "HandlerLifetime")
	}

	if err := optionsValidator.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return NewValidationError(
				fmt.Sprintf("invalid value for %s (failed %q)", first.Field(), first.Tag()),
				first.Field(),
			)
		}
		return NewConfigurationError("options validation failed", err)
	}

	return nil
}

// normalized returns a copy with the name-derived and zero-value defaults
// resolved, ready to be fixed into a chain.
func (o Options) normalized(name string) Options {
	if o.CommandGroup == "" {
		o.CommandGroup = name
	}
	if o.CommandName == "" {
		o.CommandName = name
	}
	if o.HandlerLifetime == 0 {
		o.HandlerLifetime = DefaultHandlerLifetime
	}
	return o
}

// ApplyClientConfig overlays a declared transport.clients.<name> block onto
// the receiver. Pointer toggles keep the receiver's value when unset, so
// library defaults survive sparse YAML.
func (o Options) ApplyClientConfig(cc config.ClientConfig) Options {
	if cc.Group != "" {
		o.CommandGroup = cc.Group
	}
	if cc.Command != "" {
		o.CommandName = cc.Command
	}
	if cc.Lifetime > 0 {
		o.HandlerLifetime = cc.Lifetime
	}

	if cc.Logging.Enabled != nil {
		o.EnableLogging = *cc.Logging.Enabled
	}
	o.EnableDetailedRequestTracing = cc.Logging.Trace.Request
	o.EnableDetailedResponseTracing = cc.Logging.Trace.Response
	o.TreatNonSuccessAsErrorsWhenLogging = cc.Logging.Errors.Enabled
	if cc.Logging.Errors.Include4xx != nil {
		o.Treat4xxAsErrorsWhenLogging = *cc.Logging.Errors.Include4xx
	}
	o.TreatErrorsAsWarningsWhenLogging = cc.Logging.Errors.AsWarnings

	if cc.Metrics.Enabled != nil {
		o.EnableMetrics = *cc.Metrics.Enabled
	}

	return o
}

// OptionsFromClientConfig resolves a declared client block against the
// library defaults.
func OptionsFromClientConfig(cc config.ClientConfig) Options {
	return DefaultOptions().ApplyClientConfig(cc)
}
