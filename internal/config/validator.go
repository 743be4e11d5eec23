package config

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/text/language"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates application configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a configuration. It returns ValidationErrors or
// nil.
func ValidateConfig(config *Config) error {
	v := NewValidator()
	return v.Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&config.Server)
	v.validateLogging(&config.Logging)
	v.validateTracing(&config.Tracing)
	v.validateMetrics(&config.Metrics)
	v.validateLocale(config.Locale)
	v.validatePolicy(config)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(server *ServerConfig) {
	if server.Address == "" {
		v.addError("server.address", "address is required")
	} else if _, _, err := net.SplitHostPort(server.Address); err != nil {
		v.addError("server.address", fmt.Sprintf("invalid address %q: must be host:port", server.Address))
	}

	durations := []struct {
		path  string
		value Duration
	}{
		{"server.readTimeout", server.ReadTimeout},
		{"server.writeTimeout", server.WriteTimeout},
		{"server.shutdownTimeout", server.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			v.addError(d.path, "timeout must not be negative")
		}
	}

	if server.RateLimit.Enabled {
		if server.RateLimit.RequestsPerSecond <= 0 {
			v.addError("server.rateLimit.requestsPerSecond", "requestsPerSecond must be greater than 0")
		}
		if server.RateLimit.Burst < 1 {
			v.addError("server.rateLimit.burst", "burst must be at least 1")
		}
	}
}

func (v *Validator) validateLogging(logging *LoggingConfig) {
	if !observability.ValidLogLevel(logging.Level) {
		v.addError("logging.level", fmt.Sprintf("invalid log level %q", logging.Level))
	}

	switch logging.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", "format must be json or console")
	}
}

func (v *Validator) validateTracing(tracing *TracingConfig) {
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "samplingRate must be between 0 and 1")
	}
	if tracing.Enabled && tracing.Endpoint == "" {
		v.addError("tracing.endpoint", "endpoint is required when tracing is enabled")
	}
}

func (v *Validator) validateMetrics(metrics *MetricsConfig) {
	if metrics.Enabled && !strings.HasPrefix(metrics.Path, "/") {
		v.addError("metrics.path", "path must start with /")
	}
}

func (v *Validator) validateLocale(locale string) {
	if locale == "" {
		return
	}
	if _, err := language.Parse(locale); err != nil {
		v.addError("locale", fmt.Sprintf("invalid locale %q", locale))
	}
}

// validatePolicy reports every field error of the default policy under
// "policy.<field>".
func (v *Validator) validatePolicy(config *Config) {
	for _, e := range backoff.ValidateConfig(config.Policy.Config()) {
		v.addError("policy."+e.Field, e.Message)
	}

	switch backoff.ChartMode(config.Policy.ChartMode) {
	case "", backoff.ChartModeDelay, backoff.ChartModeCumulative:
	default:
		v.addError("policy.chartMode", "chartMode must be delay or cumulative")
	}

	switch backoff.SeriesMode(config.Policy.SeriesMode) {
	case "", backoff.SeriesModeExpected, backoff.SeriesModeSimulated:
	default:
		v.addError("policy.seriesMode", "seriesMode must be expected or simulated")
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
