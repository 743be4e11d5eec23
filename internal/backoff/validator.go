package backoff

import (
	"fmt"
	"math"
	"strings"
)

// MaxRetriesLimit is the largest accepted MaxRetries.
const MaxRetriesLimit = 1000

// Field names reported by ValidationError.
const (
	FieldConfig         = "config"
	FieldStrategy       = "strategy"
	FieldInitialDelayMs = "initialDelayMs"
	FieldMaxRetries     = "maxRetries"
	FieldMaxDelayMs     = "maxDelayMs"
	FieldFactor         = "factor"
	FieldIncrementMs    = "incrementMs"
	FieldJitter         = "jitter"
)

// ValidationError is a field-tagged configuration problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
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

// Messages returns the messages joined with a single space.
func (e ValidationErrors) Messages() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, " ")
}

// ForField returns the errors reported for field.
func (e ValidationErrors) ForField(field string) ValidationErrors {
	var out ValidationErrors
	for _, err := range e {
		if err.Field == field {
			out = append(out, err)
		}
	}
	return out
}

// Validator validates backoff configurations.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a backoff configuration. The result is empty when
// the configuration can be computed; it is never nil-panicking and never stops
// at the first problem.
func ValidateConfig(cfg *BackoffConfig) ValidationErrors {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns every problem found.
func (v *Validator) Validate(cfg *BackoffConfig) ValidationErrors {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError(FieldConfig, "Configuration is required.")
		return v.errors
	}

	v.validateStrategy(cfg.Strategy)
	v.validateInitialDelay(cfg.InitialDelayMs)
	v.validateMaxRetries(cfg.MaxRetries)
	v.validateMaxDelay(cfg.MaxDelayMs)

	switch cfg.Strategy {
	case StrategyExponential:
		v.validateFactor(cfg.Factor)
	case StrategyLinear:
		v.validateIncrement(cfg.IncrementMs)
	}

	v.validateJitter(cfg.Jitter)

	return v.errors
}

func (v *Validator) validateStrategy(s Strategy) {
	if !s.IsValid() {
		v.addError(FieldStrategy, "Strategy must be exponential, linear or fixed.")
	}
}

func (v *Validator) validateInitialDelay(d float64) {
	if !isFinite(d) || d < 0 {
		v.addError(FieldInitialDelayMs, "Initial delay must be a number greater than or equal to 0.")
	}
}

func (v *Validator) validateMaxRetries(n float64) {
	if !isFinite(n) || n != math.Trunc(n) || n < 0 || n > MaxRetriesLimit {
		v.addError(FieldMaxRetries,
			fmt.Sprintf("Max retries must be an integer between 0 and %d.", MaxRetriesLimit))
	}
}

func (v *Validator) validateMaxDelay(d *float64) {
	if d == nil {
		return
	}
	if !isFinite(*d) || *d < 0 {
		v.addError(FieldMaxDelayMs, "Max delay must be empty or a number greater than or equal to 0.")
	}
}

func (v *Validator) validateFactor(f float64) {
	if !isFinite(f) || f <= 1 {
		v.addError(FieldFactor, "Factor must be a number greater than 1.")
	}
}

func (v *Validator) validateIncrement(inc float64) {
	if !isFinite(inc) || inc < 0 {
		v.addError(FieldIncrementMs, "Increment must be a number greater than or equal to 0.")
	}
}

func (v *Validator) validateJitter(j Jitter) {
	if j != "" && !j.IsValid() {
		v.addError(FieldJitter, "Jitter must be none, equal or full.")
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
