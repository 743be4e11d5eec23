package backoff

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel matched by every InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid configuration")

// InvalidConfigError is returned when a computation is asked to run on a
// configuration that does not pass ValidateConfig.
type InvalidConfigError struct {
	Errors ValidationErrors
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	if len(e.Errors) == 0 {
		return ErrInvalidConfig.Error()
	}
	return ErrInvalidConfig.Error() + ": " + e.Errors.Messages()
}

// Unwrap returns the sentinel error.
func (e *InvalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Is checks if the error matches the target.
func (e *InvalidConfigError) Is(target error) bool {
	_, ok := target.(*InvalidConfigError)
	return ok || target == ErrInvalidConfig
}

// requireValid re-runs validation and converts failures into an
// InvalidConfigError.
func requireValid(cfg *BackoffConfig) error {
	if errs := ValidateConfig(cfg); errs.HasErrors() {
		return &InvalidConfigError{Errors: errs}
	}
	return nil
}

// ErrScheduleOverflow is the sentinel matched by every OverflowError.
var ErrScheduleOverflow = errors.New("schedule overflows")

// OverflowError is returned when an uncapped schedule grows past the float64
// range. Retry is the first retry whose delays are no longer finite.
type OverflowError struct {
	Retry int
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s at retry %d; set a maximum delay or lower the retry count",
		ErrScheduleOverflow.Error(), e.Retry)
}

// Unwrap returns the sentinel error.
func (e *OverflowError) Unwrap() error {
	return ErrScheduleOverflow
}

// ValidationError reports the overflow against the retry count.
func (e *OverflowError) ValidationError() ValidationError {
	return ValidationError{Field: FieldMaxRetries, Message: e.Error()}
}
