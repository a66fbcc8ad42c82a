package puf

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotEnrolled is returned when a controller is queried before
	// enrollment.
	ErrNotEnrolled = errors.New("controller is not enrolled")

	// ErrAlreadyEnrolled is returned by a second call to Enroll.
	ErrAlreadyEnrolled = errors.New("controller is already enrolled")
)

// ConfigurationError reports a parameter that makes an operation impossible,
// such as a codec built for the wrong response length.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration of %s: %v", e.Field, e.Err)
}

// Unwrap exposes both ErrConfiguration and the underlying cause.
func (e *ConfigurationError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

func configError(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}
