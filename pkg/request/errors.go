package request

import (
	"errors"
	"fmt"
)

// ErrRequiredValue is wrapped by validation errors for required parameters without a value.
var ErrRequiredValue = errors.New("required value is nil")

// ErrMissingKey is wrapped by validation errors for keyed parameters without a key.
var ErrMissingKey = errors.New("parameter key is empty")

// ValidationError reports a malformed request parameter.
type ValidationError struct {
	Param string
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("invalid parameter: %v", e.Err)
	}
	return fmt.Sprintf("invalid parameter %q: %v", e.Param, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AuthValidationError is returned by Build when the configured auth
// descriptor cannot be satisfied by the available auth managers.
type AuthValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *AuthValidationError) Error() string {
	return fmt.Sprintf("auth validation failed: %s", e.Message)
}
