package apicall

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/apicore/pkg/transport"
)

var (
	// ErrNoTransport is returned when a call is executed without a transport.
	ErrNoTransport = errors.New("a transport is required to execute an API call")

	// ErrNoRequest is returned when a call is executed without a request builder.
	ErrNoRequest = errors.New("a request builder is required to execute an API call")
)

// APIError is a non-2xx response matched by an error case.
type APIError struct {
	StatusCode int
	ErrorClass transport.ErrorClass
	Message    string

	// Response is the response that produced the error.
	Response *transport.Response

	// Err is an optional cause.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the status class is transient.
func (e *APIError) IsRetryable() bool {
	return e.ErrorClass.Retryable()
}
