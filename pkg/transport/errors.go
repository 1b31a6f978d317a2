package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrRetryExhausted wraps the last failure once the attempts of its class are used up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when ctx ends while waiting between attempts.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass groups failed requests by how they should be handled.
type ErrorClass string

const (
	ErrorClassClient    ErrorClass = "client"     // 4xx except 429
	ErrorClassServer    ErrorClass = "server"     // 5xx
	ErrorClassRateLimit ErrorClass = "rate_limit" // 429
	ErrorClassNetwork   ErrorClass = "network"    // dial, TLS, timeouts
)

// Retryable reports whether another attempt may succeed.
func (c ErrorClass) Retryable() bool {
	return c == ErrorClassServer || c == ErrorClassRateLimit || c == ErrorClassNetwork
}

// ClassifyStatus returns the error class of an HTTP status, or "" for non-errors.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	}
	return ""
}

// StatusError is a retryable HTTP status seen inside the retry loop. It never
// leaves Execute: the last response is returned instead.
type StatusError struct {
	StatusCode int
	ErrorClass ErrorClass

	// RetryAfter is the server-requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.ErrorClass, e.StatusCode, http.StatusText(e.StatusCode))
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(header http.Header, now time.Time) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
