package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the backoff parameters of one error class.
type RetryConfig struct {
	// MaxAttempts counts the initial request.
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// RetryPolicy selects the retry configuration for an error class.
type RetryPolicy func(ErrorClass) RetryConfig

// DefaultRetryConfig applies to classes without a dedicated configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass is the default RetryPolicy. Rate limits back off
// longest, server errors shortest.
func RetryConfigForErrorClass(errorClass ErrorClass) RetryConfig {
	cfg := DefaultRetryConfig()
	switch errorClass {
	case ErrorClassServer:
		cfg.MaxBackoff = 10 * time.Second
	case ErrorClassRateLimit:
		cfg.InitialBackoff = 5 * time.Second
		cfg.MaxBackoff = 60 * time.Second
	case ErrorClassNetwork:
		cfg.InitialBackoff = 2 * time.Second
	}
	return cfg
}

// delay returns the wait before the next attempt: the server's Retry-After
// when given, otherwise backoff with ±20% jitter. Both are capped at MaxBackoff.
func (c RetryConfig) delay(backoff time.Duration, err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return min(statusErr.RetryAfter, c.MaxBackoff)
	}
	return min(time.Duration(float64(backoff)*(0.8+rand.Float64()*0.4)), c.MaxBackoff)
}

// retryWithBackoff runs fn until it succeeds, fails with a class that is not
// retryable, or uses up the attempts of the class of its first failure.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, policy RetryPolicy, fn func() error, classify func(error) ErrorClass) error {
	var (
		class   ErrorClass
		cfg     RetryConfig
		backoff time.Duration
	)

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("error_class", string(class)).Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return nil
		}

		class = classify(err)
		if !class.Retryable() {
			return err
		}
		if attempt == 1 {
			cfg = policy(class)
			backoff = cfg.InitialBackoff
		}
		if attempt >= cfg.MaxAttempts {
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
			logger.Warn().Str("error_class", string(class)).Int("max_attempts", cfg.MaxAttempts).Msg("Retry attempts exhausted")
			return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, err)
		}

		wait := cfg.delay(backoff, err)
		retriesTotal.WithLabelValues(string(class)).Inc()
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())
		logger.Debug().Str("error_class", string(class)).Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		backoff = min(time.Duration(float64(backoff)*cfg.BackoffMultiplier), cfg.MaxBackoff)
	}
}
