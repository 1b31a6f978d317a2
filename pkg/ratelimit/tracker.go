package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrBlocked is wrapped by every *BlockedError.
var ErrBlocked = errors.New("rate limit budget exhausted")

// BlockedError reports a request refused before it was sent.
type BlockedError struct {
	Host      string
	Remaining int
	ResetIn   time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("rate limit for %s: %d remaining, resets in %s", e.Host, e.Remaining, e.ResetIn.Round(time.Second))
}

// Unwrap implements error unwrapping for errors.Is.
func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}

// epochThreshold separates reset values given as Unix timestamps from values
// given as seconds until the reset.
const epochThreshold = 1_000_000_000

// Config holds the tracker configuration.
type Config struct {
	// Prefix namespaces the Redis keys.
	Prefix string

	// RemainingHeader carries the requests left in the window.
	RemainingHeader string

	// ResetHeader carries the reset as seconds from now or a Unix timestamp.
	ResetHeader string

	// Critical blocks requests when fewer requests remain.
	Critical int

	// Warning delays requests by ThrottleDelay when fewer requests remain.
	Warning       int
	ThrottleDelay time.Duration
}

// DefaultConfig returns the configuration for X-RateLimit-* headers.
func DefaultConfig() Config {
	return Config{
		Prefix:          "apicore",
		RemainingHeader: "X-RateLimit-Remaining",
		ResetHeader:     "X-RateLimit-Reset",
		Critical:        5,
		Warning:         20,
		ThrottleDelay:   time.Second,
	}
}

// Tracker records the budget reported by responses and gates requests.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewTracker creates a tracker. Empty header names fall back to DefaultConfig.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) (*Tracker, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	def := DefaultConfig()
	if cfg.RemainingHeader == "" {
		cfg.RemainingHeader = def.RemainingHeader
	}
	if cfg.ResetHeader == "" {
		cfg.ResetHeader = def.ResetHeader
	}
	if cfg.Critical < 0 || cfg.Warning < cfg.Critical {
		return nil, fmt.Errorf("thresholds must satisfy 0 <= critical <= warning (got %d, %d)", cfg.Critical, cfg.Warning)
	}
	if cfg.ThrottleDelay < 0 {
		return nil, fmt.Errorf("throttle_delay must be >= 0 (got %s)", cfg.ThrottleDelay)
	}
	return &Tracker{redis: redisClient, config: cfg, logger: logger}, nil
}

func (t *Tracker) redisKey(host string) string {
	key := "ratelimit:" + host
	if t.config.Prefix == "" {
		return key
	}
	return t.config.Prefix + ":" + key
}

// GetState returns the stored state of host, or an unknown state when no
// response reported a budget in the current window.
func (t *Tracker) GetState(ctx context.Context, host string) (*State, error) {
	data, err := t.redis.Get(ctx, t.redisKey(host)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &State{Host: host}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode rate limit state: %w", err)
	}
	return &state, nil
}

// UpdateFromHeaders stores the budget reported by a response. Responses
// without the remaining header are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, host string, header http.Header) error {
	state, ok, err := t.parseHeaders(host, header, time.Now())
	if err != nil || !ok {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode rate limit state: %w", err)
	}
	// The state is only meaningful until the window resets.
	ttl := state.TimeUntilReset() + time.Second
	if err := t.redis.Set(ctx, t.redisKey(host), data, ttl).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	remainingGauge.WithLabelValues(host).Set(float64(state.Remaining))

	level := zerolog.DebugLevel
	switch {
	case state.NeedsBlock(t.config.Critical):
		level = zerolog.ErrorLevel
	case state.NeedsThrottling(t.config.Critical, t.config.Warning):
		level = zerolog.WarnLevel
	}
	t.logger.WithLevel(level).
		Str("host", host).
		Int("remaining", state.Remaining).
		Time("reset_at", state.ResetAt).
		Msg("Rate limit state updated")
	return nil
}

func (t *Tracker) parseHeaders(host string, header http.Header, now time.Time) (*State, bool, error) {
	remainStr := strings.TrimSpace(header.Get(t.config.RemainingHeader))
	if remainStr == "" {
		return nil, false, nil
	}
	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s header: %w", t.config.RemainingHeader, err)
	}

	resetStr := strings.TrimSpace(header.Get(t.config.ResetHeader))
	if resetStr == "" {
		return nil, false, fmt.Errorf("%s header missing", t.config.ResetHeader)
	}
	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil || reset < 0 {
		return nil, false, fmt.Errorf("parse %s header: invalid value %q", t.config.ResetHeader, resetStr)
	}

	resetAt := now.Add(time.Duration(reset) * time.Second)
	if reset >= epochThreshold {
		resetAt = time.Unix(reset, 0)
	}
	return &State{
		Host:       host,
		Remaining:  remain,
		ResetAt:    resetAt,
		LastUpdate: now,
		Known:      true,
	}, true, nil
}

// Acquire returns a *BlockedError when host's budget is below the critical
// threshold and waits ThrottleDelay when it is below the warning threshold.
func (t *Tracker) Acquire(ctx context.Context, host string) error {
	state, err := t.GetState(ctx, host)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsBlock(t.config.Critical) {
		blocksTotal.WithLabelValues(host).Inc()
		t.logger.Error().
			Str("host", host).
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")
		return &BlockedError{Host: host, Remaining: state.Remaining, ResetIn: state.TimeUntilReset()}
	}

	if state.NeedsThrottling(t.config.Critical, t.config.Warning) && t.config.ThrottleDelay > 0 {
		throttlesTotal.WithLabelValues(host).Inc()
		t.logger.Warn().
			Str("host", host).
			Int("remaining", state.Remaining).
			Msg("Rate limit warning - throttling request")

		timer := time.NewTimer(t.config.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// ShouldAllowRequest reports whether a request to host may be sent. It may
// wait ThrottleDelay before returning true.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, host string) (bool, error) {
	err := t.Acquire(ctx, host)
	if errors.Is(err, ErrBlocked) {
		return false, nil
	}
	return err == nil, err
}
