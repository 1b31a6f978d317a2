package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis connects to a local Redis and skips the test when none is
// reachable. tests/integration covers the same paths against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   13,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func newTestTracker(t *testing.T, client *redis.Client, mutate func(*Config)) *Tracker {
	t.Helper()

	cfg := DefaultConfig()
	cfg.ThrottleDelay = 10 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	tracker, err := NewTracker(client, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	return tracker
}

func budget(remaining, reset string) http.Header {
	h := http.Header{}
	if remaining != "" {
		h.Set("X-RateLimit-Remaining", remaining)
	}
	if reset != "" {
		h.Set("X-RateLimit-Reset", reset)
	}
	return h
}

func TestNewTracker_Validation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	tests := []struct {
		name    string
		client  *redis.Client
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", client, nil, false},
		{"nil redis", nil, nil, true},
		{"negative critical", client, func(c *Config) { c.Critical = -1 }, true},
		{"warning below critical", client, func(c *Config) { c.Warning = 1 }, true},
		{"negative throttle", client, func(c *Config) { c.ThrottleDelay = -time.Second }, true},
		{"empty headers use defaults", client, func(c *Config) { c.RemainingHeader, c.ResetHeader = "", "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			tracker, err := NewTracker(tt.client, cfg, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTracker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tracker.config.RemainingHeader != "X-RateLimit-Remaining" {
				t.Errorf("RemainingHeader = %q, want default", tracker.config.RemainingHeader)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	tracker := newTestTracker(t, client, nil)

	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name      string
		header    http.Header
		ok        bool
		wantErr   bool
		remaining int
		resetAt   time.Time
	}{
		{"no budget headers", budget("", ""), false, false, 0, time.Time{}},
		{"seconds until reset", budget("42", "60"), true, false, 42, now.Add(time.Minute)},
		{"unix timestamp reset", budget("7", "1700000090"), true, false, 7, time.Unix(1_700_000_090, 0)},
		{"invalid remaining", budget("many", "60"), false, true, 0, time.Time{}},
		{"missing reset", budget("10", ""), false, true, 0, time.Time{}},
		{"invalid reset", budget("10", "soon"), false, true, 0, time.Time{}},
		{"negative reset", budget("10", "-5"), false, true, 0, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, ok, err := tracker.parseHeaders("api.test", tt.header, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.ok {
				t.Fatalf("parseHeaders() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if state.Remaining != tt.remaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.remaining)
			}
			if !state.ResetAt.Equal(tt.resetAt) {
				t.Errorf("ResetAt = %v, want %v", state.ResetAt, tt.resetAt)
			}
			if !state.Known || state.Host != "api.test" {
				t.Errorf("State = %+v, want known state for api.test", state)
			}
		})
	}
}

func TestParseHeaders_CustomNames(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	tracker := newTestTracker(t, client, func(c *Config) {
		c.RemainingHeader = "RateLimit-Remaining"
		c.ResetHeader = "RateLimit-Reset"
	})

	h := http.Header{}
	h.Set("RateLimit-Remaining", "3")
	h.Set("RateLimit-Reset", "10")
	state, ok, err := tracker.parseHeaders("api.test", h, time.Now())
	if err != nil || !ok {
		t.Fatalf("parseHeaders() = %v, %v", ok, err)
	}
	if state.Remaining != 3 {
		t.Errorf("Remaining = %d, want 3", state.Remaining)
	}
}

func TestTracker_UpdateAndGetState(t *testing.T) {
	tracker := newTestTracker(t, setupTestRedis(t), nil)
	ctx := context.Background()

	state, err := tracker.GetState(ctx, "api.test")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Known {
		t.Error("State should be unknown before any response")
	}

	if err := tracker.UpdateFromHeaders(ctx, "api.test", budget("42", "60")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = tracker.GetState(ctx, "api.test")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.Known || state.Remaining != 42 {
		t.Errorf("State = %+v, want 42 remaining", state)
	}
	if d := state.TimeUntilReset(); d < 58*time.Second || d > 60*time.Second {
		t.Errorf("TimeUntilReset() = %v, want ~60s", d)
	}

	other, err := tracker.GetState(ctx, "other.test")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if other.Known {
		t.Error("Budgets must be tracked per host")
	}
}

func TestTracker_IgnoresResponsesWithoutBudget(t *testing.T) {
	tracker := newTestTracker(t, setupTestRedis(t), nil)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, "api.test", http.Header{}); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	state, _ := tracker.GetState(ctx, "api.test")
	if state.Known {
		t.Error("State should stay unknown")
	}
}

func TestTracker_Acquire(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		blocked   bool
		minWait   time.Duration
	}{
		{"healthy", "100", false, 0},
		{"throttled", "10", false, 10 * time.Millisecond},
		{"blocked", "2", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t, setupTestRedis(t), nil)
			ctx := context.Background()

			if err := tracker.UpdateFromHeaders(ctx, "api.test", budget(tt.remaining, "60")); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			start := time.Now()
			err := tracker.Acquire(ctx, "api.test")
			elapsed := time.Since(start)

			if tt.blocked {
				var blocked *BlockedError
				if !errors.As(err, &blocked) {
					t.Fatalf("Acquire() error = %v, want *BlockedError", err)
				}
				if !errors.Is(err, ErrBlocked) {
					t.Error("BlockedError should wrap ErrBlocked")
				}
				if blocked.Remaining != 2 || blocked.ResetIn <= 0 {
					t.Errorf("BlockedError = %+v", blocked)
				}
			} else if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			if elapsed < tt.minWait {
				t.Errorf("Acquire() waited %v, want >= %v", elapsed, tt.minWait)
			}

			allowed, err := tracker.ShouldAllowRequest(ctx, "api.test")
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed == tt.blocked {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, !tt.blocked)
			}
		})
	}
}

func TestTracker_AllowsAfterReset(t *testing.T) {
	tracker := newTestTracker(t, setupTestRedis(t), nil)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, "api.test", budget("0", "1")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	if allowed, _ := tracker.ShouldAllowRequest(ctx, "api.test"); allowed {
		t.Fatal("Request should be blocked before the reset")
	}

	time.Sleep(1100 * time.Millisecond)

	allowed, err := tracker.ShouldAllowRequest(ctx, "api.test")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("Request should be allowed once the window reset")
	}
}

func TestTracker_ThrottleRespectsContext(t *testing.T) {
	tracker := newTestTracker(t, setupTestRedis(t), func(c *Config) { c.ThrottleDelay = time.Minute })

	if err := tracker.UpdateFromHeaders(context.Background(), "api.test", budget("10", "60")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tracker.Acquire(ctx, "api.test")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want context.DeadlineExceeded", err)
	}
}
