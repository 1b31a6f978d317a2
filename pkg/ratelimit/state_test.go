package ratelimit

import (
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *State
		maxAge   time.Duration
		expected bool
	}{
		{"fresh state", &State{LastUpdate: time.Now()}, 5 * time.Minute, false},
		{"stale state", &State{LastUpdate: time.Now().Add(-10 * time.Minute)}, 5 * time.Minute, true},
		{"just under max age", &State{LastUpdate: time.Now().Add(-4 * time.Minute)}, 5 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_Decisions(t *testing.T) {
	future := time.Now().Add(time.Minute)
	past := time.Now().Add(-time.Second)

	tests := []struct {
		name     string
		state    State
		block    bool
		throttle bool
	}{
		{"unknown budget", State{Remaining: 0, ResetAt: future}, false, false},
		{"healthy", State{Known: true, Remaining: 100, ResetAt: future}, false, false},
		{"at warning threshold", State{Known: true, Remaining: 20, ResetAt: future}, false, false},
		{"below warning threshold", State{Known: true, Remaining: 19, ResetAt: future}, false, true},
		{"at critical threshold", State{Known: true, Remaining: 5, ResetAt: future}, false, true},
		{"below critical threshold", State{Known: true, Remaining: 4, ResetAt: future}, true, false},
		{"exhausted", State{Known: true, Remaining: 0, ResetAt: future}, true, false},
		{"exhausted but window reset", State{Known: true, Remaining: 0, ResetAt: past}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.NeedsBlock(5); got != tt.block {
				t.Errorf("NeedsBlock() = %v, want %v", got, tt.block)
			}
			if got := tt.state.NeedsThrottling(5, 20); got != tt.throttle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.throttle)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	future := &State{ResetAt: time.Now().Add(30 * time.Second)}
	if d := future.TimeUntilReset(); d <= 29*time.Second || d > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want ~30s", d)
	}

	past := &State{ResetAt: time.Now().Add(-30 * time.Second)}
	if d := past.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0 for past reset", d)
	}
}
