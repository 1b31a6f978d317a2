// Package ratelimit gates requests on the remaining request budget a server
// reports in its response headers (X-RateLimit-Remaining / X-RateLimit-Reset
// or the RateLimit-* variants). State is kept in Redis per host so every
// process talking to the same API shares one budget.
package ratelimit

import (
	"time"
)

// State is the last reported budget of one host.
type State struct {
	Host string `json:"host"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets and the budget is replenished.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the headers were last seen.
	LastUpdate time.Time `json:"last_update"`

	// Known is false until a response carried the budget headers.
	Known bool `json:"known"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// TimeUntilReset returns the duration until the window resets, or 0 when it
// already has.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// NeedsBlock reports whether requests must wait for the reset.
func (s *State) NeedsBlock(critical int) bool {
	return s.Known && s.Remaining < critical && s.TimeUntilReset() > 0
}

// NeedsThrottling reports whether requests should be slowed down.
func (s *State) NeedsThrottling(critical, warning int) bool {
	return s.Known && s.Remaining < warning && !s.NeedsBlock(critical) && s.TimeUntilReset() > 0
}
