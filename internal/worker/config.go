// Package worker provides the background poll loop and job processing for
// Punctual's notification scheduler.
package worker

import (
	"time"
)

// PollConfig holds configuration for the notification poll loop.
type PollConfig struct {
	// Interval is the time between poll ticks.
	// Default: 30 seconds
	Interval time.Duration

	// TickTimeout bounds the work done in one tick across all three passes.
	// Default: 25 seconds
	TickTimeout time.Duration

	// RunImmediately runs the first tick on start instead of waiting one
	// full interval.
	// Default: true
	RunImmediately bool
}

// DefaultPollConfig returns the default poll loop configuration.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:       30 * time.Second,
		TickTimeout:    25 * time.Second,
		RunImmediately: true,
	}
}

// withDefaults fills in zero values.
func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = 25 * time.Second
	}
	return c
}
