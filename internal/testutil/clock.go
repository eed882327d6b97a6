package testutil

import (
	"context"
	"sync"
	"time"
)

// StepClock is a manual clock for wait-loop tests.
//
// Sleep advances the clock instead of blocking, so a bounded wait of any
// length completes instantly while still counting its polls.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

// NewStepClock creates a clock starting at a fixed instant.
func NewStepClock() *StepClock {
	return &StepClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current manual time.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d, or returns ctx.Err() if ctx is done.
func (c *StepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps++
	return nil
}

// Sleeps returns how many times Sleep was called.
func (c *StepClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

// Reset rewinds the clock and the sleep counter.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.sleeps = 0
}
