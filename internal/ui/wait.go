package ui

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default wait policy, matching the UI tests this harness replaces.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// TimeoutError is returned when a bounded wait for a UI state elapses.
type TimeoutError struct {
	What  string        // what was being waited for
	After time.Duration // the configured bound
	Last  error         // last read error, if the state could not be read at all
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("timed out after %s waiting for %s: %v", e.After, e.What, e.Last)
	}
	return fmt.Sprintf("timed out after %s waiting for %s", e.After, e.What)
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

// Clock abstracts time for the wait loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}

// Waiter polls a condition until it holds or a bounded wait elapses.
type Waiter struct {
	Timeout  time.Duration
	Interval time.Duration
	Clock    Clock
}

// NewWaiter creates a waiter; zero durations fall back to the defaults.
func NewWaiter(timeout, interval time.Duration) Waiter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Waiter{Timeout: timeout, Interval: interval, Clock: RealClock()}
}

// Until calls cond until it reports true.
//
// ErrNotFound from cond is retried: the element may not have rendered yet.
// Any other error is returned immediately. When the bound elapses Until
// returns a *TimeoutError carrying the last ErrNotFound, if any. A cancelled
// ctx returns ctx.Err().
func (w Waiter) Until(ctx context.Context, what string, cond func(ctx context.Context) (bool, error)) error {
	clock := w.Clock
	if clock == nil {
		clock = RealClock()
	}
	deadline := clock.Now().Add(w.Timeout)

	var last error
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := cond(ctx)
		switch {
		case err == nil && ok:
			return nil
		case err == nil:
			last = nil
		case errors.Is(err, ErrNotFound):
			last = err
		default:
			return err
		}

		if !clock.Now().Before(deadline) {
			return &TimeoutError{What: what, After: w.Timeout, Last: last}
		}
		if err := clock.Sleep(ctx, w.Interval); err != nil {
			return err
		}
	}
}
