// Package timeutil provides the clock used to timestamp and time runs.
package timeutil

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock reads so run bookkeeping can be tested.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a manually driven clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock returns a MockClock reading t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Throttle reports true at most once per interval, measured on a Clock.
// The first call always reports true. The zero interval never throttles.
type Throttle struct {
	Clock    Clock
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
	seen bool
}

// Ready reports whether an interval has passed since the last true result.
func (t *Throttle) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.Clock.Now()
	if t.seen && now.Sub(t.last) < t.Interval {
		return false
	}
	t.seen = true
	t.last = now
	return true
}
