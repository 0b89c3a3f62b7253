// Package watchdog provides a deadline counter for detecting loss of
// periodic activity. A task resets the counter on every successful exchange
// with its device; the main loop polls Overflow each iteration and escalates
// when the counter expires. Expiry reports true exactly once per reset so a
// tight loop does not escalate the same silence repeatedly.
package watchdog

import (
	"time"
)

// Counter is a deadline timer over a monotonic clock. Not safe for
// concurrent use: a counter belongs to a single task goroutine.
type Counter struct {
	top      time.Duration
	deadline time.Time
	reported bool
	now      func() time.Time
}

// New creates a counter with the given top and arms it immediately.
func New(top time.Duration) *Counter {
	c := &Counter{now: time.Now}
	c.SetTop(top)
	return c
}

// NewWithClock creates a counter with an injected clock. Used by tests.
func NewWithClock(top time.Duration, now func() time.Time) *Counter {
	c := &Counter{now: now}
	c.SetTop(top)
	return c
}

// SetTop sets the expiry period and resets the counter.
func (c *Counter) SetTop(top time.Duration) {
	c.top = top
	c.Reset()
}

// Top returns the configured expiry period.
func (c *Counter) Top() time.Duration { return c.top }

// Reset re-arms the counter from now.
func (c *Counter) Reset() {
	c.deadline = c.now().Add(c.top)
	c.reported = false
}

// Overflow reports whether the counter expired. After an expiry it returns
// true once and false thereafter until the next Reset.
func (c *Counter) Overflow() bool {
	if c.reported {
		return false
	}
	if c.now().Before(c.deadline) {
		return false
	}
	c.reported = true
	return true
}

// Remaining returns the time left before expiry, clamped at zero.
func (c *Counter) Remaining() time.Duration {
	left := c.deadline.Sub(c.now())
	if left < 0 {
		return 0
	}
	return left
}
