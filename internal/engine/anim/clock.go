package anim

import "time"

// Clock is a monotonic time source for animation playback.
type Clock interface {
	// Now returns the time elapsed since an arbitrary fixed origin.
	Now() time.Duration
}

// SystemClock reads the process monotonic clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock whose origin is the moment of the call.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now implements Clock.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}

// ManualClock is a clock advanced explicitly by the caller.
type ManualClock struct {
	now time.Duration
}

// Now implements Clock.
func (c *ManualClock) Now() time.Duration {
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now += d
}

// Set moves the clock to an absolute reading.
func (c *ManualClock) Set(now time.Duration) {
	c.now = now
}
