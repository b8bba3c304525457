package clock

import "time"

// Clock is the time source for connection timestamps, room lifecycle
// stamps and sweep ages
type Clock interface {
	Now() time.Time
	// Since reports the time elapsed since t by this clock
	Since(t time.Time) time.Duration
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// New creates a SystemClock
func New() SystemClock {
	return SystemClock{}
}

// Now returns the current time in UTC
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Since returns the time elapsed since t
func (SystemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
