package tracker

import "time"

// Clock provides time for session accounting.
// This interface allows time to be mocked in tests.
type Clock interface {
	Now() time.Time
}

// RealClock provides actual system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// TestClock provides a programmable time for testing.
type TestClock struct {
	CurrentTime time.Time
}

// Now returns the test time.
func (c *TestClock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the test time forward.
func (c *TestClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}
