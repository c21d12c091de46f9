package clock

import "time"

// FakeClock is a manually advanced Clock. Tests use it to pin issuance
// windows and expiry sweeps to a fixed instant instead of racing the
// wall clock.
type FakeClock struct {
	current time.Time
}

// NewFakeClock returns a FakeClock frozen at t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.current
}

// Advance moves the frozen instant forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}
