package clock

import (
	"sync"
	"time"
)

// Clock is the time source used for record timestamps.
type Clock interface {
	Now() time.Time
}

// RealClock returns wall-clock time in UTC.
type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock is a manually driven Clock for tests. It is safe for concurrent use.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// Advance moves the clock forward (or backward for negative d).
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	c.mu.Unlock()
}
