package clock

import (
	"sync"
	"time"
)

// Clock is the single source of "now" for the guard and the jail
type Clock interface {
	Now() time.Time
}

// System reads the wall clock. Values returned by time.Now carry a monotonic
// reading, so Sub between two of them is immune to wall clock steps.
type System struct{}

// Now returns the current time
func (System) Now() time.Time {
	return time.Now()
}

// Manual is a clock that only moves when told to. Used by tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the clock's current time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
