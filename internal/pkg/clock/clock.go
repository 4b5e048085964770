package clock

import (
	"sync"
	"time"
)

// Clock abstracts the current time so date rules can be tested.
type Clock interface {
	Now() time.Time
}

// RealClock reports the system time in a fixed location.
type RealClock struct {
	loc *time.Location
}

// NewRealClock returns a clock reporting times in loc (UTC when nil).
func NewRealClock(loc *time.Location) *RealClock {
	if loc == nil {
		loc = time.UTC
	}
	return &RealClock{loc: loc}
}

func (c *RealClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// MockClock is a settable clock for tests.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}
