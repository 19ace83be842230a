// Package sessiontest provides test doubles for the session package.
package sessiontest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/toolgate/internal/session"
)

// Clock is a manually advanced clock for Gate tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// MockGate is a configurable gate double. With no CheckFunc every call is
// allowed.
type MockGate struct {
	CheckFunc func(tool string) session.Decision

	mu     sync.Mutex
	checks []string
	usage  []string
}

// Check records the tool and returns CheckFunc's decision.
func (m *MockGate) Check(tool string) session.Decision {
	m.mu.Lock()
	m.checks = append(m.checks, tool)
	m.mu.Unlock()

	if m.CheckFunc != nil {
		return m.CheckFunc(tool)
	}
	return session.Decision{Allowed: true}
}

// RecordToolUsage records the tool.
func (m *MockGate) RecordToolUsage(tool string) {
	m.mu.Lock()
	m.usage = append(m.usage, tool)
	m.mu.Unlock()
}

// Checks returns the tools passed to Check, in order.
func (m *MockGate) Checks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.checks)
}

// Usage returns the tools passed to RecordToolUsage, in order.
func (m *MockGate) Usage() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.usage)
}

// FailingHistory is a session.History whose Archive always fails.
type FailingHistory struct {
	Err error
}

// Archive implements session.History.
func (f FailingHistory) Archive(context.Context, session.Record) error { return f.Err }

// Recent implements session.History.
func (f FailingHistory) Recent(context.Context, int) ([]session.Record, error) { return nil, f.Err }
