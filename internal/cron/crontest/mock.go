// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/flemzord/toolgate/internal/cron"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSweeper is a test double for cron.Sweeper.
type MockSweeper struct {
	Swept atomic.Bool
	Calls atomic.Int32
}

// Sweep implements cron.Sweeper and returns the value of Swept.
func (m *MockSweeper) Sweep() bool {
	m.Calls.Add(1)
	return m.Swept.Load()
}

// MockPruner is a test double for session.Pruner.
type MockPruner struct {
	PruneFunc func(ctx context.Context, keep int) (int, error)

	mu    sync.Mutex
	keeps []int
}

// Prune records keep and delegates to PruneFunc.
func (m *MockPruner) Prune(ctx context.Context, keep int) (int, error) {
	m.mu.Lock()
	m.keeps = append(m.keeps, keep)
	m.mu.Unlock()

	if m.PruneFunc != nil {
		return m.PruneFunc(ctx, keep)
	}
	return 0, nil
}

// Keeps returns the keep argument of every Prune call.
func (m *MockPruner) Keeps() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.keeps...)
}
