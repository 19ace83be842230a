package session

import (
	"context"
	"maps"
	"sync"
)

// DefaultMemoryCapacity bounds a MemoryHistory created with capacity <= 0.
const DefaultMemoryCapacity = 256

// MemoryHistory keeps the most recent records in memory.
type MemoryHistory struct {
	mu       sync.Mutex
	records  []Record
	capacity int
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory creates an in-memory history holding at most capacity
// records; older records are dropped first.
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryHistory{capacity: capacity}
}

// Archive implements History.
func (h *MemoryHistory) Archive(_ context.Context, rec Record) error {
	rec.PerToolCounts = maps.Clone(rec.PerToolCounts)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if over := len(h.records) - h.capacity; over > 0 {
		h.records = h.records[over:]
	}
	return nil
}

// Recent implements History.
func (h *MemoryHistory) Recent(_ context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n = min(n, len(h.records))
	out := make([]Record, 0, n)
	for i := len(h.records) - 1; i >= len(h.records)-n; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}
