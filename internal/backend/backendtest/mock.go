// Package backendtest provides test doubles for the backend package.
package backendtest

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/flemzord/toolgate/internal/backend"
)

// Mock is a configurable backend.Backend. Without CallFunc every call
// succeeds with {"success": true}.
type Mock struct {
	CallFunc func(ctx context.Context, req backend.Request) (backend.Response, error)

	mu       sync.Mutex
	requests []backend.Request
	closed   bool
}

var _ backend.Backend = (*Mock)(nil)

// Call implements backend.Backend and records the request.
func (m *Mock) Call(ctx context.Context, req backend.Request) (backend.Response, error) {
	req.Params = maps.Clone(req.Params)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CallFunc != nil {
		return m.CallFunc(ctx, req)
	}
	return backend.Response{"success": true}, nil
}

// Close implements backend.Backend.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Requests returns every request received, in order.
func (m *Mock) Requests() []backend.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Responses returns a CallFunc that answers by tool name. Unknown tools
// get {"success": false, "message": "unknown tool"}.
func Responses(byTool map[string]backend.Response) func(context.Context, backend.Request) (backend.Response, error) {
	return func(_ context.Context, req backend.Request) (backend.Response, error) {
		if resp, ok := byTool[req.ToolName]; ok {
			return maps.Clone(resp), nil
		}
		return backend.Response{"success": false, "message": "unknown tool"}, nil
	}
}
