// Package session implements the workflow gate: a session-scoped state
// machine that conditions tool execution on prior catalog discovery.
//
// A session is a window of activity bounded by an inactivity timeout. When
// the timeout elapses the whole state is discarded at once, so discovery in
// an earlier interaction never unlocks execution in an unrelated later one.
package session

import (
	"context"
	"encoding/json"
	"time"
)

// Default timings.
const (
	DefaultTimeout          = 30 * time.Minute
	DefaultResourceValidity = 5 * time.Minute
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool

	// Warning carries guidance when the call is refused.
	Warning string

	// Tip is an advisory note on an allowed call. It never blocks.
	Tip string
}

// Reason explains why a session ended.
type Reason string

// Reasons recorded in session history.
const (
	ReasonTimeout Reason = "timeout"
	ReasonSweep   Reason = "sweep"
	ReasonReset   Reason = "reset"
	ReasonClose   Reason = "close"
)

// Duration marshals as a Go duration string ("1m30s").
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Statistics is a snapshot of the current session.
type Statistics struct {
	SessionID                 string         `json:"sessionId"`
	SessionStart              time.Time      `json:"sessionStart"`
	SessionDuration           Duration       `json:"sessionDuration"`
	DistinctResourcesAccessed int            `json:"distinctResourcesAccessed"`
	TotalToolCalls            int            `json:"totalToolCalls"`
	PerToolCounts             map[string]int `json:"perToolCounts"`
	WorkflowFollowed          bool           `json:"workflowFollowed"`
}

// Record is the archived summary of an ended session.
type Record struct {
	SessionID         string         `json:"sessionId"`
	Start             time.Time      `json:"start"`
	End               time.Time      `json:"end"`
	Reason            Reason         `json:"reason"`
	ResourcesAccessed int            `json:"resourcesAccessed"`
	ToolCalls         int            `json:"toolCalls"`
	PerToolCounts     map[string]int `json:"perToolCounts"`
	WorkflowFollowed  bool           `json:"workflowFollowed"`
}

// History stores ended sessions.
type History interface {
	Archive(ctx context.Context, rec Record) error

	// Recent returns up to n records, most recent first.
	Recent(ctx context.Context, n int) ([]Record, error)
}

// Pruner is implemented by histories that grow without bound on their own.
type Pruner interface {
	// Prune deletes all but the keep most recent records and returns the
	// number deleted.
	Prune(ctx context.Context, keep int) (int, error)
}
