// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/flemzord/toolgate/internal/security"
)

// NewTestRedactor returns a Redactor without default patterns, so test
// fixtures that happen to look like tokens are left alone.
func NewTestRedactor(literals ...string) *security.Redactor {
	r := &security.Redactor{}
	for _, l := range literals {
		r.AddLiteral(l)
	}
	return r
}

// EventRecorder collects audit events through AuditLoggerConfig.OnEvent.
type EventRecorder struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

// Record is an AuditLoggerConfig.OnEvent callback.
func (r *EventRecorder) Record(e security.AuditEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Logger returns an AuditLogger feeding this recorder.
func (r *EventRecorder) Logger() *security.AuditLogger {
	return security.NewAuditLogger(security.AuditLoggerConfig{OnEvent: r.Record})
}

// Events returns the recorded events in order.
func (r *EventRecorder) Events() []security.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]security.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of one type.
func (r *EventRecorder) OfType(t security.EventType) []security.AuditEvent {
	var out []security.AuditEvent
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
