package security

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// EventType categorizes audit events.
type EventType string

// Audit event types.
const (
	EventCatalogQuery EventType = "catalog_query"
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
	EventGateBlock    EventType = "gate_block"
	EventChainStart   EventType = "chain_start"
	EventChainStep    EventType = "chain_step"
	EventSessionReset EventType = "session_reset"
	EventRateLimit    EventType = "rate_limit"
	EventAuthFailure  EventType = "auth_failure"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	SessionID  string            `json:"session_id,omitempty"`
	RunID      string            `json:"run_id,omitempty"`
	Step       *int              `json:"step,omitempty"`
	ToolName   string            `json:"tool_name,omitempty"`
	Outcome    string            `json:"outcome,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	Params     map[string]any    `json:"params,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AuditLoggerConfig configures an AuditLogger.
type AuditLoggerConfig struct {
	// Writer receives JSONL. Nil disables output; OnEvent still fires.
	Writer io.Writer

	// Redactor scrubs Detail, Params and Metadata before writing.
	Redactor *Redactor

	OnEvent func(AuditEvent)
	Now     func() time.Time
}

// AuditLogger writes AuditEvents as JSON lines. A nil *AuditLogger drops
// every event, so callers need no guard.
type AuditLogger struct {
	mu          sync.Mutex
	enc         *json.Encoder
	redactor    *Redactor
	onEvent     func(AuditEvent)
	now         func() time.Time
	writeErrors atomic.Int64
}

// NewAuditLogger creates an audit logger.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	l := &AuditLogger{
		redactor: cfg.Redactor,
		onEvent:  cfg.OnEvent,
		now:      cfg.Now,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if cfg.Writer != nil {
		l.enc = json.NewEncoder(cfg.Writer)
	}
	return l
}

// OpenAuditFile opens (appending) the JSONL file at path and returns a
// logger writing to it along with the file to close on shutdown.
func OpenAuditFile(path string, redactor *Redactor) (*AuditLogger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("security: create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("security: open audit log: %w", err)
	}
	return NewAuditLogger(AuditLoggerConfig{Writer: f, Redactor: redactor}), f, nil
}

// Log stamps and records an event. The caller's maps are never mutated.
func (l *AuditLogger) Log(event AuditEvent) {
	if l == nil {
		return
	}
	event.Timestamp = l.now()

	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
		event.Params = l.redactor.RedactParams(event.Params)
		if event.Metadata != nil {
			md := make(map[string]string, len(event.Metadata))
			for k, v := range event.Metadata {
				if IsSecretKey(k) {
					md[k] = RedactPlaceholder
				} else {
					md[k] = l.redactor.Redact(v)
				}
			}
			event.Metadata = md
		}
	} else {
		event.Params = maps.Clone(event.Params)
		event.Metadata = maps.Clone(event.Metadata)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onEvent != nil {
		l.onEvent(event)
	}
	if l.enc != nil {
		if err := l.enc.Encode(event); err != nil {
			l.writeErrors.Add(1)
		}
	}
}

// WriteErrors returns how many events failed to reach the writer.
func (l *AuditLogger) WriteErrors() int64 {
	if l == nil {
		return 0
	}
	return l.writeErrors.Load()
}
