package security

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAuditLogger_WritesJSONL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logger := NewAuditLogger(AuditLoggerConfig{
		Writer: &buf,
		Now:    func() time.Time { return fixed },
	})

	step := 1
	logger.Log(AuditEvent{
		Type:     EventChainStep,
		RunID:    "run-1",
		Step:     &step,
		ToolName: "colorThing",
		Outcome:  "ok",
		Params:   map[string]any{"targetId": 7},
	})

	var got AuditEvent
	if err := json.NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != EventChainStep || got.RunID != "run-1" || got.ToolName != "colorThing" {
		t.Errorf("event = %+v", got)
	}
	if got.Step == nil || *got.Step != 1 {
		t.Errorf("step = %v", got.Step)
	}
	if !got.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, fixed)
	}
	if got.Params["targetId"] != float64(7) {
		t.Errorf("params = %v", got.Params)
	}
}

func TestAuditLogger_RedactsParamsAndDetail(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewRedactor()
	r.AddLiteral("hunter2-hunter2")

	logger := NewAuditLogger(AuditLoggerConfig{Writer: &buf, Redactor: r})

	params := map[string]any{
		"api_key": "abc",
		"note":    "password is hunter2-hunter2",
		"nested":  map[string]any{"token": "zzz", "name": "ok"},
	}
	logger.Log(AuditEvent{
		Type:     EventToolCall,
		Detail:   "calling with hunter2-hunter2",
		Params:   params,
		Metadata: map[string]string{"authorization": "Basic xyz", "tool": "readFile"},
	})

	out := buf.String()
	for _, leaked := range []string{"hunter2-hunter2", `"abc"`, "zzz", "Basic xyz"} {
		if strings.Contains(out, leaked) {
			t.Errorf("audit output leaks %q: %s", leaked, out)
		}
	}
	if !strings.Contains(out, `"name":"ok"`) || !strings.Contains(out, `"tool":"readFile"`) {
		t.Errorf("non-secret values lost: %s", out)
	}
	if params["api_key"] != "abc" {
		t.Error("caller params were mutated")
	}
}

func TestAuditLogger_OnEvent(t *testing.T) {
	t.Parallel()

	var events []AuditEvent
	logger := NewAuditLogger(AuditLoggerConfig{
		OnEvent: func(e AuditEvent) { events = append(events, e) },
	})

	logger.Log(AuditEvent{Type: EventGateBlock, ToolName: "createThing"})
	logger.Log(AuditEvent{Type: EventSessionReset, SessionID: "s1"})

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventGateBlock || events[1].Type != EventSessionReset {
		t.Errorf("types = %s, %s", events[0].Type, events[1].Type)
	}
}

func TestAuditLogger_NilIsNoop(t *testing.T) {
	t.Parallel()

	var logger *AuditLogger
	logger.Log(AuditEvent{Type: EventToolCall})
	if logger.WriteErrors() != 0 {
		t.Error("nil logger reported write errors")
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewAuditLogger(AuditLoggerConfig{Writer: &buf})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEvent{Type: EventToolResult, Detail: "concurrent"})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestAuditLogger_CountsWriteErrors(t *testing.T) {
	t.Parallel()

	logger := NewAuditLogger(AuditLoggerConfig{Writer: errWriter{}})
	logger.Log(AuditEvent{Type: EventToolCall})
	logger.Log(AuditEvent{Type: EventToolCall})

	if got := logger.WriteErrors(); got != 2 {
		t.Errorf("WriteErrors() = %d, want 2", got)
	}
}

func TestOpenAuditFile_Appends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit", "events.jsonl")
	for i := range 2 {
		logger, closer, err := OpenAuditFile(path, nil)
		if err != nil {
			t.Fatalf("OpenAuditFile #%d: %v", i, err)
		}
		logger.Log(AuditEvent{Type: EventCatalogQuery, Detail: "list_categories"})
		if err := closer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	if n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}
}
