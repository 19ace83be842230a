package security

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	r := NewRedactor()
	r.AddLiteral("s3cr3t-value")
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, r))
}

func TestRedactingHandler_ScrubsEverything(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("sending s3cr3t-value",
		"header", "Bearer abcdefghijklmnopq",
		"api_key", "plain",
		"params", map[string]any{"password": "pw", "color": "red"},
		"error", errors.New("backend said s3cr3t-value"),
		slog.Group("backend", slog.String("token", "tok"), slog.String("url", "http://x")),
	)

	out := buf.String()
	for _, leaked := range []string{"s3cr3t-value", "abcdefghijklmnopq", `"plain"`, `"pw"`, `"tok"`} {
		if strings.Contains(out, leaked) {
			t.Errorf("log output leaks %q: %s", leaked, out)
		}
	}
	for _, kept := range []string{`"color":"red"`, `"url":"http://x"`} {
		if !strings.Contains(out, kept) {
			t.Errorf("log output lost %s: %s", kept, out)
		}
	}
}

func TestRedactingHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf).
		With("component", "backend", "secret", "xyz").
		WithGroup("call")

	logger.Info("done", "detail", "s3cr3t-value")

	out := buf.String()
	if strings.Contains(out, "xyz") || strings.Contains(out, "s3cr3t-value") {
		t.Errorf("leak: %s", out)
	}
	if !strings.Contains(out, `"component":"backend"`) || !strings.Contains(out, `"call":{`) {
		t.Errorf("attrs or group lost: %s", out)
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewRedactingHandler(inner, NewRedactor())
	if h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(t.Context(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
