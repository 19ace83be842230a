package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/toolgate/internal/session"
)

const sampleConfig = `
version: "1"
log_level: debug
catalog:
  manifest: catalog.yaml
backend:
  kind: websocket
  url: ${TOOLGATE_TEST_BACKEND:-ws://127.0.0.1:9000/ws}
  timeout: 5s
  headers:
    Authorization: Bearer ${TOOLGATE_TEST_TOKEN}
session:
  timeout: 10m
  exempt_tools: [list_categories, ping]
  plural_suffixes: []
  hints:
    - pattern: "^create"
      category: things
history:
  path: /var/lib/toolgate/history.db
rate_limits:
  tool_calls_per_min: 60
  per_tool:
    createThing: 5
`

func TestLoad(t *testing.T) {
	t.Setenv("TOOLGATE_TEST_TOKEN", "s3cret")

	dir := t.TempDir()
	path := filepath.Join(dir, "toolgate.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Catalog.Manifest != filepath.Join(dir, "catalog.yaml") {
		t.Errorf("manifest = %q, want it next to the config", cfg.Catalog.Manifest)
	}
	if cfg.Backend.URL != "ws://127.0.0.1:9000/ws" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Backend.Headers["Authorization"] != "Bearer s3cret" {
		t.Errorf("header = %q", cfg.Backend.Headers["Authorization"])
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("backend timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Session.Timeout != 10*time.Minute {
		t.Errorf("session timeout = %v", cfg.Session.Timeout)
	}
	if cfg.Session.ResourceValidity != session.DefaultResourceValidity {
		t.Errorf("resource validity default = %v", cfg.Session.ResourceValidity)
	}
	if cfg.Session.PluralSuffixes == nil || len(cfg.Session.PluralSuffixes) != 0 {
		t.Errorf("plural_suffixes = %#v, want explicit empty list", cfg.Session.PluralSuffixes)
	}
	if len(cfg.Session.Hints) != 1 || cfg.Session.Hints[0].Category != "things" {
		t.Errorf("hints = %+v", cfg.Session.Hints)
	}
	if cfg.History.Driver != HistorySQLite {
		t.Errorf("history driver = %q, want sqlite inferred from path", cfg.History.Driver)
	}
	if cfg.RateLimits.PerTool["createThing"] != 5 {
		t.Errorf("per_tool = %v", cfg.RateLimits.PerTool)
	}
	if cfg.Gateway.Bind != DefaultBind {
		t.Errorf("bind default = %q", cfg.Gateway.Bind)
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("version: \"1\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel || cfg.Backend.Kind != BackendHTTP {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Session.ExemptTools != nil {
		t.Errorf("exempt_tools = %v, want nil so the gate picks its defaults", cfg.Session.ExemptTools)
	}
	if cfg.Session.PluralSuffixes != nil {
		t.Errorf("plural_suffixes = %v, want nil", cfg.Session.PluralSuffixes)
	}
	if cfg.History.Driver != HistoryMemory {
		t.Errorf("history driver = %q", cfg.History.Driver)
	}
}

func TestParse_UnresolvedVariables(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("backend:\n  url: ${TOOLGATE_UNSET_A}\n  kind: ${TOOLGATE_UNSET_B}\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"TOOLGATE_UNSET_A", "TOOLGATE_UNSET_B"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestParse_EmptyDefault(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("audit:\n  path: \"${TOOLGATE_UNSET_AUDIT:-}\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Audit.Path != "" {
		t.Errorf("audit path = %q, want empty", cfg.Audit.Path)
	}
}

func TestResolvePath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "toolgate", "toolgate.yaml")
	if err := os.MkdirAll(filepath.Dir(want), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, []byte("version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ResolvePath()
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if got != want {
		t.Errorf("ResolvePath = %q, want %q", got, want)
	}
}
