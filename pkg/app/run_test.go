package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/flemzord/toolgate/internal/backend/backendtest"
	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/security/securitytest"
)

const testManifest = `
categories:
  - name: things
    description: Thing management
    tools:
      - name: createThing
        params:
          name: {type: string, required: true}
`

// writeConfig writes a manifest and a config referencing it, and returns
// the config path.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(testManifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	cfg := `version: "1"
catalog:
  manifest: catalog.yaml
backend:
  kind: http
  url: http://127.0.0.1:9/exec
gateway:
  bind: 127.0.0.1:0
` + extra
	path := filepath.Join(dir, "toolgate.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func loadTestConfig(t *testing.T, extra string) *config.Config {
	t.Helper()

	cfg, _, err := LoadConfig(writeConfig(t, extra))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	return cfg
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_Redacts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	redactor := securitytest.NewTestRedactor("s3cr3t-value")
	logger := NewLogger(&buf, "debug", redactor)
	logger.Debug("calling backend", "header", "Bearer s3cr3t-value")

	if strings.Contains(buf.String(), "s3cr3t-value") {
		t.Errorf("secret leaked into logs: %s", buf.String())
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	if _, _, err := LoadConfig("/nonexistent/toolgate.yaml"); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log_level: loud\n")
	_, got, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error does not name the field: %v", err)
	}
}

func TestLoadConfig_ResolvesFromXDG(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "toolgate")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := writeConfig(t, "")
	raw, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	manifest := filepath.Join(filepath.Dir(src), "catalog.yaml")
	raw = bytes.Replace(raw, []byte("manifest: catalog.yaml"), []byte("manifest: "+manifest), 1)
	if err := os.WriteFile(filepath.Join(cfgDir, "toolgate.yaml"), raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, path, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if path != filepath.Join(cfgDir, "toolgate.yaml") {
		t.Errorf("path = %q", path)
	}
	if cfg.Catalog.Manifest != manifest {
		t.Errorf("manifest = %q, want %q", cfg.Catalog.Manifest, manifest)
	}
}

func TestBuild_Components(t *testing.T) {
	t.Parallel()

	cfg := loadTestConfig(t, "")
	be := &backendtest.Mock{}
	rt, err := Build(context.Background(), cfg, BuildOptions{Backend: be, WithGateway: true, Version: "test"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(rt.App.Stop)

	want := []string{"tracing", "backend", "session", "scheduler", "gateway"}
	if got := rt.App.Components(); !slices.Equal(got, want) {
		t.Errorf("Components() = %v, want %v", got, want)
	}
	if rt.Registry.Len() != 1 {
		t.Errorf("registry has %d tools, want 1", rt.Registry.Len())
	}
	if got := rt.Scheduler.Jobs(); !slices.Equal(got, []string{"session_sweep"}) {
		t.Errorf("Jobs() = %v", got)
	}
	if rt.Gateway == nil {
		t.Error("gateway not built")
	}
}

func TestBuild_SQLiteHistoryAndAudit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := loadTestConfig(t, "history:\n  driver: sqlite\n  path: "+filepath.Join(dir, "history.db")+
		"\naudit:\n  path: "+filepath.Join(dir, "audit.jsonl")+"\n")

	rt, err := Build(context.Background(), cfg, BuildOptions{Backend: &backendtest.Mock{}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(rt.App.Stop)

	want := []string{"tracing", "audit", "history", "backend", "session", "scheduler"}
	if got := rt.App.Components(); !slices.Equal(got, want) {
		t.Errorf("Components() = %v, want %v", got, want)
	}
	if got := rt.Scheduler.Jobs(); !slices.Contains(got, "history_prune") {
		t.Errorf("Jobs() = %v, want history_prune", got)
	}
	if rt.Gateway != nil {
		t.Error("gateway built without WithGateway")
	}
}

func TestBuild_MissingManifest(t *testing.T) {
	t.Parallel()

	cfg := loadTestConfig(t, "")
	cfg.Catalog.Manifest = filepath.Join(t.TempDir(), "missing.yaml")

	be := &backendtest.Mock{}
	if _, err := Build(context.Background(), cfg, BuildOptions{Backend: be}); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestBuild_ClosesBackendOnStop(t *testing.T) {
	t.Parallel()

	cfg := loadTestConfig(t, "")
	be := &backendtest.Mock{}
	rt, err := Build(context.Background(), cfg, BuildOptions{Backend: be})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := rt.App.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rt.App.Stop()

	if !be.Closed() {
		t.Error("backend not closed on Stop")
	}
}

func TestRunContext_StdioEndsOnEOF(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "")
	var stdout, stderr bytes.Buffer
	err := RunContext(context.Background(), RunParams{
		ConfigPath: path,
		Mode:       ModeStdio,
		Stdin:      strings.NewReader(""),
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	if err != nil {
		t.Fatalf("RunContext: %v", err)
	}
	if !strings.Contains(stderr.String(), "starting toolgate") {
		t.Errorf("startup not logged: %s", stderr.String())
	}
}

func TestRunContext_InvalidConfigPath(t *testing.T) {
	t.Parallel()

	err := RunContext(context.Background(), RunParams{ConfigPath: "/nonexistent/config.yaml"})
	if err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestConfigSecrets(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Gateway.Auth.BearerToken = "tok-123456"
	cfg.Backend.Headers = map[string]string{
		"Authorization": "Bearer abcdef",
		"X-Trace":       "visible",
	}

	got := configSecrets(cfg)
	slices.Sort(got)
	if want := []string{"Bearer abcdef", "tok-123456"}; !slices.Equal(got, want) {
		t.Errorf("configSecrets() = %v, want %v", got, want)
	}
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, _, err := LoadConfig(filepath.Join("..", "..", "toolgate.example.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	rt, err := Build(context.Background(), cfg, BuildOptions{Backend: &backendtest.Mock{}, WithGateway: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(rt.App.Stop)

	if got := rt.Registry.Categories(); !slices.Equal(got, []string{"instances", "queries"}) {
		t.Errorf("Categories() = %v", got)
	}
}
