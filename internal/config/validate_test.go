package config

import (
	"strings"
	"testing"

	"github.com/flemzord/toolgate/internal/session"
)

func validConfig() *Config {
	cfg := &Config{
		Version: "1",
		Catalog: CatalogConfig{Manifest: "catalog.yaml"},
		Backend: BackendConfig{URL: "http://127.0.0.1:9000/execute"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing version", func(c *Config) { c.Version = "" }, "version field is required"},
		{"unsupported version", func(c *Config) { c.Version = "99" }, "unsupported version"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"missing manifest", func(c *Config) { c.Catalog.Manifest = "" }, "catalog.manifest"},
		{"unknown backend kind", func(c *Config) { c.Backend.Kind = "grpc" }, "backend.kind"},
		{"missing backend url", func(c *Config) { c.Backend.URL = "" }, "backend.url is required"},
		{"negative reply limit", func(c *Config) { c.Backend.MaxReplyDepth = -1 }, "max_reply_depth"},
		{"scheme mismatch", func(c *Config) { c.Backend.Kind = BackendWebSocket }, "does not match kind"},
		{"validity exceeds timeout", func(c *Config) { c.Session.ResourceValidity = c.Session.Timeout * 2 }, "resource_validity"},
		{"hint without category", func(c *Config) { c.Session.Hints = []session.Hint{{Pattern: "^x"}} }, "category is required"},
		{"bad hint pattern", func(c *Config) { c.Session.Hints = []session.Hint{{Pattern: "(", Category: "x"}} }, "hints[0]"},
		{"bad sweep schedule", func(c *Config) { c.Session.SweepSchedule = "every minute" }, "sweep_schedule"},
		{"sqlite without path", func(c *Config) { c.History.Driver = HistorySQLite }, "history.path"},
		{"unknown history driver", func(c *Config) { c.History.Driver = "redis" }, "history.driver"},
		{"negative rate limit", func(c *Config) { c.RateLimits.ToolCallsPerMin = -1 }, "tool_calls_per_min"},
		{"half basic auth", func(c *Config) { c.Gateway.Auth.BasicUser = "admin" }, "basic_user"},
		{"sample rate above one", func(c *Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Version = ""
	cfg.Catalog.Manifest = ""
	cfg.Backend.URL = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"version", "catalog.manifest", "backend.url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}
