// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for toolgate.
package config

import (
	"time"

	"github.com/flemzord/toolgate/internal/security"
	"github.com/flemzord/toolgate/internal/session"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Catalog    CatalogConfig            `yaml:"catalog"`
	Backend    BackendConfig            `yaml:"backend"`
	Session    SessionConfig            `yaml:"session"`
	Gateway    GatewayConfig            `yaml:"gateway"`
	History    HistoryConfig            `yaml:"history"`
	Audit      AuditConfig              `yaml:"audit"`
	Tracing    TracingConfig            `yaml:"tracing"`
	RateLimits security.RateLimitConfig `yaml:"rate_limits"`
}

// CatalogConfig locates the tool manifest.
type CatalogConfig struct {
	// Manifest is the path of the YAML catalog manifest. Relative paths are
	// resolved against the directory of the config file.
	Manifest string `yaml:"manifest"`
}

// Backend kinds.
const (
	BackendHTTP      = "http"
	BackendWebSocket = "websocket"
)

// BackendConfig describes the execution backend.
type BackendConfig struct {
	Kind        string            `yaml:"kind"`
	URL         string            `yaml:"url"`
	Timeout     time.Duration     `yaml:"timeout"`
	DialTimeout time.Duration     `yaml:"dial_timeout"`
	Headers     map[string]string `yaml:"headers"`

	// MaxReplyBytes and MaxReplyDepth bound backend replies. Zero selects
	// the built-in limits.
	MaxReplyBytes int `yaml:"max_reply_bytes"`
	MaxReplyDepth int `yaml:"max_reply_depth"`
}

// SessionConfig tunes the workflow gate.
type SessionConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	ResourceValidity time.Duration `yaml:"resource_validity"`

	// ExemptTools replaces the default exemption list when set.
	ExemptTools []string `yaml:"exempt_tools"`

	Hints []session.Hint `yaml:"hints"`

	// PluralSuffixes replaces the default collection-name suffixes when
	// set. An explicit empty list disables coercion.
	PluralSuffixes []string `yaml:"plural_suffixes"`

	// SweepSchedule is the 5-field cron expression of the idle sweep.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// GatewayConfig holds HTTP gateway configuration.
type GatewayConfig struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// History drivers.
const (
	HistoryMemory = "memory"
	HistorySQLite = "sqlite"
)

// HistoryConfig selects where ended sessions are archived.
type HistoryConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Capacity int    `yaml:"capacity"`
}

// AuditConfig enables the JSONL audit trail. An empty path disables it.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate"`
}
