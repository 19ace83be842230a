package config

import (
	"time"

	"github.com/flemzord/toolgate/internal/session"
)

// Default values applied to zero fields.
const (
	DefaultLogLevel          = "info"
	DefaultBackendTimeout    = 30 * time.Second
	DefaultDialTimeout       = 10 * time.Second
	DefaultSweepSchedule     = "*/5 * * * *"
	DefaultBind              = "127.0.0.1:8080"
	DefaultHistoryCapacity   = 100
	DefaultTracingEndpoint   = "localhost:4318"
	DefaultTracingSampleRate = 1.0
)

// ApplyDefaults fills zero values with defaults. Load calls it.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Backend.defaults()
	c.Session.defaults()
	c.Gateway.defaults()
	c.History.defaults()
	c.Tracing.defaults()
}

func (b *BackendConfig) defaults() {
	if b.Kind == "" {
		b.Kind = BackendHTTP
	}
	if b.Timeout <= 0 {
		b.Timeout = DefaultBackendTimeout
	}
	if b.DialTimeout <= 0 {
		b.DialTimeout = DefaultDialTimeout
	}
}

func (s *SessionConfig) defaults() {
	if s.Timeout <= 0 {
		s.Timeout = session.DefaultTimeout
	}
	if s.ResourceValidity <= 0 {
		s.ResourceValidity = session.DefaultResourceValidity
	}
	if s.SweepSchedule == "" {
		s.SweepSchedule = DefaultSweepSchedule
	}
}

func (g *GatewayConfig) defaults() {
	if g.Bind == "" {
		g.Bind = DefaultBind
	}
	if g.ReadTimeout <= 0 {
		g.ReadTimeout = 10 * time.Second
	}
	if g.WriteTimeout <= 0 {
		g.WriteTimeout = 60 * time.Second
	}
	if g.ShutdownTimeout <= 0 {
		g.ShutdownTimeout = 5 * time.Second
	}
}

func (h *HistoryConfig) defaults() {
	if h.Driver == "" {
		if h.Path != "" {
			h.Driver = HistorySQLite
		} else {
			h.Driver = HistoryMemory
		}
	}
	if h.Capacity <= 0 {
		h.Capacity = DefaultHistoryCapacity
	}
}

func (t *TracingConfig) defaults() {
	if t.Endpoint == "" {
		t.Endpoint = DefaultTracingEndpoint
	}
	if t.SampleRate <= 0 {
		t.SampleRate = DefaultTracingSampleRate
	}
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
