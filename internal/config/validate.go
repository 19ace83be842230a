package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/flemzord/toolgate/internal/cron"
)

// Validate checks the structural validity of a Config and reports every
// problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log_level %q must be one of debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Catalog.Manifest == "" {
		errs = append(errs, errors.New("config: catalog.manifest is required"))
	}

	errs = append(errs, validateBackend(cfg.Backend)...)
	errs = append(errs, validateSession(cfg.Session)...)
	errs = append(errs, validateHistory(cfg.History)...)
	errs = append(errs, validateRateLimits(cfg)...)

	if cfg.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("config: tracing.sample_rate %v must be within (0, 1]", cfg.Tracing.SampleRate))
	}
	if a := cfg.Gateway.Auth; (a.BasicUser == "") != (a.BasicPass == "") {
		errs = append(errs, errors.New("config: gateway.auth.basic_user and basic_pass must be set together"))
	}

	return errors.Join(errs...)
}

func validateBackend(b BackendConfig) []error {
	var errs []error

	var schemes []string
	switch b.Kind {
	case BackendHTTP:
		schemes = []string{"http", "https"}
	case BackendWebSocket:
		schemes = []string{"ws", "wss"}
	default:
		errs = append(errs, fmt.Errorf("config: backend.kind %q must be %q or %q", b.Kind, BackendHTTP, BackendWebSocket))
	}
	if b.MaxReplyBytes < 0 || b.MaxReplyDepth < 0 {
		errs = append(errs, errors.New("config: backend.max_reply_bytes and max_reply_depth must not be negative"))
	}

	if b.URL == "" {
		return append(errs, errors.New("config: backend.url is required"))
	}
	u, err := url.Parse(b.URL)
	if err != nil {
		return append(errs, fmt.Errorf("config: backend.url: %w", err))
	}
	if schemes != nil && !slices.Contains(schemes, u.Scheme) {
		errs = append(errs, fmt.Errorf("config: backend.url scheme %q does not match kind %q", u.Scheme, b.Kind))
	}
	if u.Host == "" {
		errs = append(errs, fmt.Errorf("config: backend.url %q has no host", b.URL))
	}
	return errs
}

func validateSession(s SessionConfig) []error {
	var errs []error

	if s.ResourceValidity > s.Timeout {
		errs = append(errs, fmt.Errorf("config: session.resource_validity %s exceeds session.timeout %s", s.ResourceValidity, s.Timeout))
	}
	for i, h := range s.Hints {
		if h.Category == "" {
			errs = append(errs, fmt.Errorf("config: session.hints[%d]: category is required", i))
		}
		if _, err := regexp.Compile(h.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("config: session.hints[%d]: %w", i, err))
		}
	}
	for i, suffix := range s.PluralSuffixes {
		if suffix == "" {
			errs = append(errs, fmt.Errorf("config: session.plural_suffixes[%d] is empty", i))
		}
	}
	if err := cron.ValidateSchedule(s.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: session.sweep_schedule: %w", err))
	}
	return errs
}

func validateHistory(h HistoryConfig) []error {
	switch h.Driver {
	case HistoryMemory:
		return nil
	case HistorySQLite:
		if h.Path == "" {
			return []error{errors.New("config: history.path is required for the sqlite driver")}
		}
		return nil
	default:
		return []error{fmt.Errorf("config: history.driver %q must be %q or %q", h.Driver, HistoryMemory, HistorySQLite)}
	}
}

func validateRateLimits(cfg *Config) []error {
	var errs []error
	if cfg.RateLimits.ToolCallsPerMin < 0 {
		errs = append(errs, errors.New("config: rate_limits.tool_calls_per_min must not be negative"))
	}
	for tool, n := range cfg.RateLimits.PerTool {
		if n < 0 {
			errs = append(errs, fmt.Errorf("config: rate_limits.per_tool[%q] must not be negative", tool))
		}
	}
	return errs
}
