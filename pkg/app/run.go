// Package app provides the shared entry point of the toolgate binary: it
// loads configuration, wires components and runs them until shutdown.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/security"
)

// Mode selects the MCP transport.
type Mode string

// Serving modes.
const (
	// ModeHTTP runs the HTTP gateway with MCP mounted at /mcp.
	ModeHTTP Mode = "http"

	// ModeStdio speaks MCP on stdin/stdout. The HTTP gateway is not started.
	ModeStdio Mode = "stdio"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath is called.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	Mode Mode

	// LogLevel overrides log_level from the configuration when non-empty.
	LogLevel string

	// Stdin, Stdout and Stderr default to the process streams. Logs always
	// go to Stderr so stdout stays reserved for the stdio transport.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// LoadConfig resolves, loads and validates the configuration.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := config.ResolvePath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, path, nil
}

// NewLogger builds the process logger: a text handler on w wrapped in a
// redacting handler.
func NewLogger(w io.Writer, level string, redactor *security.Redactor) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// ParseLevel maps a log_level value to a slog.Level. Unknown values map to
// info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Run loads configuration, starts every component, and blocks until a
// shutdown signal arrives or, in stdio mode, the client disconnects.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run with an explicit lifetime instead of signal handling.
func RunContext(ctx context.Context, params RunParams) error {
	params.defaults()

	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if params.LogLevel != "" {
		level = params.LogLevel
	}
	redactor := security.NewRedactor()
	for _, secret := range configSecrets(cfg) {
		redactor.AddLiteral(secret)
	}
	logger := NewLogger(params.Stderr, level, redactor)
	slog.SetDefault(logger)

	logger.Info("starting toolgate",
		"version", params.Version,
		"commit", params.Commit,
		"mode", string(params.Mode),
		"config", cfgPath,
	)

	rt, err := Build(ctx, cfg, BuildOptions{
		Logger:      logger,
		Redactor:    redactor,
		Version:     params.Version,
		WithGateway: params.Mode == ModeHTTP,
	})
	if err != nil {
		return err
	}

	if params.Mode == ModeHTTP {
		return rt.App.Run(ctx)
	}

	if err := rt.App.Start(); err != nil {
		return err
	}
	defer rt.App.Stop()
	return rt.MCP.ServeStdio(ctx, params.Stdin, params.Stdout)
}

func (p *RunParams) defaults() {
	if p.Mode == "" {
		p.Mode = ModeHTTP
	}
	if p.Version == "" {
		p.Version = "dev"
	}
	if p.Stdin == nil {
		p.Stdin = os.Stdin
	}
	if p.Stdout == nil {
		p.Stdout = os.Stdout
	}
	if p.Stderr == nil {
		p.Stderr = os.Stderr
	}
}

// configSecrets returns the configured credentials that must never appear
// in logs.
func configSecrets(cfg *config.Config) []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	add(cfg.Gateway.Auth.BearerToken)
	add(cfg.Gateway.Auth.BasicPass)
	for name, v := range cfg.Backend.Headers {
		if security.IsSecretKey(name) {
			add(v)
		}
	}
	return out
}
