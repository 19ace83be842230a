package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/toolgate/internal/config"
	"github.com/flemzord/toolgate/internal/session"
)

// initAnswers are the values collected by the init wizard.
type initAnswers struct {
	Manifest    string
	BackendKind string
	BackendURL  string
	Bind        string
	BearerToken string
	HistoryPath string
	AuditPath   string
}

// initFile is the YAML layout written by init. Durations stay strings so
// the file reads the way users write it.
type initFile struct {
	Version  string         `yaml:"version"`
	LogLevel string         `yaml:"log_level"`
	Catalog  map[string]any `yaml:"catalog"`
	Backend  map[string]any `yaml:"backend"`
	Session  map[string]any `yaml:"session"`
	Gateway  map[string]any `yaml:"gateway"`
	History  map[string]any `yaml:"history"`
	Audit    map[string]any `yaml:"audit,omitempty"`
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")
			if out == "" {
				out = config.SearchPaths()[0]
			}
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}

			answers := defaultAnswers()
			if err := askInit(&answers); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
					return nil
				}
				return err
			}

			raw, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Where to write the configuration (default: first search path)")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Manifest:    "catalog.yaml",
		BackendKind: config.BackendHTTP,
		BackendURL:  "http://127.0.0.1:9000/execute",
		Bind:        config.DefaultBind,
	}
}

func askInit(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Catalog manifest").
				Description("Relative paths are resolved against the config file.").
				Value(&a.Manifest).
				Validate(required("manifest")),
			huh.NewSelect[string]().
				Title("Backend transport").
				Options(
					huh.NewOption("HTTP (one POST per call)", config.BackendHTTP),
					huh.NewOption("WebSocket (persistent connection)", config.BackendWebSocket),
				).
				Value(&a.BackendKind),
			huh.NewInput().
				Title("Backend URL").
				Value(&a.BackendURL).
				Validate(validURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway bind address").
				Value(&a.Bind).
				Validate(required("bind address")),
			huh.NewInput().
				Title("Admin bearer token").
				Description("Leave empty to keep admin endpoints disabled.").
				EchoMode(huh.EchoModePassword).
				Value(&a.BearerToken),
			huh.NewInput().
				Title("Session history database").
				Description("SQLite path; leave empty to keep history in memory.").
				Value(&a.HistoryPath),
			huh.NewInput().
				Title("Audit log").
				Description("JSONL path; leave empty to disable.").
				Value(&a.AuditPath),
		),
	)
	return form.Run()
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("URL needs a scheme and a host")
	}
	return nil
}

// renderConfig turns wizard answers into a configuration file. The result
// passes config.Validate.
func renderConfig(a initAnswers) ([]byte, error) {
	f := initFile{
		Version:  "1",
		LogLevel: config.DefaultLogLevel,
		Catalog:  map[string]any{"manifest": a.Manifest},
		Backend: map[string]any{
			"kind":    a.BackendKind,
			"url":     a.BackendURL,
			"timeout": config.DefaultBackendTimeout.String(),
		},
		Session: map[string]any{
			"timeout":           session.DefaultTimeout.String(),
			"resource_validity": session.DefaultResourceValidity.String(),
			"sweep_schedule":    config.DefaultSweepSchedule,
		},
		Gateway: map[string]any{"bind": a.Bind},
		History: map[string]any{"driver": config.HistoryMemory},
	}
	if a.BearerToken != "" {
		// Keep the secret out of the file.
		f.Gateway["auth"] = map[string]any{"bearer_token": "${TOOLGATE_ADMIN_TOKEN}"}
	}
	if a.HistoryPath != "" {
		f.History = map[string]any{"driver": config.HistorySQLite, "path": a.HistoryPath}
	}
	if a.AuditPath != "" {
		f.Audit = map[string]any{"path": a.AuditPath}
	}

	body, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}
	header := "# Generated by toolgate init.\n"
	if a.BearerToken != "" {
		header += "# Export TOOLGATE_ADMIN_TOKEN before starting the gateway.\n"
	}
	return append([]byte(header), body...), nil
}
