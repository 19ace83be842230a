// Package main is the entry point for the toolgate CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toolgate",
		Short:         "A discovery-first tool invocation gateway for LLM agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("log-level", "", "Override log_level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		serveCmd(),
		stdioCmd(),
		configCmd(),
		catalogCmd(),
		initCmd(),
		serviceCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "toolgate %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func runParams(cmd *cobra.Command, mode app.Mode) app.RunParams {
	cfgPath, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		Mode:       mode,
		LogLevel:   level,
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway with MCP at /mcp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(runParams(cmd, app.ModeHTTP))
		},
	}
}

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(runParams(cmd, app.ModeStdio))
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and the catalog it references",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				path = args[0]
			}
			cfg, resolved, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			reg, err := loadCatalog(cfg.Catalog.Manifest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s\n", resolved)
			fmt.Fprintf(out, "  backend:  %s %s\n", cfg.Backend.Kind, cfg.Backend.URL)
			fmt.Fprintf(out, "  catalog:  %d tools in %d categories\n", reg.Len(), len(reg.Categories()))
			fmt.Fprintf(out, "  history:  %s\n", cfg.History.Driver)
			fmt.Fprintf(out, "  gateway:  %s (admin auth: %t)\n", cfg.Gateway.Bind, cfg.Gateway.Auth.IsConfigured())
			return nil
		},
	})
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect tool catalog manifests",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check <manifest>",
			Short: "Validate a catalog manifest",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := loadCatalog(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Catalog OK (%d tools in %d categories)\n", reg.Len(), len(reg.Categories()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list [manifest]",
			Short: "List categories and tools",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := ""
				if len(args) == 1 {
					path = args[0]
				} else {
					cfgPath, _ := cmd.Flags().GetString("config")
					cfg, _, err := app.LoadConfig(cfgPath)
					if err != nil {
						return err
					}
					path = cfg.Catalog.Manifest
				}
				reg, err := loadCatalog(path)
				if err != nil {
					return err
				}
				printCatalog(cmd.OutOrStdout(), reg)
				return nil
			},
		},
	)
	return cmd
}

func loadCatalog(path string) (*catalog.Registry, error) {
	m, err := catalog.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return m.Build()
}

func printCatalog(w io.Writer, reg *catalog.Registry) {
	for _, cat := range reg.Categories() {
		fmt.Fprintf(w, "%s", cat)
		if desc := reg.CategoryDescription(cat); desc != "" {
			fmt.Fprintf(w, "  %s", desc)
		}
		fmt.Fprintln(w)
		for _, d := range reg.ByCategory(cat) {
			fmt.Fprintf(w, "  %-28s %s\n", d.Name, d.Description)
			for _, f := range d.Params.Public() {
				req := ""
				if f.Required {
					req = " (required)"
				}
				fmt.Fprintf(w, "      %s: %s%s\n", f.Name, f.Type, req)
			}
		}
	}
}
