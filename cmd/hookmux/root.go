package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/hookmux/hookmux/internal/config"
	"github.com/hookmux/hookmux/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the hookmux CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hookmux",
		Short: "Hookmux - hook resolution over plugin packages",
		Long: `Hookmux resolves named extension points (hooks) against a directory
of plugin packages, isolating per-extension load failures and re-resolving
whenever the package set changes.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewResolveCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewPackagesCmd())
	cmd.AddCommand(NewHooksCmd())

	return cmd
}

// addRuntimeFlags registers the flags shared by every runtime subcommand.
// Defaults mirror config.Default so unchanged flags never override
// file-set values.
func addRuntimeFlags(cmd *cobra.Command) {
	cmd.Flags().String("packages-dir", "packages", "directory of plugin packages")
	cmd.Flags().Duration("poll-interval", 2*time.Second, "package poll interval")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
}

// setup loads the layered configuration and installs the default logger.
func setup(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return cfg, err
	}
	logging.SetDefault("hookmux", version, cfg.LogFormat, cfg.LogLevel)
	return cfg, nil
}
