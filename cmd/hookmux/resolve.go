package main

import (
	"github.com/spf13/cobra"

	"github.com/hookmux/hookmux/internal/mux"
	"github.com/hookmux/hookmux/internal/source"
)

// NewResolveCmd creates the resolve command: a one-shot hook resolution
// against the current package set.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <hook>",
		Short: "Resolve a hook against the current packages",
		Long: `Resolve scans the packages directory once, loads every extension
declared for the given hook, and prints a JSON report partitioned into
loaded extensions and load failures. An unknown hook yields an empty
report, not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			src := source.NewDir(cfg.PackagesDir)
			m := mux.New(src)

			exts, err := m.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), buildResolveReport(args[0], exts))
		},
	}

	addRuntimeFlags(cmd)
	return cmd
}
