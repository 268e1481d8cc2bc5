package main

import (
	"github.com/spf13/cobra"

	"github.com/hookmux/hookmux/internal/extension"
	"github.com/hookmux/hookmux/internal/mux"
	"github.com/hookmux/hookmux/internal/source"
)

// NewPackagesCmd creates the packages command: list package metadata, once
// or as a stream.
func NewPackagesCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "List the packages the source currently provides",
		Long: `Packages prints the metadata of every valid package in the packages
directory. With --watch it streams one JSON line per change to the set
instead, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			src := source.NewDir(cfg.PackagesDir, source.WithPollInterval(cfg.PollInterval))

			if !watch {
				pkgs, err := src.Find(cmd.Context())
				if err != nil {
					return err
				}
				metas := make([]extension.Metadata, 0, len(pkgs))
				for _, pkg := range pkgs {
					metas = append(metas, pkg.Metadata())
				}
				return writeJSON(cmd.OutOrStdout(), metas)
			}

			m := mux.New(src)
			defer m.StopWatching()
			for up := range m.Packages(cmd.Context()) {
				if up.Err != nil {
					return up.Err
				}
				if err := writeJSONLine(cmd.OutOrStdout(), up.Packages); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "stream package changes until interrupted")
	addRuntimeFlags(cmd)
	return cmd
}
