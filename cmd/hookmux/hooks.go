package main

import (
	"sort"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/hookmux/hookmux/internal/source"
)

// hookReport is the JSON shape of one hook listing entry.
type hookReport struct {
	Hook       string   `json:"hook"`
	Extensions int      `json:"extensions"`
	Packages   []string `json:"packages"`
}

// NewHooksCmd creates the hooks command: list the hooks the current
// packages declare, optionally filtered by a glob pattern.
func NewHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks [pattern]",
		Short: "List declared hooks, optionally filtered by a glob pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			var matcher glob.Glob
			if len(args) == 1 {
				matcher, err = glob.Compile(args[0])
				if err != nil {
					return err
				}
			}

			src := source.NewDir(cfg.PackagesDir)
			pkgs, err := src.Find(cmd.Context())
			if err != nil {
				return err
			}

			byHook := map[string]*hookReport{}
			for _, pkg := range pkgs {
				for _, desc := range pkg.Extensions() {
					if matcher != nil && !matcher.Match(desc.Hook) {
						continue
					}
					report, ok := byHook[desc.Hook]
					if !ok {
						report = &hookReport{Hook: desc.Hook}
						byHook[desc.Hook] = report
					}
					report.Extensions++
					if len(report.Packages) == 0 || report.Packages[len(report.Packages)-1] != pkg.ID() {
						report.Packages = append(report.Packages, pkg.ID())
					}
				}
			}

			reports := make([]hookReport, 0, len(byHook))
			for _, report := range byHook {
				reports = append(reports, *report)
			}
			sort.Slice(reports, func(i, j int) bool { return reports[i].Hook < reports[j].Hook })

			return writeJSON(cmd.OutOrStdout(), reports)
		},
	}

	addRuntimeFlags(cmd)
	return cmd
}
