package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hookmux/hookmux/internal/mux"
	"github.com/hookmux/hookmux/internal/observability"
	"github.com/hookmux/hookmux/internal/source"
)

// NewWatchCmd creates the watch command: a continuous hook resolution
// stream that re-emits whenever the package set changes.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <hook>",
		Short: "Watch a hook, re-resolving on every package change",
		Long: `Watch streams one JSON line per resolution of the given hook: an
initial line as soon as the packages directory has been scanned, then a
line for every change to the package set. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			return runWatch(cmd, args[0], cfg.PackagesDir, cfg.PollInterval, cfg.MetricsAddr)
		},
	}

	addRuntimeFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, hook, packagesDir string, pollInterval time.Duration, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := source.NewDir(packagesDir, source.WithPollInterval(pollInterval))

	var opts []mux.Option
	if metricsAddr != "" {
		obs, err := startObservability(ctx, metricsAddr)
		if err != nil {
			return err
		}
		defer stopObservability(obs)
		opts = append(opts, mux.WithMetrics(mux.NewMetrics(obs.Registry())))
	}

	m := mux.New(src, opts...)
	defer m.StopWatching()

	updates := m.Watch(ctx, hook)
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			report := buildResolveReport(hook, up.Extensions)
			if up.Err != nil {
				report.Error = up.Err.Error()
			}
			if err := writeJSONLine(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if up.Err != nil {
				return up.Err
			}
		}
	}
}

func startObservability(ctx context.Context, addr string) (*observability.Server, error) {
	obs := observability.NewServer(addr, nil)
	errCh, err := obs.Start()
	if err != nil {
		return nil, err
	}
	go func() {
		select {
		case serveErr, ok := <-errCh:
			if ok && serveErr != nil {
				slog.Error("observability server failed", "error", serveErr)
			}
		case <-ctx.Done():
		}
	}()
	return obs, nil
}

func stopObservability(obs *observability.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		slog.Error("failed to stop observability server", "error", err)
	}
}
