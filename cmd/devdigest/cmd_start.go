package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"devdigest/pkg/collector"
	"devdigest/pkg/ledger"
)

// newStartCmd creates the "devdigest start" subcommand: the collection
// daemon. It polls on the configured interval until SIGTERM/SIGINT,
// then drains the in-flight poll before releasing the store handle.
func newStartCmd() *cobra.Command {
	var workspace string
	var interval time.Duration
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the collection daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)

			abs, err := filepath.Abs(workspace)
			if err != nil {
				return fmt.Errorf("resolve workspace %s: %w", workspace, err)
			}
			paths := ResolvePaths(abs)

			cfg := collector.LoadConfig(abs, paths.ConfigPath, logger)
			if interval > 0 {
				cfg.Interval = interval
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}

			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}
			if status == StatusRunning {
				return fmt.Errorf("collector already running (pid %d)", pid)
			}

			store, err := ledger.Open(cmd.Context(), paths.DBPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := WritePIDFile(paths.PIDPath, os.Getpid()); err != nil {
				return err
			}
			ctx, cleanup := SetupSignalHandler(cmd.Context(), paths.PIDPath)
			defer cleanup()

			if cfg.MetricsAddr != "" {
				go serveMetrics(cfg.MetricsAddr, logger)
			}

			cursors := collector.NewFileCursorStore(paths.CursorPath, logger)
			col := collector.New(store, cursors, &collector.ExecGitRunner{}, cfg, logger)

			logger.Printf("collecting %s every %s", cfg.Workspace, cfg.Interval)
			return col.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root to collect from")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (overrides config)")
	return cmd
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Printf("metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("warn: metrics server: %v", err)
	}
}
