package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "devdigest status" subcommand: daemon
// liveness plus ledger counts.
func newStatusCmd() *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and ledger counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)

			_, store, cfg, err := openWorkspace(cmd.Context(), workspace, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			paths := ResolvePaths(cfg.Workspace)
			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch status {
			case StatusRunning:
				fmt.Fprintf(out, "daemon: running (pid %d)\n", pid)
			case StatusStale:
				fmt.Fprintf(out, "daemon: stale PID file (pid %d is dead)\n", pid)
			default:
				fmt.Fprintln(out, "daemon: stopped")
			}

			events, tasks, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ledger: %d events, %d tasks\n", events, tasks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root")
	return cmd
}
