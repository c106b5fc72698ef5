package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// newRunCmd creates the "devdigest run" subcommand: exactly one poll,
// synchronously. Used for scripted and cron-style invocations.
func newRunCmd() *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single collection poll",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)

			col, store, _, err := openWorkspace(cmd.Context(), workspace, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			res, err := col.RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("poll: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d events (%d queryable since last poll), %d tasks\n",
				res.Ingested, len(res.Events), len(res.Tasks))
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root to collect from")
	return cmd
}
