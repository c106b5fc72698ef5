package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"devdigest/internal/appversion"
)

// newRootCmd creates the root devdigest command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "devdigest",
		Short:         "Development-activity digest collector",
		Long:          "devdigest collects agent logs, commit diffs, and task metadata from a\nworkspace into a queryable, de-duplicated SQLite activity ledger.",
		Version:       fmt.Sprintf("devdigest %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newEventsCmd(),
		newSummaryCmd(),
	)

	return cmd
}
