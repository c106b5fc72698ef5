package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"devdigest/pkg/ledger"
)

// newEventsCmd creates the "devdigest events" subcommand: query the
// ledger by time window, type, and task.
func newEventsCmd() *cobra.Command {
	var workspace string
	var since string
	var types []string
	var tasks []string
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query ledger events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)

			opts := ledger.QueryOpts{Types: types, TaskIDs: tasks, Limit: limit}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("parse --since %q: %w", since, err)
				}
				opts.Since = t
			}

			_, store, _, err := openWorkspace(cmd.Context(), workspace, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			events, err := store.QueryEvents(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "no events")
				return nil
			}
			for _, e := range events {
				task := ""
				if e.TaskID != "" {
					task = " [" + e.TaskID + "]"
				}
				fmt.Fprintf(out, "%s  %-11s %s%s  %s\n", e.CreatedAt, e.Type, e.Source, task, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root")
	cmd.Flags().StringVar(&since, "since", "", "only events at or after this RFC 3339 time")
	cmd.Flags().StringArrayVar(&types, "type", nil, "filter by event type (repeatable)")
	cmd.Flags().StringArrayVar(&tasks, "task", nil, "filter by task id (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of results (0 = all)")
	return cmd
}
