package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"devdigest/pkg/digest"
)

// newSummaryCmd creates the "devdigest summary" subcommand: record
// downstream-produced summary rows from a JSON file. With --replace,
// prior summaries for the affected tasks are superseded.
func newSummaryCmd() *cobra.Command {
	var workspace string
	var replace bool
	cmd := &cobra.Command{
		Use:   "summary <file.json>",
		Short: "Record task summaries into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)

			sums, err := loadSummaries(args[0])
			if err != nil {
				return err
			}

			_, store, _, err := openWorkspace(cmd.Context(), workspace, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveSummaries(cmd.Context(), sums, replace); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d summaries\n", len(sums))
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root")
	cmd.Flags().BoolVar(&replace, "replace", false, "supersede prior summaries for the affected tasks")
	return cmd
}

// loadSummaries accepts either a single summary object or a list.
func loadSummaries(path string) ([]digest.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summaries %s: %w", path, err)
	}

	var sums []digest.Summary
	if err := json.Unmarshal(data, &sums); err == nil {
		return sums, nil
	}

	var one digest.Summary
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse summaries %s: %w", path, err)
	}
	return []digest.Summary{one}, nil
}
