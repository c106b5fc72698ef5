package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"devdigest/pkg/collector"
	"devdigest/pkg/ledger"
)

// openWorkspace resolves a workspace path and opens its ledger and
// collector. Store-handle acquisition is the one startup step allowed
// to abort the process; everything past it degrades gracefully.
func openWorkspace(ctx context.Context, workspace string, logger *log.Logger) (*collector.Collector, *ledger.Store, collector.Config, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, nil, collector.Config{}, fmt.Errorf("resolve workspace %s: %w", workspace, err)
	}

	paths := ResolvePaths(abs)
	cfg := collector.LoadConfig(abs, paths.ConfigPath, logger)

	store, err := ledger.Open(ctx, paths.DBPath)
	if err != nil {
		return nil, nil, collector.Config{}, fmt.Errorf("open ledger: %w", err)
	}

	cursors := collector.NewFileCursorStore(paths.CursorPath, logger)
	col := collector.New(store, cursors, &collector.ExecGitRunner{}, cfg, logger)
	return col, store, cfg, nil
}
