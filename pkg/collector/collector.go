package collector

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"devdigest/pkg/digest"
	"devdigest/pkg/ledger"
)

// Collector orchestrates one workspace's polling pipeline: tail logs,
// collect commits, load tasks, ingest into the ledger, persist the
// cursor. A single logical thread of control runs per workspace; the
// Collector is the sole writer of its cursor.
type Collector struct {
	store   *ledger.Store
	cursors CursorStore
	commits *CommitCollector
	cfg     Config
	logger  *log.Logger

	// busy enforces at most one poll in flight; overlapping requests
	// are dropped, not queued.
	busy sync.Mutex
	wg   sync.WaitGroup
}

// New creates a Collector. A nil logger falls back to log.Default.
func New(store *ledger.Store, cursors CursorStore, git GitRunner, cfg Config, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.Default()
	}
	cfg = cfg.Resolve()
	return &Collector{
		store:   store,
		cursors: cursors,
		commits: NewCommitCollector(git, cfg.Workspace, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// RunOnce executes exactly one poll synchronously: load cursor, tail
// logs, collect commits, load tasks, ingest, persist cursor. The cursor
// only advances when the whole poll succeeds; a failed poll leaves it
// for the next attempt to retry wholesale.
func (c *Collector) RunOnce(ctx context.Context) (ledger.IngestResult, error) {
	pollStart := time.Now()
	cur := c.cursors.Load()
	since := cur.LastPoll()

	logs, offsets := TailLogs(c.cfg.LogDir, c.cfg.LogExtensions, cur.LogOffsets, pollStart, c.logger)
	diffs, processed := c.commits.Collect(ctx, since, cur.ProcessedCommits)
	seeds := LoadTasks(c.cfg.Manifest, c.logger)

	res, err := c.store.Ingest(ctx, since, logs, diffs, seeds)
	if err != nil {
		return ledger.IngestResult{}, fmt.Errorf("ingest poll batch: %w", err)
	}

	next := digest.Cursor{
		LastPollIso:      pollStart.UTC().Format(time.RFC3339),
		LogOffsets:       offsets,
		ProcessedCommits: processed,
	}
	if err := c.cursors.Save(next); err != nil {
		return ledger.IngestResult{}, fmt.Errorf("persist cursor: %w", err)
	}

	eventsIngestedTotal.Add(float64(res.Ingested))
	commitsProcessedTotal.Add(float64(len(diffs)))
	pollsTotal.Inc()
	return res, nil
}

// requestPoll starts a poll unless one is already in flight, in which
// case the request is dropped. The poll runs detached from the loop
// context so shutdown never abandons it mid-write.
func (c *Collector) requestPoll(ctx context.Context) {
	if !c.busy.TryLock() {
		pollsDroppedTotal.Inc()
		return
	}

	pollCtx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.busy.Unlock()
		if _, err := c.RunOnce(pollCtx); err != nil {
			// Poll boundary: log and let the next tick retry from the
			// last persisted cursor.
			pollErrorsTotal.Inc()
			c.logger.Printf("poll failed: %v", err)
		}
	}()
}

// Run polls on the configured interval until ctx is cancelled. When the
// workspace log directory is watchable, file changes trigger an early
// poll between ticks; the ticker stays on as a safety net. Run returns
// only after any in-flight poll has finished.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	// Nil channels never fire, so a failed watcher quietly degrades to
	// interval-only polling.
	var watchEvents <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Printf("warn: fsnotify unavailable: %v (interval polling only)", err)
	} else if werr := watcher.Add(c.cfg.LogDir); werr != nil {
		c.logger.Printf("warn: watch %s: %v (interval polling only)", c.cfg.LogDir, werr)
		_ = watcher.Close()
	} else {
		watchEvents = watcher.Events
		watchErrors = watcher.Errors
		defer func() { _ = watcher.Close() }()
	}

	// Initial poll so a restart catches up immediately.
	c.requestPoll(ctx)

	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			return nil
		case <-ticker.C:
			c.requestPoll(ctx)
		case <-watchEvents:
			c.requestPoll(ctx)
		case werr := <-watchErrors:
			if werr != nil {
				c.logger.Printf("warn: log watcher: %v", werr)
			}
		}
	}
}
