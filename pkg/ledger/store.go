// Package ledger persists digest events, tasks, and summaries in an
// embedded SQLite database. Insert-or-update semantics keyed by record
// identity make ingestion idempotent: re-ingesting the same underlying
// data overwrites instead of duplicating.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"devdigest/pkg/digest"
	"devdigest/pkg/parse"
)

// Store manages the devdigest ledger tables in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given SQLite database. The
// caller owns schema application; Open does both.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) the ledger database at path and enforces
// production-safe defaults: WAL journal mode and a 5-second busy
// timeout. It verifies the connection with PingContext and applies the
// schema before returning.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, digest.SchemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return NewStore(db), nil
}

// Close releases the database connection. Safe to call multiple times.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// metaToJSON converts a metadata map to its stored JSON form.
func metaToJSON(meta map[string]string) string {
	if len(meta) == 0 {
		return "{}"
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// metaFromJSON parses the stored JSON form back into a map.
func metaFromJSON(s string) map[string]string {
	if s == "" || s == "{}" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil
	}
	return meta
}

func stepsToJSON(steps []string) string {
	if len(steps) == 0 {
		return "[]"
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func stepsFromJSON(s string) []string {
	if s == "" {
		return nil
	}
	var steps []string
	if err := json.Unmarshal([]byte(s), &steps); err != nil {
		return nil
	}
	return steps
}

// UpsertEvent inserts an event or, when its identity already exists,
// updates the stored record in place. The single statement keeps each
// record transactionally atomic.
func (s *Store) UpsertEvent(ctx context.Context, e digest.Event) error {
	if e.ID == "" {
		return fmt.Errorf("upsert event: empty id")
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, type, source, message, created_at, metadata, task_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     type = excluded.type,
		     source = excluded.source,
		     message = excluded.message,
		     created_at = excluded.created_at,
		     metadata = excluded.metadata,
		     task_id = excluded.task_id`,
		e.ID, e.Type, e.Source, e.Message, e.CreatedAt, metaToJSON(e.Metadata), nullable(e.TaskID),
	)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", e.ID, err)
	}
	return nil
}

// UpsertTask inserts or updates a task, generating an identity and
// filling status/priority/createdAt defaults when the seed omits them.
// Returns the task as stored.
func (s *Store) UpsertTask(ctx context.Context, t digest.Task) (digest.Task, error) {
	if t.ID == "" {
		t.ID = "task-" + uuid.New().String()
	}
	if t.Status == "" {
		t.Status = digest.TaskStatusOpen
	}
	if t.Priority == "" {
		t.Priority = digest.TaskPriorityMedium
	}
	if t.CreatedAt == "" {
		t.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, status, priority, assignee, created_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     title = excluded.title,
		     status = excluded.status,
		     priority = excluded.priority,
		     assignee = excluded.assignee,
		     metadata = excluded.metadata`,
		t.ID, t.Title, t.Status, t.Priority, nullable(t.Assignee), t.CreatedAt, metaToJSON(t.Metadata),
	)
	if err != nil {
		return digest.Task{}, fmt.Errorf("upsert task %s: %w", t.ID, err)
	}
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IngestResult is what a poll hands back to its caller: the queryable
// events since the watermark, the tasks as stored, and how many event
// records this batch wrote.
type IngestResult struct {
	Events   []digest.Event
	Tasks    []digest.Task
	Ingested int
}

// Ingest normalizes and persists one poll's batches: task seeds first
// (events may reference them), then log lines and commit diffs. It
// returns the events queryable at or after since, newest first, plus
// the stored tasks.
func (s *Store) Ingest(ctx context.Context, since time.Time, logs []parse.RawLog, diffs []parse.RawDiff, seeds []digest.Task) (IngestResult, error) {
	var res IngestResult

	for _, seed := range seeds {
		stored, err := s.UpsertTask(ctx, seed)
		if err != nil {
			return IngestResult{}, fmt.Errorf("ingest task: %w", err)
		}
		res.Tasks = append(res.Tasks, stored)
	}

	for _, raw := range logs {
		if err := s.UpsertEvent(ctx, parse.LogEvent(raw)); err != nil {
			return IngestResult{}, fmt.Errorf("ingest log: %w", err)
		}
		res.Ingested++
	}

	for _, raw := range diffs {
		for _, ev := range parse.DiffEvents(raw) {
			if err := s.UpsertEvent(ctx, ev); err != nil {
				return IngestResult{}, fmt.Errorf("ingest diff: %w", err)
			}
			res.Ingested++
		}
	}

	events, err := s.QueryEvents(ctx, QueryOpts{Since: since})
	if err != nil {
		return IngestResult{}, err
	}
	res.Events = events
	return res, nil
}
