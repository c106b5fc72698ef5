package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devdigest/pkg/digest"
)

// QueryOpts specifies filter criteria for querying events. Filters are
// AND-ed together; membership within Types or TaskIDs is OR.
type QueryOpts struct {
	// Since selects events with created_at at or after this watermark.
	Since time.Time

	// Types restricts results to these event types (empty = all).
	Types []string

	// TaskIDs restricts results to these task identifiers (empty = all).
	TaskIDs []string

	// Limit caps the number of results (0 = no limit).
	Limit int
}

// buildEventQuery constructs the SQL query and arguments from QueryOpts.
func buildEventQuery(opts QueryOpts) (string, []any) {
	var args []any
	query := "SELECT id, type, source, message, created_at, metadata, task_id FROM events WHERE 1=1"

	if !opts.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, opts.Since.UTC().Format(time.RFC3339))
	}

	if len(opts.Types) > 0 {
		query += " AND type IN (" + placeholders(len(opts.Types)) + ")"
		for _, t := range opts.Types {
			args = append(args, t)
		}
	}

	if len(opts.TaskIDs) > 0 {
		query += " AND task_id IN (" + placeholders(len(opts.TaskIDs)) + ")"
		for _, id := range opts.TaskIDs {
			args = append(args, id)
		}
	}

	// Newest first; id breaks created_at ties deterministically.
	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	return query, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// QueryEvents retrieves events matching the given filter criteria,
// ordered by event time descending. Returns an empty slice when nothing
// matches.
func (s *Store) QueryEvents(ctx context.Context, opts QueryOpts) ([]digest.Event, error) {
	query, args := buildEventQuery(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []digest.Event
	for rows.Next() {
		var e digest.Event
		var meta string
		var taskID *string
		if err := rows.Scan(&e.ID, &e.Type, &e.Source, &e.Message, &e.CreatedAt, &meta, &taskID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Metadata = metaFromJSON(meta)
		if taskID != nil {
			e.TaskID = *taskID
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetTask fetches one task by id. Returns sql.ErrNoRows wrapped when the
// task does not exist.
func (s *Store) GetTask(ctx context.Context, id string) (digest.Task, error) {
	var t digest.Task
	var assignee *string
	var meta string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, status, priority, assignee, created_at, metadata FROM tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Status, &t.Priority, &assignee, &t.CreatedAt, &meta)
	if err != nil {
		return digest.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	if assignee != nil {
		t.Assignee = *assignee
	}
	t.Metadata = metaFromJSON(meta)
	return t, nil
}

// Counts reports how many events and tasks the ledger holds.
func (s *Store) Counts(ctx context.Context) (events, tasks int64, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&events); err != nil {
		return 0, 0, fmt.Errorf("count events: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&tasks); err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	return events, tasks, nil
}

// SaveSummaries persists summary records. With replace set, all prior
// summaries for each task in the batch are deleted in the same
// transaction, so exactly one generation survives per task.
func (s *Store) SaveSummaries(ctx context.Context, sums []digest.Summary, replace bool) error {
	if len(sums) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summaries tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		seen := map[string]bool{}
		for _, sum := range sums {
			if sum.TaskID == "" || seen[sum.TaskID] {
				continue
			}
			seen[sum.TaskID] = true
			if _, err := tx.ExecContext(ctx, `DELETE FROM summaries WHERE task_id = ?`, sum.TaskID); err != nil {
				return fmt.Errorf("replace summaries for %s: %w", sum.TaskID, err)
			}
		}
	}

	for _, sum := range sums {
		if sum.ID == "" {
			sum.ID = "sum-" + uuid.New().String()
		}
		if sum.CreatedAt == "" {
			sum.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO summaries (id, task_id, status, risk, next_steps, diff_summary, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			     task_id = excluded.task_id,
			     status = excluded.status,
			     risk = excluded.risk,
			     next_steps = excluded.next_steps,
			     diff_summary = excluded.diff_summary`,
			sum.ID, sum.TaskID, sum.Status, sum.Risk, stepsToJSON(sum.NextSteps), nullable(sum.DiffSummary), sum.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert summary for %s: %w", sum.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summaries: %w", err)
	}
	return nil
}

// ListSummaries returns the stored summaries for one task, newest first.
func (s *Store) ListSummaries(ctx context.Context, taskID string) ([]digest.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, status, risk, next_steps, diff_summary, created_at
		 FROM summaries WHERE task_id = ? ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var sums []digest.Summary
	for rows.Next() {
		var sum digest.Summary
		var steps string
		var diffSummary *string
		if err := rows.Scan(&sum.ID, &sum.TaskID, &sum.Status, &sum.Risk, &steps, &diffSummary, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.NextSteps = stepsFromJSON(steps)
		if diffSummary != nil {
			sum.DiffSummary = *diffSummary
		}
		sums = append(sums, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return sums, nil
}
