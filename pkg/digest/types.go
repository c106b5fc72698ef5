// Package digest defines the canonical records of the activity ledger:
// events, tasks, summaries, and the collector cursor. It also owns the
// SQLite schema those records persist into.
package digest

import "time"

// Event type tags produced by the parsers.
const (
	EventTypeLog      = "log"
	EventTypeIncident = "incident"
	EventTypeDiff     = "diff change"
)

// Task defaults applied when a manifest entry omits them.
const (
	TaskStatusOpen        = "open"
	TaskPriorityMedium    = "medium"
	ProcessedCommitsLimit = 200
)

// Event represents a row in the events SQLite table.
// One normalized activity record: a log line, a diff chunk, or an
// incident. ID is stable across re-ingestion of the same source data.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Message   string            `json:"message"`
	CreatedAt string            `json:"created_at"` // ISO 8601 event-time
	Metadata  map[string]string `json:"metadata,omitempty"`
	TaskID    string            `json:"task_id,omitempty"`
}

// Task represents a row in the tasks SQLite table.
// Created and updated from the workspace manifest; never deleted.
type Task struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Status    string            `json:"status"`
	Priority  string            `json:"priority"`
	Assignee  string            `json:"assignee,omitempty"`
	CreatedAt string            `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Summary represents a row in the summaries SQLite table.
// Produced by a downstream summarizer and stored alongside the events it
// was derived from.
type Summary struct {
	ID          string   `json:"id"`
	TaskID      string   `json:"task_id"`
	Status      string   `json:"status"`
	Risk        string   `json:"risk"` // low | medium | high
	NextSteps   []string `json:"next_steps"`
	DiffSummary string   `json:"diff_summary"`
	CreatedAt   string   `json:"created_at"`
}

// Cursor is the collector's persisted resumption state for a workspace.
// It lives with the workspace, not the process: every poll loads it,
// every successful poll saves it back.
type Cursor struct {
	LastPollIso      string           `json:"lastPollIso"`
	LogOffsets       map[string]int64 `json:"logOffsets"`
	ProcessedCommits []string         `json:"processedCommits"`
}

// ZeroCursor returns the cursor used when none has been persisted yet:
// epoch watermark, no offsets, no processed commits.
func ZeroCursor() Cursor {
	return Cursor{
		LastPollIso: time.Unix(0, 0).UTC().Format(time.RFC3339),
		LogOffsets:  map[string]int64{},
	}
}

// LastPoll parses the cursor watermark, falling back to the epoch when
// the stored value is empty or unparsable.
func (c Cursor) LastPoll() time.Time {
	t, err := time.Parse(time.RFC3339, c.LastPollIso)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// TrimProcessed bounds a processed-commit history to its most recent
// ProcessedCommitsLimit entries, oldest evicted first. Append-then-trim
// is the one eviction policy; keeping it here keeps dedup reproducible.
func TrimProcessed(commits []string) []string {
	if n := len(commits); n > ProcessedCommitsLimit {
		return append([]string(nil), commits[n-ProcessedCommitsLimit:]...)
	}
	return commits
}

// RememberCommits appends newly processed commit hashes and trims the
// history with TrimProcessed.
func (c *Cursor) RememberCommits(hashes ...string) {
	c.ProcessedCommits = TrimProcessed(append(c.ProcessedCommits, hashes...))
}
