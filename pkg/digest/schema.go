package digest

// SchemaDDL defines the SQLite schema for the devdigest activity ledger.
// Tables: events, tasks, summaries.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
//
// Foreign keys document the task links; enforcement stays off because
// events may reference tasks scraped from log text before (or without)
// a matching manifest entry.
const SchemaDDL = `
-- Normalized activity events (logs, diff chunks, incidents)
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    source TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    task_id TEXT REFERENCES tasks(id)
);

CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_task_id ON events(task_id);

-- Units of work referenced by events; fed from the workspace manifest
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open',
    priority TEXT NOT NULL DEFAULT 'medium',
    assignee TEXT,
    created_at TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}'
);

-- Downstream-produced task summaries; replace mode keeps one generation
CREATE TABLE IF NOT EXISTS summaries (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL REFERENCES tasks(id),
    status TEXT NOT NULL,
    risk TEXT NOT NULL DEFAULT 'low',
    next_steps TEXT NOT NULL DEFAULT '[]',
    diff_summary TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_summaries_task_id ON summaries(task_id);
`
