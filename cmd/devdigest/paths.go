package main

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved devdigest state file paths for one
// workspace. Use ResolvePaths() to populate it with defaults + env
// overrides.
type Paths struct {
	DigestHome string // <workspace>/.devdigest or DEVDIGEST_HOME
	PIDPath    string // devdigest.pid or DEVDIGEST_PID_PATH
	CursorPath string // cursor.json or DEVDIGEST_CURSOR_PATH
	DBPath     string // digest.db or DEVDIGEST_DB_PATH
	ConfigPath string // config.yaml (respects DEVDIGEST_HOME)
}

// ResolvePaths returns all devdigest paths for a workspace, respecting
// env var overrides:
//   - DEVDIGEST_HOME: base directory for all state (default: <workspace>/.devdigest)
//   - DEVDIGEST_PID_PATH: daemon PID file (default: $DEVDIGEST_HOME/devdigest.pid)
//   - DEVDIGEST_CURSOR_PATH: collector cursor (default: $DEVDIGEST_HOME/cursor.json)
//   - DEVDIGEST_DB_PATH: ledger database (default: $DEVDIGEST_HOME/digest.db)
//
// The cursor and ledger live with the workspace, not the process: a
// restarted collector resumes from whatever they hold.
func ResolvePaths(workspace string) Paths {
	home := os.Getenv("DEVDIGEST_HOME")
	if home == "" {
		home = filepath.Join(workspace, ".devdigest")
	}

	return Paths{
		DigestHome: home,
		PIDPath:    resolvePathWithEnv("DEVDIGEST_PID_PATH", home, "devdigest.pid"),
		CursorPath: resolvePathWithEnv("DEVDIGEST_CURSOR_PATH", home, "cursor.json"),
		DBPath:     resolvePathWithEnv("DEVDIGEST_DB_PATH", home, "digest.db"),
		ConfigPath: filepath.Join(home, "config.yaml"),
	}
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
