// Package collector implements the devdigest polling pipeline: cursor
// persistence, incremental log tailing, commit-history collection, task
// manifest loading, and the poll loop that drives them into the ledger.
package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"devdigest/pkg/digest"
)

// CursorStore persists a workspace's collection cursor. Implementations
// must tolerate a missing or corrupt cursor: correctness rests on the
// idempotence of re-ingestion, not on perfect cursor durability.
type CursorStore interface {
	Load() digest.Cursor
	Save(digest.Cursor) error
}

// FileCursorStore keeps the cursor as a JSON document on disk.
type FileCursorStore struct {
	Path   string
	Logger *log.Logger
}

// NewFileCursorStore creates a cursor store at path. A nil logger falls
// back to log.Default.
func NewFileCursorStore(path string, logger *log.Logger) *FileCursorStore {
	if logger == nil {
		logger = log.Default()
	}
	return &FileCursorStore{Path: path, Logger: logger}
}

// Load reads the persisted cursor. A missing file yields the zero
// cursor silently; an unparsable file yields the zero cursor with a
// warning. Either way collection proceeds.
func (s *FileCursorStore) Load() digest.Cursor {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.Logger.Printf("warn: read cursor %s: %v", s.Path, err)
		}
		return digest.ZeroCursor()
	}

	var cur digest.Cursor
	if err := json.Unmarshal(data, &cur); err != nil {
		s.Logger.Printf("warn: parse cursor %s: %v (starting from zero cursor)", s.Path, err)
		return digest.ZeroCursor()
	}
	if cur.LogOffsets == nil {
		cur.LogOffsets = map[string]int64{}
	}
	if cur.LastPollIso == "" {
		cur.LastPollIso = digest.ZeroCursor().LastPollIso
	}
	return cur
}

// Save atomically replaces the persisted cursor, creating any missing
// parent directory. It writes to a temp file in the same directory and
// renames it over the target.
func (s *FileCursorStore) Save(cur digest.Cursor) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cursor dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cursor-*.json")
	if err != nil {
		return fmt.Errorf("create cursor temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close cursor temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cursor %s: %w", s.Path, err)
	}
	return nil
}
