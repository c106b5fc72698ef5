package collector

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"devdigest/pkg/parse"
)

// DefaultLogExtensions are the file extensions the tailer recognizes
// when the workspace config does not override them.
var DefaultLogExtensions = []string{".log", ".txt"}

var lineSplitRe = regexp.MustCompile(`\r\n|\r|\n`)

// TailLogs reads newly appended content from every recognized log file
// under dir and returns one raw entry per surviving line, stamped with
// the poll's capture time, plus the full updated offset map (including
// unread files already mapped) so the caller persists a consistent
// snapshot.
//
// Per file: a length below the recorded offset means rotation or
// truncation, so reading restarts from zero; a length at or below the
// offset emits nothing and records the new length; otherwise only the
// appended byte range is decoded.
func TailLogs(dir string, extensions []string, offsets map[string]int64, capturedAt time.Time, logger *log.Logger) ([]parse.RawLog, map[string]int64) {
	if logger == nil {
		logger = log.Default()
	}
	if len(extensions) == 0 {
		extensions = DefaultLogExtensions
	}

	updated := make(map[string]int64, len(offsets))
	for k, v := range offsets {
		updated[k] = v
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Missing log directory is empty input, not an error.
		return nil, updated
	}

	var logs []parse.RawLog
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), extensions) {
			continue
		}
		rel := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			logger.Printf("warn: read log %s: %v", rel, err)
			continue
		}

		size := int64(len(data))
		offset := updated[rel]
		if size < offset {
			// Rotated or truncated; start over.
			offset = 0
		}
		if size <= offset {
			updated[rel] = size
			continue
		}

		for _, line := range lineSplitRe.Split(string(data[offset:]), -1) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			logs = append(logs, parse.RawLog{
				Line:       line,
				Source:     rel,
				ReceivedAt: capturedAt,
			})
		}
		updated[rel] = size
	}

	return logs, updated
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
