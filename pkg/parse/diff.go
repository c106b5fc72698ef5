package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"devdigest/pkg/digest"
)

// RawDiff is one commit's patch text plus the commit metadata the
// collector already knows.
type RawDiff struct {
	Text       string
	Commit     string
	Subject    string
	Author     string
	Source     string
	OccurredAt time.Time
}

// DiffChunk is the per-file breakdown of a unified diff.
type DiffChunk struct {
	File      string
	Additions int
	Deletions int
}

var (
	fileHeaderRe = regexp.MustCompile(`(?m)^diff --git a/(\S+) b/(\S+)`)
	pathLineRe   = regexp.MustCompile(`(?m)^(?:\+\+\+|---)\s+(\S+)`)
)

// ParseDiff splits unified-diff text into per-file chunks with added and
// removed line counts. A diff with no file headers but non-empty content
// becomes a single anonymous chunk; its path comes from the first
// +++/--- line when one exists, otherwise "untracked".
func ParseDiff(text string) []DiffChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	headers := fileHeaderRe.FindAllStringSubmatchIndex(text, -1)
	if len(headers) == 0 {
		chunk := countChunk(text)
		chunk.File = anonymousPath(text)
		return []DiffChunk{chunk}
	}

	chunks := make([]DiffChunk, 0, len(headers))
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		chunk := countChunk(text[h[0]:end])
		// Prefer the new-file side of the header.
		chunk.File = text[h[4]:h[5]]
		chunks = append(chunks, chunk)
	}
	return chunks
}

// countChunk counts content lines starting with a single +/-, excluding
// the three-character +++/--- header lines.
func countChunk(chunk string) DiffChunk {
	var c DiffChunk
	for _, line := range strings.Split(chunk, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			c.Additions++
		case strings.HasPrefix(line, "-"):
			c.Deletions++
		}
	}
	return c
}

// anonymousPath synthesizes a file path for header-less diff text.
func anonymousPath(text string) string {
	if m := pathLineRe.FindStringSubmatch(text); m != nil {
		path := strings.TrimPrefix(strings.TrimPrefix(m[1], "a/"), "b/")
		if path != "" && path != "/dev/null" {
			return path
		}
	}
	return "untracked"
}

// Direction words for the diff-event message. Ties count as expansion.
func direction(c DiffChunk) string {
	if c.Additions >= c.Deletions {
		return "expansion"
	}
	return "shrink"
}

// DiffEvents turns one raw diff into one event per parsed chunk.
// Unlike log events, diff events carry generated identities; commit
// dedup in the collector keeps re-ingestion out.
func DiffEvents(raw RawDiff) []digest.Event {
	chunks := ParseDiff(raw.Text)
	if len(chunks) == 0 {
		return nil
	}

	createdAt := raw.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	source := raw.Source
	if source == "" {
		source = "git"
	}

	events := make([]digest.Event, 0, len(chunks))
	for _, c := range chunks {
		meta := map[string]string{
			"file":      c.File,
			"additions": fmt.Sprintf("%d", c.Additions),
			"deletions": fmt.Sprintf("%d", c.Deletions),
		}
		if raw.Commit != "" {
			meta["commit"] = raw.Commit
		}
		if raw.Subject != "" {
			meta["subject"] = raw.Subject
		}
		if raw.Author != "" {
			meta["author"] = raw.Author
		}

		events = append(events, digest.Event{
			ID:        uuid.New().String(),
			Type:      digest.EventTypeDiff,
			Source:    source,
			Message:   fmt.Sprintf("%s: %s (+%d, -%d)", c.File, direction(c), c.Additions, c.Deletions),
			CreatedAt: createdAt.UTC().Format(time.RFC3339),
			Metadata:  meta,
			TaskID:    ExtractTaskRef(raw.Subject),
		})
	}
	return events
}
