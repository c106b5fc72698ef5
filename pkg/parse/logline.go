// Package parse turns raw workspace signals — agent log lines and
// unified-diff text — into canonical digest events. Everything here is a
// pure function over its inputs so the collector stays trivially
// testable.
package parse

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"time"

	"devdigest/pkg/digest"
)

// RawLog is one freshly tailed log line, stamped with the time the
// tailer captured it.
type RawLog struct {
	Line       string
	Source     string
	ReceivedAt time.Time
}

// LogRecord is the structured intermediate produced by the line
// matchers before an event is built.
type LogRecord struct {
	TimestampText string
	Author        string
	Severity      string
	Message       string
	TaskID        string
}

// lineMatcher attempts one known log format. ok is false when the line
// does not belong to this format.
type lineMatcher func(line string) (rec LogRecord, ok bool)

// Matchers are tried in order, first match wins; fallbackRecord handles
// everything else. New formats slot in here without touching fallback
// logic.
var lineMatchers = []lineMatcher{
	matchBracketedLine,
	matchSeverityFirstLine,
}

var (
	// [<timestamp>] <author>(|<SEVERITY>)?: <message>( | task=<id>)?
	bracketedRe = regexp.MustCompile(`^\[([^\]]+)\]\s*([^:|]+?)(?:\|(\w+))?:\s*(.*?)(?:\s*\|\s*task=(\S+))?\s*$`)

	// <timestamp> <SEVERITY> <author>: <message>
	severityFirstRe = regexp.MustCompile(`^(\S+(?:\s\S+)?)\s+(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL)\s+([^:]+):\s*(.*)$`)

	// Opportunistic task reference: TASK-1234, issue #42, BUG-007 ...
	taskRefRe = regexp.MustCompile(`(?i)\b(TASK|ISSUE|BUG)[-#]?(\d{2,6})\b`)

	// author|SEVERITY: prefix, stripped before hashing line identity.
	authorPrefixRe = regexp.MustCompile(`^[\w.\-]+\|\w+:\s*`)
)

func matchBracketedLine(line string) (LogRecord, bool) {
	m := bracketedRe.FindStringSubmatch(line)
	if m == nil {
		return LogRecord{}, false
	}
	return LogRecord{
		TimestampText: strings.TrimSpace(m[1]),
		Author:        strings.TrimSpace(m[2]),
		Severity:      m[3],
		Message:       m[4],
		TaskID:        m[5],
	}, true
}

func matchSeverityFirstLine(line string) (LogRecord, bool) {
	m := severityFirstRe.FindStringSubmatch(line)
	if m == nil {
		return LogRecord{}, false
	}
	return LogRecord{
		TimestampText: strings.TrimSpace(m[1]),
		Severity:      m[2],
		Author:        strings.TrimSpace(m[3]),
		Message:       m[4],
	}, true
}

// fallbackRecord treats the whole line as the message and scavenges a
// task reference from it.
func fallbackRecord(line string) LogRecord {
	return LogRecord{Message: line, TaskID: ExtractTaskRef(line)}
}

// ParseLogLine runs the ordered matcher list over one line. When a
// pattern matches but captured no task id, the task-reference scan runs
// over the captured message as a fallback.
func ParseLogLine(line string) LogRecord {
	for _, match := range lineMatchers {
		rec, ok := match(line)
		if !ok {
			continue
		}
		if rec.TaskID == "" {
			rec.TaskID = ExtractTaskRef(rec.Message)
		}
		return rec
	}
	return fallbackRecord(line)
}

// ExtractTaskRef scans text for a task/issue/bug token and normalizes it
// to TASK-<digits>. Returns "" when no token is present.
func ExtractTaskRef(text string) string {
	m := taskRefRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return "TASK-" + m[2]
}

// timestampLayouts are tried in order when normalizing a captured
// timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
}

// NormalizeTimestamp parses ts and returns its ISO 8601 form. On failure
// it falls back to the receipt time, then to now.
func NormalizeTimestamp(ts string, receivedAt time.Time) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	if !receivedAt.IsZero() {
		return receivedAt.UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// LogEventID derives the stable identity of a log line from the captured
// timestamp text and the message with any leading author|SEVERITY:
// prefix removed. Two ingestions of the same underlying line hash to the
// same id, so re-ingestion overwrites instead of duplicating.
func LogEventID(timestampText, message string) string {
	body := authorPrefixRe.ReplaceAllString(message, "")
	sum := sha256.Sum256([]byte(timestampText + "\n" + body))
	return fmt.Sprintf("log-%x", sum[:10])
}

// LogEvent builds the canonical event for one tailed line.
func LogEvent(raw RawLog) digest.Event {
	rec := ParseLogLine(raw.Line)

	evType := digest.EventTypeLog
	if strings.EqualFold(rec.Severity, "error") || strings.EqualFold(rec.Severity, "err") {
		evType = digest.EventTypeIncident
	}

	meta := map[string]string{}
	if rec.Author != "" {
		meta["author"] = rec.Author
	}
	if rec.Severity != "" {
		meta["severity"] = strings.ToLower(rec.Severity)
	}

	source := raw.Source
	if source == "" {
		source = "agent-log"
	}

	return digest.Event{
		ID:        LogEventID(rec.TimestampText, rec.Message),
		Type:      evType,
		Source:    source,
		Message:   rec.Message,
		CreatedAt: NormalizeTimestamp(rec.TimestampText, raw.ReceivedAt),
		Metadata:  meta,
		TaskID:    rec.TaskID,
	}
}
