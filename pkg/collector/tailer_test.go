package collector_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"

	"devdigest/pkg/collector"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTailLogs_FirstPollReadsEverything(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "agent.log", "line one\nline two\n")
	now := time.Now()

	logs, offsets := collector.TailLogs(dir, nil, nil, now, quietLogger())

	if len(logs) != 2 {
		t.Fatalf("got %d lines, want 2", len(logs))
	}
	if logs[0].Line != "line one" || logs[1].Line != "line two" {
		t.Errorf("lines = %q, %q", logs[0].Line, logs[1].Line)
	}
	if logs[0].Source != "agent.log" {
		t.Errorf("Source = %q, want agent.log", logs[0].Source)
	}
	if !logs[0].ReceivedAt.Equal(now) {
		t.Errorf("ReceivedAt = %v, want capture time", logs[0].ReceivedAt)
	}
	if offsets["agent.log"] != int64(len("line one\nline two\n")) {
		t.Errorf("offset = %d, want file length", offsets["agent.log"])
	}
}

func TestTailLogs_SecondPollReadsOnlyAppended(t *testing.T) {
	dir := t.TempDir()
	first := "line one\n"
	writeLog(t, dir, "agent.log", first)

	_, offsets := collector.TailLogs(dir, nil, nil, time.Now(), quietLogger())

	writeLog(t, dir, "agent.log", first+"line two\n")
	logs, offsets := collector.TailLogs(dir, nil, offsets, time.Now(), quietLogger())

	if len(logs) != 1 || logs[0].Line != "line two" {
		t.Fatalf("appended read = %+v, want just line two", logs)
	}
	if offsets["agent.log"] != int64(len(first)+len("line two\n")) {
		t.Errorf("offset = %d, want full length", offsets["agent.log"])
	}
}

func TestTailLogs_UnchangedFileEmitsNothing(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "agent.log", "steady\n")

	_, offsets := collector.TailLogs(dir, nil, nil, time.Now(), quietLogger())
	logs, again := collector.TailLogs(dir, nil, offsets, time.Now(), quietLogger())

	if len(logs) != 0 {
		t.Errorf("unchanged file emitted %d lines", len(logs))
	}
	if again["agent.log"] != offsets["agent.log"] {
		t.Errorf("offset moved on an unchanged file: %d -> %d", offsets["agent.log"], again["agent.log"])
	}
}

func TestTailLogs_RotationRestartsFromZero(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "agent.log", "old content that was long\n")
	_, offsets := collector.TailLogs(dir, nil, nil, time.Now(), quietLogger())

	// Rotated: the new file is shorter than the recorded offset.
	writeLog(t, dir, "agent.log", "fresh\n")
	logs, offsets := collector.TailLogs(dir, nil, offsets, time.Now(), quietLogger())

	if len(logs) != 1 || logs[0].Line != "fresh" {
		t.Fatalf("rotation read = %+v, want the whole new file", logs)
	}
	if offsets["agent.log"] != int64(len("fresh\n")) {
		t.Errorf("offset = %d, want new file length", offsets["agent.log"])
	}
}

func TestTailLogs_LineDiscipline(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "mixed.log", "one\r\ntwo\rthree\n\n   \nfour")

	logs, _ := collector.TailLogs(dir, nil, nil, time.Now(), quietLogger())

	want := []string{"one", "two", "three", "four"}
	if len(logs) != len(want) {
		t.Fatalf("got %d lines, want %d", len(logs), len(want))
	}
	for i, w := range want {
		if logs[i].Line != w {
			t.Errorf("line %d = %q, want %q", i, logs[i].Line, w)
		}
	}
}

func TestTailLogs_FileSelection(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "agent.log", "kept\n")
	writeLog(t, dir, "notes.txt", "also kept\n")
	writeLog(t, dir, "binary.db", "ignored\n")
	if err := os.Mkdir(filepath.Join(dir, "sub.log"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	logs, offsets := collector.TailLogs(dir, nil, nil, time.Now(), quietLogger())

	if len(logs) != 2 {
		t.Fatalf("got %d lines, want 2 (only .log and .txt files)", len(logs))
	}
	if _, ok := offsets["binary.db"]; ok {
		t.Error("unrecognized extension should not be tracked")
	}
	if _, ok := offsets["sub.log"]; ok {
		t.Error("directories should not be tracked")
	}
}

func TestTailLogs_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "out.jsonl", "entry\n")
	writeLog(t, dir, "agent.log", "skipped\n")

	logs, _ := collector.TailLogs(dir, []string{".jsonl"}, nil, time.Now(), quietLogger())

	if len(logs) != 1 || logs[0].Source != "out.jsonl" {
		t.Fatalf("custom extensions read = %+v, want just out.jsonl", logs)
	}
}

func TestTailLogs_MissingDirIsEmptyInput(t *testing.T) {
	offsets := map[string]int64{"stale.log": 42}
	logs, updated := collector.TailLogs(filepath.Join(t.TempDir(), "absent"), nil, offsets, time.Now(), quietLogger())

	if len(logs) != 0 {
		t.Errorf("missing dir emitted %d lines", len(logs))
	}
	if updated["stale.log"] != 42 {
		t.Errorf("existing offsets should survive a missing dir, got %v", updated)
	}
}

func TestTailLogs_OffsetsNeverRegressOnAppend(t *testing.T) {
	root := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		dir, err := os.MkdirTemp(root, "logs-")
		if err != nil {
			rt.Fatalf("mkdir: %v", err)
		}
		name := "agent.log"

		var content string
		var offsets map[string]int64
		rounds := rapid.IntRange(1, 6).Draw(rt, "rounds")
		for i := 0; i < rounds; i++ {
			lines := rapid.SliceOfN(rapid.StringMatching(`[a-zA-Z0-9 ]{1,30}`), 0, 4).Draw(rt, "lines")
			for _, l := range lines {
				content += l + "\n"
			}
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
				rt.Fatalf("write log: %v", err)
			}

			prev := offsets[name]
			raw, updated := collector.TailLogs(dir, nil, offsets, time.Now(), quietLogger())

			if updated[name] < prev {
				rt.Fatalf("offset regressed on append: %d -> %d", prev, updated[name])
			}
			if updated[name] != int64(len(content)) {
				rt.Fatalf("offset = %d, want %d (full length)", updated[name], len(content))
			}
			for _, r := range raw {
				if r.Line == "" {
					rt.Fatal("blank line emitted")
				}
			}
			offsets = updated
		}
	})
}
