package parse

import (
	"strings"
	"testing"
	"time"

	"devdigest/pkg/digest"
)

const twoFileDiff = `diff --git a/main.go b/main.go
index 83db48f..bf269f4 100644
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 package main
+import "fmt"
-var old = 1
+var cur = 2
diff --git a/util.go b/util.go
--- a/util.go
+++ b/util.go
@@ -10,2 +10,1 @@
-func gone() {}
-func alsoGone() {}
+func kept() {}
`

func TestParseDiff_SplitsPerFile(t *testing.T) {
	chunks := ParseDiff(twoFileDiff)
	if len(chunks) != 2 {
		t.Fatalf("ParseDiff returned %d chunks, want 2", len(chunks))
	}

	if chunks[0].File != "main.go" {
		t.Errorf("chunks[0].File = %q, want main.go", chunks[0].File)
	}
	if chunks[0].Additions != 2 || chunks[0].Deletions != 1 {
		t.Errorf("main.go counts = +%d/-%d, want +2/-1", chunks[0].Additions, chunks[0].Deletions)
	}

	if chunks[1].File != "util.go" {
		t.Errorf("chunks[1].File = %q, want util.go", chunks[1].File)
	}
	if chunks[1].Additions != 1 || chunks[1].Deletions != 2 {
		t.Errorf("util.go counts = +%d/-%d, want +1/-2", chunks[1].Additions, chunks[1].Deletions)
	}
}

func TestParseDiff_OneAddedOneRemoved(t *testing.T) {
	diff := "diff --git a/x.txt b/x.txt\n--- a/x.txt\n+++ b/x.txt\n@@ -1 +1 @@\n-old line\n+new line\n"
	chunks := ParseDiff(diff)
	if len(chunks) != 1 {
		t.Fatalf("ParseDiff returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Additions != 1 || chunks[0].Deletions != 1 {
		t.Errorf("counts = +%d/-%d, want +1/-1", chunks[0].Additions, chunks[0].Deletions)
	}
}

func TestParseDiff_HeaderLinesNotCounted(t *testing.T) {
	diff := "diff --git a/a b/a\n--- a/a\n+++ b/a\n@@ @@\n context\n"
	chunks := ParseDiff(diff)
	if len(chunks) != 1 {
		t.Fatalf("ParseDiff returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Additions != 0 || chunks[0].Deletions != 0 {
		t.Errorf("header lines counted: +%d/-%d, want +0/-0", chunks[0].Additions, chunks[0].Deletions)
	}
}

func TestParseDiff_AnonymousChunk(t *testing.T) {
	t.Run("path from +++ line", func(t *testing.T) {
		diff := "--- a/notes.md\n+++ b/notes.md\n+added\n"
		chunks := ParseDiff(diff)
		if len(chunks) != 1 {
			t.Fatalf("ParseDiff returned %d chunks, want 1", len(chunks))
		}
		if chunks[0].File != "notes.md" {
			t.Errorf("File = %q, want notes.md", chunks[0].File)
		}
		if chunks[0].Additions != 1 {
			t.Errorf("Additions = %d, want 1", chunks[0].Additions)
		}
	})

	t.Run("no path lines at all", func(t *testing.T) {
		chunks := ParseDiff("+one\n+two\n-three\n")
		if len(chunks) != 1 {
			t.Fatalf("ParseDiff returned %d chunks, want 1", len(chunks))
		}
		if chunks[0].File != "untracked" {
			t.Errorf("File = %q, want untracked", chunks[0].File)
		}
	})

	t.Run("empty text yields nothing", func(t *testing.T) {
		if chunks := ParseDiff("  \n\t\n"); chunks != nil {
			t.Errorf("ParseDiff(blank) = %v, want nil", chunks)
		}
	})
}

func TestDiffEvents_MessageWording(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "more additions is expansion",
			text: "diff --git a/f.go b/f.go\n+++ b/f.go\n+a\n+b\n-c\n",
			want: "f.go: expansion (+2, -1)",
		},
		{
			name: "more deletions is shrink",
			text: "diff --git a/f.go b/f.go\n+++ b/f.go\n+a\n-b\n-c\n",
			want: "f.go: shrink (+1, -2)",
		},
		{
			name: "tie counts as expansion",
			text: "diff --git a/f.go b/f.go\n+++ b/f.go\n+a\n-b\n",
			want: "f.go: expansion (+1, -1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := DiffEvents(RawDiff{Text: tt.text})
			if len(events) != 1 {
				t.Fatalf("DiffEvents returned %d events, want 1", len(events))
			}
			if events[0].Message != tt.want {
				t.Errorf("Message = %q, want %q", events[0].Message, tt.want)
			}
			if events[0].Type != digest.EventTypeDiff {
				t.Errorf("Type = %q, want %q", events[0].Type, digest.EventTypeDiff)
			}
		})
	}
}

func TestDiffEvents_CarriesCommitMetadata(t *testing.T) {
	occurred := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)
	events := DiffEvents(RawDiff{
		Text:       "diff --git a/f.go b/f.go\n+++ b/f.go\n+a\n",
		Commit:     "abc123",
		Subject:    "fix TASK-55 edge case",
		Author:     "carol",
		OccurredAt: occurred,
	})
	if len(events) != 1 {
		t.Fatalf("DiffEvents returned %d events, want 1", len(events))
	}

	e := events[0]
	if e.CreatedAt != "2024-06-20T10:00:00Z" {
		t.Errorf("CreatedAt = %q, want commit time", e.CreatedAt)
	}
	if e.TaskID != "TASK-55" {
		t.Errorf("TaskID = %q, want TASK-55 from subject", e.TaskID)
	}
	if e.Metadata["commit"] != "abc123" || e.Metadata["author"] != "carol" {
		t.Errorf("metadata = %v, want commit and author", e.Metadata)
	}
	if e.Metadata["additions"] != "1" || e.Metadata["deletions"] != "0" {
		t.Errorf("metadata counts = %v, want additions=1 deletions=0", e.Metadata)
	}
}

func TestDiffEvents_DistinctIDs(t *testing.T) {
	a := DiffEvents(RawDiff{Text: twoFileDiff})
	if len(a) != 2 {
		t.Fatalf("DiffEvents returned %d events, want 2", len(a))
	}
	if a[0].ID == a[1].ID || a[0].ID == "" {
		t.Errorf("expected distinct generated ids, got %q and %q", a[0].ID, a[1].ID)
	}
	if strings.HasPrefix(a[0].ID, "log-") {
		t.Errorf("diff event id %q should not use the log identity scheme", a[0].ID)
	}
}
