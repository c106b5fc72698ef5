package collector_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"devdigest/pkg/collector"
	"devdigest/pkg/digest"
)

// fakeGit scripts git responses per leading subcommand. Patches are
// keyed by commit hash for "show".
type fakeGit struct {
	history    string
	historyErr error
	patches    map[string]string
	patchErrs  map[string]error
	calls      []string
}

func (f *fakeGit) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	switch args[0] {
	case "log":
		if f.historyErr != nil {
			return "", "fatal: not a git repository", f.historyErr
		}
		return f.history, "", nil
	case "show":
		hash := args[1]
		if err := f.patchErrs[hash]; err != nil {
			return "", "fatal: bad object", err
		}
		return f.patches[hash], "", nil
	}
	return "", "", fmt.Errorf("unexpected git %s", args[0])
}

func historyLine(hash, iso, author, subject string) string {
	return hash + "\t" + iso + "\t" + author + "\t" + subject
}

func TestCommitCollector_FetchesUnprocessedCommits(t *testing.T) {
	git := &fakeGit{
		history: strings.Join([]string{
			historyLine("aaa111", "2024-06-20T10:00:00Z", "dev", "Fix login for TASK-7"),
			historyLine("bbb222", "2024-06-20T11:00:00Z", "dev", "Refactor parser"),
		}, "\n"),
		patches: map[string]string{
			"aaa111": "diff --git a/login.go b/login.go\n+fix\n",
			"bbb222": "diff --git a/parse.go b/parse.go\n-old\n+new\n",
		},
	}
	cc := collector.NewCommitCollector(git, t.TempDir(), quietLogger())

	diffs, processed := cc.Collect(context.Background(), time.Unix(0, 0), nil)

	if len(diffs) != 2 {
		t.Fatalf("got %d diffs, want 2", len(diffs))
	}
	if diffs[0].Commit != "aaa111" || diffs[1].Commit != "bbb222" {
		t.Errorf("commit order = %s, %s; want oldest first", diffs[0].Commit, diffs[1].Commit)
	}
	if diffs[0].Author != "dev" || diffs[0].Subject != "Fix login for TASK-7" {
		t.Errorf("commit metadata = %+v", diffs[0])
	}
	if want, _ := time.Parse(time.RFC3339, "2024-06-20T10:00:00Z"); !diffs[0].OccurredAt.Equal(want) {
		t.Errorf("OccurredAt = %v, want commit time", diffs[0].OccurredAt)
	}
	if len(processed) != 2 {
		t.Errorf("processed = %v, want both hashes remembered", processed)
	}
}

func TestCommitCollector_SkipsProcessedCommits(t *testing.T) {
	git := &fakeGit{
		history: strings.Join([]string{
			historyLine("aaa111", "2024-06-20T10:00:00Z", "dev", "old work"),
			historyLine("ccc333", "2024-06-20T12:00:00Z", "dev", "new work"),
		}, "\n"),
		patches: map[string]string{"ccc333": "diff --git a/x.go b/x.go\n+x\n"},
	}
	cc := collector.NewCommitCollector(git, t.TempDir(), quietLogger())

	diffs, processed := cc.Collect(context.Background(), time.Unix(0, 0), []string{"aaa111"})

	if len(diffs) != 1 || diffs[0].Commit != "ccc333" {
		t.Fatalf("diffs = %+v, want just ccc333", diffs)
	}
	if len(processed) != 2 {
		t.Errorf("processed = %v, want aaa111 retained plus ccc333", processed)
	}
	for _, call := range git.calls {
		if strings.HasPrefix(call, "show aaa111") {
			t.Error("fetched a patch for an already-processed commit")
		}
	}
}

func TestCommitCollector_HistoryFailureIsEmptyBatch(t *testing.T) {
	git := &fakeGit{historyErr: fmt.Errorf("exit status 128")}
	cc := collector.NewCommitCollector(git, t.TempDir(), quietLogger())

	before := []string{"aaa111"}
	diffs, processed := cc.Collect(context.Background(), time.Unix(0, 0), before)

	if len(diffs) != 0 {
		t.Errorf("diffs = %+v, want none when history fails", diffs)
	}
	if len(processed) != 1 || processed[0] != "aaa111" {
		t.Errorf("processed = %v, want unchanged", processed)
	}
}

func TestCommitCollector_BadCommitSkippedNotFatal(t *testing.T) {
	git := &fakeGit{
		history: strings.Join([]string{
			historyLine("bad000", "2024-06-20T10:00:00Z", "dev", "corrupt"),
			historyLine("good11", "2024-06-20T11:00:00Z", "dev", "fine"),
		}, "\n"),
		patches:   map[string]string{"good11": "diff --git a/y.go b/y.go\n+y\n"},
		patchErrs: map[string]error{"bad000": fmt.Errorf("exit status 128")},
	}
	cc := collector.NewCommitCollector(git, t.TempDir(), quietLogger())

	diffs, processed := cc.Collect(context.Background(), time.Unix(0, 0), nil)

	if len(diffs) != 1 || diffs[0].Commit != "good11" {
		t.Fatalf("diffs = %+v, want just good11", diffs)
	}
	// The failed commit stays unprocessed so a later poll retries it.
	for _, h := range processed {
		if h == "bad000" {
			t.Error("failed commit should not be marked processed")
		}
	}
}

func TestCommitCollector_ProcessedSetBounded(t *testing.T) {
	var lines []string
	patches := map[string]string{}
	for i := 0; i < digest.ProcessedCommitsLimit+10; i++ {
		hash := fmt.Sprintf("h%04d", i)
		lines = append(lines, historyLine(hash, "2024-06-20T10:00:00Z", "dev", "bulk"))
		patches[hash] = "diff --git a/z.go b/z.go\n+z\n"
	}
	git := &fakeGit{history: strings.Join(lines, "\n"), patches: patches}
	cc := collector.NewCommitCollector(git, t.TempDir(), quietLogger())

	_, processed := cc.Collect(context.Background(), time.Unix(0, 0), nil)

	if len(processed) != digest.ProcessedCommitsLimit {
		t.Fatalf("processed = %d entries, want cap %d", len(processed), digest.ProcessedCommitsLimit)
	}
	if processed[0] != "h0010" {
		t.Errorf("oldest survivor = %s, want h0010 (oldest evicted first)", processed[0])
	}
}

func TestCommitCollector_SincePassedToGit(t *testing.T) {
	git := &fakeGit{}
	cc := collector.NewCommitCollector(git, t.TempDir(), quietLogger())
	since := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

	cc.Collect(context.Background(), since, nil)

	if len(git.calls) != 1 || !strings.Contains(git.calls[0], "--since=2024-06-20T12:00:00Z") {
		t.Errorf("git calls = %v, want log with RFC3339 since", git.calls)
	}
}
