package collector

import (
	"context"
	"log"
	"os/exec"
	"strings"
	"time"

	"devdigest/pkg/digest"
	"devdigest/pkg/parse"
)

// GitRunner abstracts git command execution for testability.
type GitRunner interface {
	Run(ctx context.Context, dir string, args ...string) (stdout string, stderr string, err error)
}

// ExecGitRunner implements GitRunner using os/exec.
type ExecGitRunner struct{}

// Run executes a git command in the given directory and returns stdout and stderr.
func (r *ExecGitRunner) Run(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	return stdoutBuf.String(), stderrBuf.String(), err
}

// CommitCollector lists workspace commits since a watermark and fetches
// patches for the ones not yet processed.
type CommitCollector struct {
	Git    GitRunner
	Dir    string // workspace root (the repository)
	Logger *log.Logger
}

// NewCommitCollector creates a collector over the repository at dir.
func NewCommitCollector(git GitRunner, dir string, logger *log.Logger) *CommitCollector {
	if logger == nil {
		logger = log.Default()
	}
	return &CommitCollector{Git: git, Dir: dir, Logger: logger}
}

// Collect lists commits created at or after since, oldest first, and
// fetches the full patch of each commit absent from processed. A failed
// patch fetch is logged and skipped; a failed history query (not a
// repository, no git) yields no diffs and the processed set unchanged.
// The returned set is bounded to its most recent entries.
func (c *CommitCollector) Collect(ctx context.Context, since time.Time, processed []string) ([]parse.RawDiff, []string) {
	out, stderr, err := c.Git.Run(ctx, c.Dir,
		"log",
		"--since="+since.UTC().Format(time.RFC3339),
		"--reverse",
		"--pretty=format:%H%x09%cI%x09%an%x09%s",
	)
	if err != nil {
		c.Logger.Printf("warn: commit history query failed: %v (%s)", err, strings.TrimSpace(stderr))
		return nil, processed
	}

	seen := make(map[string]bool, len(processed))
	for _, hash := range processed {
		seen[hash] = true
	}

	var diffs []parse.RawDiff
	next := append([]string(nil), processed...)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 4)
		hash := fields[0]
		if hash == "" || seen[hash] {
			continue
		}

		patch, stderr, err := c.Git.Run(ctx, c.Dir, "show", hash, "--patch", "--format=")
		if err != nil {
			// One bad commit never aborts the poll.
			c.Logger.Printf("warn: fetch diff for %s failed: %v (%s)", hash, err, strings.TrimSpace(stderr))
			continue
		}

		raw := parse.RawDiff{Text: patch, Commit: hash, Source: "git"}
		if len(fields) > 1 {
			if t, perr := time.Parse(time.RFC3339, fields[1]); perr == nil {
				raw.OccurredAt = t
			}
		}
		if len(fields) > 2 {
			raw.Author = fields[2]
		}
		if len(fields) > 3 {
			raw.Subject = fields[3]
		}

		diffs = append(diffs, raw)
		seen[hash] = true
		next = append(next, hash)
	}

	return diffs, digest.TrimProcessed(next)
}
