package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// isStdinTTY reports whether stdin is an interactive terminal.
func isStdinTTY() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// newStopCmd creates the "devdigest stop" subcommand. It sends SIGTERM
// to the daemon, which drains any in-flight poll before exiting, and
// waits for the process to go away.
func newStopCmd() *cobra.Command {
	var workspace string
	var force bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the collection daemon",
		Long:  "Stops the devdigest daemon by sending SIGTERM and waiting for it to drain.\nRequires an interactive terminal (TTY) or --force.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, err := filepath.Abs(workspace)
			if err != nil {
				return fmt.Errorf("resolve workspace %s: %w", workspace, err)
			}
			paths := ResolvePaths(abs)
			return runStopSequence(cmd.OutOrStdout(), os.Stdin, paths.PIDPath, force, isStdinTTY)
		},
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace root")
	cmd.Flags().BoolVar(&force, "force", false, "skip interactive confirmation")
	return cmd
}

// runStopSequence performs the graceful shutdown handshake:
//  1. Confirm the caller is authorized (interactive TTY or --force)
//  2. Send SIGTERM (daemon finishes its in-flight poll, then exits)
//  3. Wait for the process to exit and for the PID file to clear
func runStopSequence(w io.Writer, stdin io.Reader, pidPath string, force bool, isTTY func() bool) error {
	status, pid, err := DaemonStatus(pidPath)
	if err != nil {
		return fmt.Errorf("get daemon status: %w", err)
	}

	switch status {
	case StatusStopped:
		fmt.Fprintln(w, "collector is not running")
		return nil
	case StatusStale:
		fmt.Fprintln(w, "removing stale PID file (process already dead)")
		return RemovePIDFile(pidPath)
	case StatusRunning:
	}

	if !force {
		if !isTTY() {
			return fmt.Errorf("refusing to stop without a TTY; re-run with --force")
		}
		fmt.Fprintf(w, "stop collector (pid %d)? [y/N] ", pid)
		line, _ := bufio.NewReader(stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Fprintln(w, "aborted")
			return nil
		}
	}

	if err := StopDaemon(pidPath); err != nil {
		return err
	}

	// The daemon removes its own PID file once the in-flight poll drains.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !IsProcessAlive(pid) {
			fmt.Fprintln(w, "collector stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("collector (pid %d) did not exit within 10s", pid)
}
