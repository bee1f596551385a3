// ABOUTME: Version-control committer that records completed run directories with the git CLI.
// ABOUTME: Stages only the run directory and commits; a clean tree is not an error.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitCommitter records run directories in the enclosing git repository by
// shelling out to the git CLI. The run directory must live inside a work tree.
type GitCommitter struct {
	// GitPath overrides the git binary, for tests. Empty means "git" on PATH.
	GitPath string
}

// Commit stages the run directory and creates a commit. If the run directory
// introduces no changes, Commit returns nil without creating a commit.
func (g *GitCommitter) Commit(ctx context.Context, runDir, message string) error {
	if message == "" {
		message = fmt.Sprintf("Record run %s", runDir)
	}

	if _, err := g.git(ctx, runDir, "rev-parse", "--is-inside-work-tree"); err != nil {
		return fmt.Errorf("run directory is not inside a git work tree: %w", err)
	}

	if _, err := g.git(ctx, runDir, "add", "-A", "."); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	status, err := g.git(ctx, runDir, "status", "--porcelain", ".")
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return nil
	}

	if _, err := g.git(ctx, runDir, "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

func (g *GitCommitter) git(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.GitPath
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, detail)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}

// NoopCommitter skips version control entirely.
type NoopCommitter struct{}

// Commit does nothing and always succeeds.
func (NoopCommitter) Commit(context.Context, string, string) error { return nil }
