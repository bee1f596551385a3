// ABOUTME: Tests for the git committer against throwaway repositories.
// ABOUTME: Skips when the git binary is unavailable on the test host.
package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return dir
}

func gitLog(t *testing.T, dir string) string {
	t.Helper()
	cmd := exec.Command("git", "log", "--oneline")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git log: %v\n%s", err, out)
	}
	return string(out)
}

func TestGitCommitterCommitsRunDirectory(t *testing.T) {
	requireGit(t)
	repo := initRepo(t)

	runDir := filepath.Join(repo, "runs", "01ABC")
	if err := os.MkdirAll(filepath.Join(runDir, "results"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "results", "report.md"), []byte("# Report\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &GitCommitter{}
	if err := c.Commit(context.Background(), runDir, "Record run 01ABC"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	log := gitLog(t, repo)
	if !strings.Contains(log, "Record run 01ABC") {
		t.Errorf("commit missing from log:\n%s", log)
	}
}

func TestGitCommitterCleanTreeIsNotAnError(t *testing.T) {
	requireGit(t)
	repo := initRepo(t)

	runDir := filepath.Join(repo, "runs", "01ABC")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "run.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &GitCommitter{}
	if err := c.Commit(context.Background(), runDir, "first"); err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	if err := c.Commit(context.Background(), runDir, "second"); err != nil {
		t.Fatalf("second Commit on clean tree: %v", err)
	}

	log := gitLog(t, repo)
	if strings.Contains(log, "second") {
		t.Errorf("clean tree should not produce a commit:\n%s", log)
	}
}

func TestGitCommitterOutsideWorkTree(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()

	c := &GitCommitter{}
	err := c.Commit(context.Background(), dir, "msg")
	if err == nil {
		t.Fatal("expected error outside a work tree")
	}
}
