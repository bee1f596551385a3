// ABOUTME: Tests for workspace loading, validation, and content hashing.
// ABOUTME: Uses temp directories with real framework and document files.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func fixtureWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "framework.md"), "# Framework\ndimensions: tone, evidence\n")
	writeFile(t, filepath.Join(dir, "corpus", "doc_a.txt"), "first document\n")
	writeFile(t, filepath.Join(dir, "corpus", "doc_b.txt"), "second document\n")
	writeFile(t, filepath.Join(dir, "workspace.yaml"), `name: civic-discourse
framework: framework.md
documents:
  - corpus/doc_a.txt
  - corpus/doc_b.txt
analysis:
  model: gpt-4o
  max_workers: 2
  failure_threshold: 0.5
synthesis:
  model: gpt-4o
retry:
  policy: standard
`)
	return dir
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := fixtureWorkspace(t)

	ws, err := Load(filepath.Join(dir, "workspace.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if ws.Name != "civic-discourse" {
		t.Errorf("Name = %q, want civic-discourse", ws.Name)
	}
	if !filepath.IsAbs(ws.FrameworkPath()) {
		t.Errorf("FrameworkPath not absolute: %s", ws.FrameworkPath())
	}
	docs := ws.DocumentPaths()
	if len(docs) != 2 {
		t.Fatalf("DocumentPaths len = %d, want 2", len(docs))
	}
	if !strings.HasSuffix(docs[0], filepath.Join("corpus", "doc_a.txt")) {
		t.Errorf("unexpected first document path: %s", docs[0])
	}
	if ws.MaxWorkers() != 2 {
		t.Errorf("MaxWorkers = %d, want 2", ws.MaxWorkers())
	}
}

func TestLoadMissingDocumentFails(t *testing.T) {
	dir := fixtureWorkspace(t)
	if err := os.Remove(filepath.Join(dir, "corpus", "doc_b.txt")); err != nil {
		t.Fatal(err)
	}

	_, err := Load(filepath.Join(dir, "workspace.yaml"))
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	if !strings.Contains(err.Error(), "doc_b.txt") {
		t.Errorf("error should name the missing document: %v", err)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	dir := fixtureWorkspace(t)
	ws, err := Load(filepath.Join(dir, "workspace.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	bad := 1.5
	ws.Analysis.FailureThreshold = &bad
	if err := ws.Validate(); err == nil {
		t.Error("expected error for failure_threshold > 1")
	}
}

func TestExplicitZeroThresholdIsRespected(t *testing.T) {
	zero := 0.0
	ws := &Workspace{Analysis: AnalysisSettings{FailureThreshold: &zero}}
	if ws.FailureThreshold() != 0 {
		t.Errorf("explicit zero FailureThreshold = %v, want 0", ws.FailureThreshold())
	}

	var unset Workspace
	if unset.FailureThreshold() != 0.5 {
		t.Errorf("unset FailureThreshold = %v, want 0.5", unset.FailureThreshold())
	}
}

func TestValidateRequiresDocuments(t *testing.T) {
	dir := fixtureWorkspace(t)
	ws, err := Load(filepath.Join(dir, "workspace.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ws.Documents = nil
	if err := ws.Validate(); err == nil {
		t.Error("expected error for empty document list")
	}
}

func TestDefaults(t *testing.T) {
	ws := &Workspace{}
	if ws.MaxWorkers() != 4 {
		t.Errorf("default MaxWorkers = %d, want 4", ws.MaxWorkers())
	}
	if ws.FailureThreshold() != 0.5 {
		t.Errorf("default FailureThreshold = %v, want 0.5", ws.FailureThreshold())
	}
}

func TestHashChangesWithContent(t *testing.T) {
	dir := fixtureWorkspace(t)
	ws, err := Load(filepath.Join(dir, "workspace.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	h1, err := ws.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := ws.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Error("hash not stable across calls")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}

	writeFile(t, filepath.Join(dir, "corpus", "doc_a.txt"), "edited document\n")
	h3, err := ws.Hash()
	if err != nil {
		t.Fatalf("Hash after edit: %v", err)
	}
	if h3 == h1 {
		t.Error("hash unchanged after document edit")
	}
}
