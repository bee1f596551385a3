// ABOUTME: Fake collaborators and a test harness wiring a full orchestrator over temp directories.
// ABOUTME: Shared by the orchestrator, stage, and server tests.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/discernus/discernus-sub014/cas"
	"github.com/discernus/discernus-sub014/manifest"
	"github.com/discernus/discernus-sub014/workspace"
)

type fakeValidator struct {
	mu     sync.Mutex
	calls  int
	result *ValidationResult
	err    error
}

func (f *fakeValidator) Validate(ctx context.Context, framework []byte, documents [][]byte) (*ValidationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ValidationResult{Verdict: VerdictPass, Findings: []Finding{}}, nil
}

func (f *fakeValidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    int
	analyzed []string        // document contents, in call order
	failDocs map[string]bool // document content -> always fail
	onCall   func(ctx context.Context)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, framework, document []byte) (*AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.analyzed = append(f.analyzed, string(document))
	fail := f.failDocs[string(document)]
	onCall := f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, &CollaboratorError{Retryable: false, Err: fmt.Errorf("model refused document")}
	}

	scores, _ := json.Marshal(map[string]any{"document": string(document), "tone": 0.7})
	evidence, _ := json.Marshal(map[string]any{"document": string(document), "quotes": []string{"..."}})
	return &AnalysisResult{Scores: scores, Evidence: evidence, Agent: "fake-model", Cost: 0.01}, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStatistician struct{}

func (fakeStatistician) Compute(ctx context.Context, scores [][]byte) ([]byte, error) {
	return json.Marshal(map[string]any{"documents": len(scores)})
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, scores, evidence [][]byte, statistics []byte) (*SynthesisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	report := fmt.Sprintf("# Report\n\nAnalyzed %d documents.\n", len(scores))
	return &SynthesisResult{Report: []byte(report), Agent: "fake-model", Cost: 0.05}, nil
}

func (f *fakeSynthesizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExporter struct{}

func (fakeExporter) Export(ctx context.Context, report []byte, scores [][]byte) ([]Export, error) {
	var b strings.Builder
	b.WriteString("document,tone\n")
	for i := range scores {
		fmt.Fprintf(&b, "%d,0.7\n", i)
	}
	return []Export{{Name: "scores.csv", Payload: []byte(b.String())}}, nil
}

type fakeCommitter struct {
	mu      sync.Mutex
	calls   int
	err     error
	lastDir string
	lastMsg string
}

func (f *fakeCommitter) Commit(ctx context.Context, runDir, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastDir = runDir
	f.lastMsg = message
	return f.err
}

func (f *fakeCommitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// harness wires a full orchestrator with fake collaborators over a temp tree.
type harness struct {
	t         *testing.T
	dir       string
	wsDir     string
	store     *cas.Store
	runs      *FSRunStore
	cache     *manifest.CacheIndex
	validator *fakeValidator
	analyzer  *fakeAnalyzer
	synth     *fakeSynthesizer
	committer *fakeCommitter
	orch      *Orchestrator
}

func newHarness(t *testing.T, docs []string) *harness {
	t.Helper()
	dir := t.TempDir()

	store, err := cas.Open(filepath.Join(dir, "cas"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	runs, err := NewFSRunStore(filepath.Join(dir, "runs"))
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	cache, err := manifest.OpenCacheIndex(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("open cache index: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	h := &harness{
		t:         t,
		dir:       dir,
		wsDir:     filepath.Join(dir, "ws"),
		store:     store,
		runs:      runs,
		cache:     cache,
		validator: &fakeValidator{},
		analyzer:  &fakeAnalyzer{failDocs: map[string]bool{}},
		synth:     &fakeSynthesizer{},
		committer: &fakeCommitter{},
	}
	h.writeWorkspace(docs)

	h.orch = NewOrchestrator(store, runs, cache, []StageExecutor{
		&ValidateStage{Collaborator: h.validator},
		&AnalyzeStage{
			Collaborator:     h.analyzer,
			Model:            "fake-model",
			Workers:          2,
			FailureThreshold: 0.5,
			Retry:            RetryPolicyNone(),
		},
		&SynthesizeStage{Statistics: fakeStatistician{}, Synthesis: h.synth, Model: "fake-model"},
		&FinalizeStage{Exporter: fakeExporter{}},
	})
	h.orch.Retry = RetryPolicyNone()
	h.orch.Committer = h.committer
	return h
}

// writeWorkspace (re)writes the workspace tree with the given document contents.
func (h *harness) writeWorkspace(docs []string) {
	h.t.Helper()
	mustWrite := func(path, content string) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			h.t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			h.t.Fatalf("write %s: %v", path, err)
		}
	}

	mustWrite(filepath.Join(h.wsDir, "framework.md"), "# Framework\ndimensions: tone\n")
	var docList strings.Builder
	for i, content := range docs {
		name := fmt.Sprintf("corpus/doc_%02d.txt", i)
		mustWrite(filepath.Join(h.wsDir, name), content)
		fmt.Fprintf(&docList, "  - %s\n", name)
	}
	mustWrite(filepath.Join(h.wsDir, "workspace.yaml"), fmt.Sprintf(`name: test-study
framework: framework.md
documents:
%sanalysis:
  model: fake-model
  max_workers: 2
commit:
  enabled: true
`, docList.String()))
}

func (h *harness) loadWorkspace() *workspace.Workspace {
	h.t.Helper()
	ws, err := workspace.Load(filepath.Join(h.wsDir, "workspace.yaml"))
	if err != nil {
		h.t.Fatalf("load workspace: %v", err)
	}
	return ws
}

func (h *harness) run(ctx context.Context) (*RunResult, error) {
	return h.orch.Run(ctx, h.loadWorkspace())
}

func (h *harness) mustRun(ctx context.Context) *RunResult {
	h.t.Helper()
	result, err := h.run(ctx)
	if err != nil {
		h.t.Fatalf("run: %v", err)
	}
	return result
}
