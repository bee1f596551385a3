// ABOUTME: Wires the orchestrator from CLI config: stores, cache index, stages, and collaborators.
// ABOUTME: Resolves the data directory, retry policy, and model client from workspace settings.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/discernus/discernus-sub014/cas"
	"github.com/discernus/discernus-sub014/llm"
	"github.com/discernus/discernus-sub014/manifest"
	"github.com/discernus/discernus-sub014/pipeline"
	"github.com/discernus/discernus-sub014/stats"
	"github.com/discernus/discernus-sub014/vcs"
	"github.com/discernus/discernus-sub014/workspace"
)

// env bundles the stores and orchestrator a CLI command operates on.
type env struct {
	DataDir      string
	Store        *cas.Store
	Cache        *manifest.CacheIndex
	Orchestrator *pipeline.Orchestrator
}

// Close releases the cache index handle.
func (e *env) Close() {
	if e.Cache != nil {
		e.Cache.Close()
	}
}

// buildEnv opens the data directory stores and constructs the orchestrator.
// ws may be nil for commands that only read state (serve).
func buildEnv(cfg config, ws *workspace.Workspace) (*env, error) {
	dataDir, err := resolveDataDir(cfg.dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := cas.Open(filepath.Join(dataDir, "objects"))
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	runs, err := pipeline.NewFSRunStore(filepath.Join(dataDir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	cache, err := manifest.OpenCacheIndex(filepath.Join(dataDir, "cache.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	orch := pipeline.NewOrchestrator(store, runs, cache, nil)
	if cfg.verbose {
		orch.Echo = verboseEventPrinter
	}

	e := &env{DataDir: dataDir, Store: store, Cache: cache, Orchestrator: orch}
	if ws != nil {
		if err := e.wireWorkspace(cfg, ws); err != nil {
			cache.Close()
			return nil, err
		}
	}
	return e, nil
}

// wireWorkspace attaches workspace-derived stages, retry policy, and
// committer to an already-built env. Every command that executes or resumes
// a run must call this before touching the orchestrator.
func (e *env) wireWorkspace(cfg config, ws *workspace.Workspace) error {
	retry, err := resolveRetry(cfg, ws)
	if err != nil {
		return err
	}
	e.Orchestrator.Stages = buildStages(cfg, ws, retry)
	e.Orchestrator.Retry = retry
	if ws.Commit.Enabled {
		e.Orchestrator.Committer = &vcs.GitCommitter{}
	}
	return nil
}

// resolveRetry picks the retry policy: the -retry flag wins over the workspace
// setting, and a workspace max_attempts override applies last.
func resolveRetry(cfg config, ws *workspace.Workspace) (pipeline.RetryPolicy, error) {
	name := ws.Retry.Policy
	if cfg.retryPolicy != "" {
		name = cfg.retryPolicy
	}
	policy, err := pipeline.RetryPolicyNamed(name)
	if err != nil {
		return pipeline.RetryPolicy{}, err
	}
	if ws.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = ws.Retry.MaxAttempts
	}
	return policy, nil
}

// buildStages assembles the fixed stage sequence with model-backed
// collaborators for validation, analysis, and synthesis, and local engines
// for statistics and export.
func buildStages(cfg config, ws *workspace.Workspace, retry pipeline.RetryPolicy) []pipeline.StageExecutor {
	analysisClient := newModelClient(cfg, ws.Analysis.Model)
	synthesisClient := newModelClient(cfg, ws.Synthesis.Model)

	return []pipeline.StageExecutor{
		&pipeline.ValidateStage{
			Collaborator: &llm.Validator{Completer: analysisClient},
		},
		&pipeline.AnalyzeStage{
			Collaborator:     &llm.Analyzer{Completer: analysisClient},
			Model:            ws.Analysis.Model,
			Parameters:       ws.Analysis.Parameters,
			Workers:          ws.MaxWorkers(),
			FailureThreshold: ws.FailureThreshold(),
			Retry:            retry,
		},
		&pipeline.SynthesizeStage{
			Statistics: stats.Aggregator{},
			Synthesis:  &llm.Synthesizer{Completer: synthesisClient},
			Model:      ws.Synthesis.Model,
			Parameters: ws.Synthesis.Parameters,
		},
		&pipeline.FinalizeStage{
			Exporter: stats.CSVExporter{},
		},
	}
}

// newModelClient builds a Chat Completions client for one stage's model.
func newModelClient(cfg config, model string) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   model,
		BaseURL: cfg.baseURL,
		Pricing: pricingFor(model),
	})
}

// pricingFor returns per-1000-token pricing for cost estimates. Unknown
// models estimate at zero rather than guessing.
func pricingFor(model string) llm.Pricing {
	switch model {
	case "gpt-4o", "":
		return llm.Pricing{PromptPerK: 0.0025, CompletionPerK: 0.01}
	case "gpt-4o-mini":
		return llm.Pricing{PromptPerK: 0.00015, CompletionPerK: 0.0006}
	default:
		return llm.Pricing{}
	}
}
