// ABOUTME: Pipeline orchestrator: sequences stage executors over the artifact store with cross-run caching.
// ABOUTME: Owns the run state machine, manifest recording, resume, and post-run materialization and commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/discernus/discernus-sub014/cas"
	"github.com/discernus/discernus-sub014/manifest"
	"github.com/discernus/discernus-sub014/workspace"
)

// Orchestrator drives one run at a time through the fixed stage sequence.
// The store, run store, and cache index are injected handles, never globals,
// so tests can run isolated instances side by side.
type Orchestrator struct {
	Store  *cas.Store
	Runs   *FSRunStore
	Cache  *manifest.CacheIndex
	Stages []StageExecutor

	// Retry applies at the stage level. The analysis stage additionally
	// retries per document with its own policy.
	Retry RetryPolicy

	// Committer records completed run directories in version control.
	// Nil disables committing.
	Committer Committer

	// Echo receives every audit record as it is written, for live progress.
	Echo func(AuditRecord)
}

// UnitCacheable is implemented by stages whose fan-out units are independently
// cacheable. Shared inputs are folded into every unit's cache key, so growing
// the unit set only re-executes the new units.
type UnitCacheable interface {
	PartitionInputs(inputs []Artifact) (shared []Artifact, units []Artifact)
}

// PartitionInputs splits analysis inputs into the shared framework and the
// per-document units.
func (s *AnalyzeStage) PartitionInputs(inputs []Artifact) ([]Artifact, []Artifact) {
	return inputsOfType(inputs, TypeFramework), inputsOfType(inputs, TypeDocument)
}

// NewOrchestrator constructs an orchestrator with the standard retry policy.
func NewOrchestrator(store *cas.Store, runs *FSRunStore, cache *manifest.CacheIndex, stages []StageExecutor) *Orchestrator {
	return &Orchestrator{
		Store:  store,
		Runs:   runs,
		Cache:  cache,
		Stages: stages,
		Retry:  RetryPolicyStandard(),
	}
}

// RunResult reports the outcome of a run or resume.
type RunResult struct {
	Run      *Run
	Manifest *manifest.Tracker
	RunDir   string
	Findings []Finding // populated when validation blocked the run
}

// Run executes the full pipeline over a workspace. The returned error is a
// *ValidationBlockedError when pre-flight validation halted the run, or the
// stage failure otherwise; the RunResult is populated in both cases.
func (o *Orchestrator) Run(ctx context.Context, ws *workspace.Workspace) (*RunResult, error) {
	wsHash, err := ws.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash workspace: %w", err)
	}

	run := &Run{
		ID:            NewRunID(),
		WorkspaceName: ws.Name,
		WorkspacePath: ws.Path,
		WorkspaceHash: wsHash,
		Stages:        o.stageNames(),
		Status:        StatusPending,
		StartedAt:     time.Now().UTC(),
	}
	if err := o.Runs.Create(run); err != nil {
		return nil, err
	}

	audit, err := OpenAuditLogger(o.Runs.AuditLogPath(run.ID))
	if err != nil {
		return nil, err
	}
	defer audit.Close()
	audit.Echo = o.Echo

	audit.Log(AuditRunStarted, "", map[string]any{
		"run_id":    run.ID,
		"workspace": ws.Name,
		"documents": len(ws.Documents),
	})

	seeded, err := o.seedWorkspace(ws)
	if err != nil {
		return o.finishFailed(run, audit, "", err)
	}

	tracker := manifest.NewTracker(o.storeExists)
	return o.executeStages(ctx, run, ws, audit, tracker, seeded, 0)
}

// Resume reloads a persisted run and manifest and re-enters the stage loop at
// the first stage with no manifest entries. Earlier stages replay through the
// cache without invoking collaborators.
func (o *Orchestrator) Resume(ctx context.Context, runID string) (*RunResult, error) {
	run, err := o.Runs.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.Status == StatusCompleted || run.Status == StatusBlocked {
		return nil, fmt.Errorf("run %q is %s and cannot be resumed", runID, run.Status)
	}
	if len(o.Stages) < len(run.Stages) {
		return nil, fmt.Errorf("run %q spans %d stages but only %d are configured", runID, len(run.Stages), len(o.Stages))
	}

	ws, err := workspace.Load(run.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("reload workspace for run %q: %w", runID, err)
	}
	wsHash, err := ws.Hash()
	if err != nil {
		return nil, err
	}
	if wsHash != run.WorkspaceHash {
		return nil, fmt.Errorf("workspace changed since run %q started; start a new run instead", runID)
	}

	tracker, err := manifest.LoadFrom(o.Runs.ManifestPath(runID), o.storeExists)
	if err != nil {
		return nil, fmt.Errorf("reload manifest for run %q: %w", runID, err)
	}

	audit, err := OpenAuditLogger(o.Runs.AuditLogPath(runID))
	if err != nil {
		return nil, err
	}
	defer audit.Close()
	audit.Echo = o.Echo

	seeded, err := o.seedWorkspace(ws)
	if err != nil {
		return o.finishFailed(run, audit, "", err)
	}

	// Rehydrate artifacts produced by completed stages, in manifest order.
	artifacts := seeded
	startIdx := len(o.Stages)
	for i, stage := range o.Stages {
		entries := tracker.ByStage(stage.Name())
		if len(entries) == 0 {
			startIdx = i
			break
		}
		for _, entry := range entries {
			payload, err := o.Store.Get(entry.Digest)
			if err != nil {
				return nil, fmt.Errorf("rehydrate artifact %s for run %q: %w", entry.Digest, runID, err)
			}
			artifacts = append(artifacts, Artifact{
				Digest:      entry.Digest,
				ContentType: entry.ContentType,
				Payload:     payload,
			})
		}
	}

	run.Status = StatusRunning
	run.Error = ""
	run.CompletedAt = nil
	if err := o.Runs.Update(run); err != nil {
		return nil, err
	}

	audit.Log(AuditRunStarted, "", map[string]any{
		"run_id":           run.ID,
		"resumed":          true,
		"completed_stages": startIdx,
	})

	return o.executeStages(ctx, run, ws, audit, tracker, artifacts, startIdx)
}

// ValidateOnly runs the validation stage as a dry run: no run record, no
// artifact writes, no manifest.
func (o *Orchestrator) ValidateOnly(ctx context.Context, ws *workspace.Workspace) (*ValidationResult, error) {
	var validate StageExecutor
	for _, stage := range o.Stages {
		if stage.Name() == StageValidate {
			validate = stage
			break
		}
	}
	if validate == nil {
		return nil, fmt.Errorf("no validation stage configured")
	}

	inputs, err := loadWorkspaceArtifacts(ws)
	if err != nil {
		return nil, err
	}

	result, err := validate.Execute(ctx, inputs)
	if err != nil {
		return nil, err
	}
	for _, out := range result.Outputs {
		if out.ContentType == TypeValidationReport {
			return DecodeValidationReport(out.Payload)
		}
	}
	return nil, fmt.Errorf("validation stage produced no report")
}

// executeStages runs the stage loop from startIdx, honoring the cache and the
// run state machine. The caller has already seeded workspace artifacts.
func (o *Orchestrator) executeStages(ctx context.Context, run *Run, ws *workspace.Workspace, audit *AuditLogger, tracker *manifest.Tracker, artifacts []Artifact, startIdx int) (*RunResult, error) {
	result := &RunResult{Run: run, Manifest: tracker, RunDir: o.Runs.RunDir(run.ID)}

	run.Status = StatusRunning
	if err := o.Runs.Update(run); err != nil {
		return result, err
	}

	for idx := startIdx; idx < len(o.Stages); idx++ {
		stage := o.Stages[idx]
		if err := ctx.Err(); err != nil {
			return o.failWith(result, run, audit, tracker, stage.Name(), fmt.Errorf("run cancelled: %w", err))
		}

		run.CurrentStage = stage.Name()
		if err := o.Runs.Update(run); err != nil {
			return result, err
		}

		inputs := o.gatherInputs(stage, artifacts)
		audit.Log(AuditStageStarted, stage.Name(), map[string]any{"inputs": len(inputs)})

		var produced []Artifact
		var stageCost float64
		var err error
		if unitStage, ok := stage.(UnitCacheable); ok {
			produced, stageCost, err = o.runUnitStage(ctx, run, stage, unitStage, inputs, tracker, audit)
		} else {
			produced, stageCost, err = o.runStage(ctx, run, stage, inputs, tracker, audit)
		}
		if err != nil {
			var blocked *ValidationBlockedError
			if errors.As(err, &blocked) {
				return o.finishBlocked(result, run, audit, blocked)
			}
			return o.failWith(result, run, audit, tracker, stage.Name(), err)
		}
		artifacts = append(artifacts, produced...)
		run.TotalCost += stageCost

		if err := tracker.SaveTo(o.Runs.ManifestPath(run.ID)); err != nil {
			return o.failWith(result, run, audit, tracker, stage.Name(), err)
		}
		if err := o.Runs.Update(run); err != nil {
			return result, err
		}

		// Pre-flight gate: a blocking verdict halts the run before any
		// downstream stage spends money.
		if stage.Name() == StageValidate {
			blocked, findings, err := o.checkVerdict(produced, audit)
			if err != nil {
				return o.failWith(result, run, audit, tracker, stage.Name(), err)
			}
			if blocked {
				return o.finishBlocked(result, run, audit, &ValidationBlockedError{Findings: findings})
			}
		}
	}

	now := time.Now().UTC()
	run.Status = StatusCompleted
	run.CurrentStage = ""
	run.CompletedAt = &now
	if err := o.Runs.Update(run); err != nil {
		return result, err
	}

	if err := Materialize(result.RunDir, tracker, o.Store); err != nil {
		return o.failWith(result, run, audit, tracker, "", fmt.Errorf("materialize run directory: %w", err))
	}
	audit.Log(AuditMaterialized, "", map[string]any{"run_dir": result.RunDir})

	o.commit(ctx, run, ws, tracker, result.RunDir, audit)

	audit.Log(AuditRunCompleted, "", map[string]any{
		"run_id":     run.ID,
		"total_cost": run.TotalCost,
		"artifacts":  tracker.Len(),
	})
	return result, nil
}

// runStage resolves one whole-stage cache key, replaying prior outputs on a
// hit and executing the stage under the retry policy on a miss.
func (o *Orchestrator) runStage(ctx context.Context, run *Run, stage StageExecutor, inputs []Artifact, tracker *manifest.Tracker, audit *AuditLogger) ([]Artifact, float64, error) {
	inputDigests := digestsOf(inputs)
	key, err := CacheKey(stage.Name(), inputDigests, stage.Config())
	if err != nil {
		return nil, 0, err
	}

	if refs, ok := o.lookupCache(key); ok {
		produced, err := o.replayRefs(refs, inputDigests, key, stage.Name(), tracker)
		if err != nil {
			return nil, 0, err
		}
		audit.Log(AuditCacheHit, stage.Name(), map[string]any{
			"cache_key": key,
			"outputs":   len(produced),
		})
		return produced, 0, nil
	}
	audit.Log(AuditCacheMiss, stage.Name(), map[string]any{"cache_key": key})

	stageResult, durationMS, err := o.executeWithRetry(ctx, stage, inputs, audit)
	if err != nil {
		return nil, 0, err
	}

	var produced []Artifact
	var refs []manifest.ArtifactRef
	var stageCost float64
	for _, out := range stageResult.Outputs {
		artifact, ref, err := o.storeOutput(stage.Name(), out, inputDigests, key, stageResult.Metadata, nil, durationMS, tracker, audit)
		if err != nil {
			return nil, 0, err
		}
		produced = append(produced, artifact)
		refs = append(refs, ref)
		stageCost += out.Cost
	}

	if err := o.Cache.Insert(key, stage.Name(), run.ID, refs); err != nil {
		return nil, 0, err
	}

	audit.Log(AuditStageCompleted, stage.Name(), map[string]any{
		"outputs":     len(produced),
		"duration_ms": durationMS,
		"cost":        stageCost,
	})
	return produced, stageCost, nil
}

// runUnitStage caches each fan-out unit (document) independently: only units
// with no cached outputs are handed to the executor, so growing the corpus
// re-analyzes just the new documents.
func (o *Orchestrator) runUnitStage(ctx context.Context, run *Run, stage StageExecutor, unitStage UnitCacheable, inputs []Artifact, tracker *manifest.Tracker, audit *AuditLogger) ([]Artifact, float64, error) {
	shared, units := unitStage.PartitionInputs(inputs)
	sharedDigests := digestsOf(shared)

	// Duplicate documents share a digest and therefore a cache key: the
	// executor sees each distinct payload once, and its outputs fan back out
	// to every corpus slot holding that payload.
	unitKeys := make([]string, len(units))
	cachedRefs := make([][]manifest.ArtifactRef, len(units))
	var uncached []Artifact
	uncachedIdx := map[string][]int{}
	hits := 0
	for i, unit := range units {
		key, err := CacheKey(stage.Name(), append(append([]cas.Digest{}, sharedDigests...), unit.Digest), stage.Config())
		if err != nil {
			return nil, 0, err
		}
		unitKeys[i] = key

		if refs, ok := o.lookupCache(key); ok {
			cachedRefs[i] = refs
			hits++
			continue
		}
		digest := unit.Digest.String()
		if len(uncachedIdx[digest]) == 0 {
			uncached = append(uncached, unit)
		}
		uncachedIdx[digest] = append(uncachedIdx[digest], i)
	}

	if hits > 0 {
		audit.Log(AuditCacheHit, stage.Name(), map[string]any{"units": hits})
	}
	if len(uncached) > 0 {
		audit.Log(AuditCacheMiss, stage.Name(), map[string]any{"units": len(uncached)})
	}

	executed := map[string][]StageOutput{}
	var stageMeta map[string]any
	var durationMS int64
	if len(uncached) > 0 {
		execInputs := append(append([]Artifact{}, shared...), uncached...)
		stageResult, duration, err := o.executeWithRetry(ctx, stage, execInputs, audit)
		if err != nil {
			return nil, 0, err
		}
		durationMS = duration
		stageMeta = remapFailedDocuments(stageResult.Metadata, uncachedIdx, audit, stage.Name())

		for _, out := range stageResult.Outputs {
			digest, _ := out.Metadata["document_digest"].(string)
			if len(uncachedIdx[digest]) == 0 {
				return nil, 0, fmt.Errorf("stage %s: output for unknown document %q", stage.Name(), digest)
			}
			executed[digest] = append(executed[digest], out)
		}
	}

	// Assemble manifest entries and outputs in stable unit order, mixing
	// cached and freshly executed units. The first slot of a duplicate digest
	// carries the execution cost; later slots record the same artifacts at
	// zero cost since nothing was spent twice.
	var produced []Artifact
	var stageCost float64
	charged := map[string]bool{}
	for i, unit := range units {
		unitDigests := append(append([]cas.Digest{}, sharedDigests...), unit.Digest)

		if cachedRefs[i] != nil {
			replayed, err := o.replayRefs(cachedRefs[i], unitDigests, unitKeys[i], stage.Name(), tracker)
			if err != nil {
				return nil, 0, err
			}
			produced = append(produced, replayed...)
			continue
		}

		digest := unit.Digest.String()
		outs, ok := executed[digest]
		if !ok {
			continue // unit failed within threshold; recorded in stage metadata
		}
		first := !charged[digest]
		charged[digest] = true

		var refs []manifest.ArtifactRef
		for _, out := range outs {
			if !first {
				out.Cost = 0
			}
			overrides := map[string]any{"document_index": i}
			artifact, ref, err := o.storeOutput(stage.Name(), out, unitDigests, unitKeys[i], stageMeta, overrides, durationMS, tracker, audit)
			if err != nil {
				return nil, 0, err
			}
			produced = append(produced, artifact)
			refs = append(refs, ref)
			stageCost += out.Cost
		}
		if first {
			if err := o.Cache.Insert(unitKeys[i], stage.Name(), run.ID, refs); err != nil {
				return nil, 0, err
			}
		}
	}

	audit.Log(AuditStageCompleted, stage.Name(), map[string]any{
		"outputs":      len(produced),
		"cached_units": hits,
		"duration_ms":  durationMS,
		"cost":         stageCost,
	})
	return produced, stageCost, nil
}

// executeWithRetry runs the executor under the stage-level retry policy and
// enforces the output content-type contract.
func (o *Orchestrator) executeWithRetry(ctx context.Context, stage StageExecutor, inputs []Artifact, audit *AuditLogger) (*StageResult, int64, error) {
	started := time.Now()
	var stageResult *StageResult
	err := withRetry(ctx, o.Retry, func(attempt int, delay time.Duration, err error) {
		audit.Log(AuditRetryScheduled, stage.Name(), map[string]any{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
	}, func(ctx context.Context) error {
		var execErr error
		stageResult, execErr = stage.Execute(ctx, inputs)
		return execErr
	})
	if err != nil {
		return nil, 0, err
	}

	declared := stage.Outputs()
	for _, out := range stageResult.Outputs {
		if !contains(declared, out.ContentType) {
			return nil, 0, &ContractViolationError{Stage: stage.Name(), Got: out.ContentType, Want: declared}
		}
	}
	return stageResult, time.Since(started).Milliseconds(), nil
}

// storeOutput writes one stage output to the store and records its manifest
// entry. overrides are applied on top of stage and output metadata.
func (o *Orchestrator) storeOutput(stageName string, out StageOutput, inputDigests []cas.Digest, cacheKey string, stageMeta, overrides map[string]any, durationMS int64, tracker *manifest.Tracker, audit *AuditLogger) (Artifact, manifest.ArtifactRef, error) {
	digest, err := o.Store.Put(out.Payload)
	if err != nil {
		return Artifact{}, manifest.ArtifactRef{}, err
	}

	meta := map[string]any{"cache_hit": false, "cache_key": cacheKey}
	for k, v := range stageMeta {
		meta[k] = v
	}
	for k, v := range out.Metadata {
		meta[k] = v
	}
	for k, v := range overrides {
		meta[k] = v
	}

	entry := manifest.Entry{
		Digest:         digest,
		ContentType:    out.ContentType,
		Stage:          stageName,
		InputDigests:   inputDigests,
		Metadata:       meta,
		ProducingAgent: out.Agent,
		DurationMS:     durationMS,
		CostEstimate:   out.Cost,
		RecordedAt:     time.Now().UTC(),
	}
	if err := tracker.Record(entry); err != nil {
		return Artifact{}, manifest.ArtifactRef{}, err
	}

	if out.Cost > 0 {
		audit.Log(AuditCostIncrement, stageName, map[string]any{
			"agent": out.Agent,
			"cost":  out.Cost,
		})
	}

	return Artifact{Digest: digest, ContentType: out.ContentType, Payload: out.Payload},
		manifest.ArtifactRef{Digest: digest, ContentType: out.ContentType}, nil
}

// lookupCache returns cached refs for a key when every referenced object is
// still present in the store. Stale rows fall through to a miss.
func (o *Orchestrator) lookupCache(key string) ([]manifest.ArtifactRef, bool) {
	refs, hit, err := o.Cache.Lookup(key)
	if err != nil || !hit {
		return nil, false
	}
	for _, ref := range refs {
		if !o.Store.Exists(ref.Digest) {
			return nil, false
		}
	}
	return refs, true
}

// replayRefs loads cached outputs and records cache-hit manifest entries.
func (o *Orchestrator) replayRefs(refs []manifest.ArtifactRef, inputDigests []cas.Digest, key, stageName string, tracker *manifest.Tracker) ([]Artifact, error) {
	var produced []Artifact
	for _, ref := range refs {
		payload, err := o.Store.Get(ref.Digest)
		if err != nil {
			return nil, err
		}
		entry := manifest.Entry{
			Digest:         ref.Digest,
			ContentType:    ref.ContentType,
			Stage:          stageName,
			InputDigests:   inputDigests,
			Metadata:       map[string]any{"cache_hit": true, "cache_key": key},
			ProducingAgent: "cache",
			RecordedAt:     time.Now().UTC(),
		}
		if err := tracker.Record(entry); err != nil {
			return nil, err
		}
		produced = append(produced, Artifact{Digest: ref.Digest, ContentType: ref.ContentType, Payload: payload})
	}
	return produced, nil
}

// remapFailedDocuments rewrites subset-relative failure indexes back to the
// original unit order, expanding a failed digest into one record per corpus
// slot holding it, and audits each failure.
func remapFailedDocuments(stageMeta map[string]any, uncachedIdx map[string][]int, audit *AuditLogger, stageName string) map[string]any {
	if stageMeta == nil {
		return nil
	}
	failed, ok := stageMeta["failed_documents"].([]map[string]any)
	if !ok {
		return stageMeta
	}

	var remapped []map[string]any
	for _, f := range failed {
		digest, _ := f["document_digest"].(string)
		indexes := uncachedIdx[digest]
		if len(indexes) == 0 {
			indexes = []int{-1}
		}
		for _, idx := range indexes {
			entry := map[string]any{}
			for k, v := range f {
				entry[k] = v
			}
			if idx >= 0 {
				entry["document_index"] = idx
			}
			remapped = append(remapped, entry)
			audit.Log(AuditDocumentFailed, stageName, entry)
		}
	}

	out := map[string]any{}
	for k, v := range stageMeta {
		out[k] = v
	}
	out["failed_documents"] = remapped
	return out
}

// checkVerdict decodes the validation report and reports whether it blocks.
func (o *Orchestrator) checkVerdict(produced []Artifact, audit *AuditLogger) (bool, []Finding, error) {
	for _, a := range produced {
		if a.ContentType != TypeValidationReport {
			continue
		}
		report, err := DecodeValidationReport(a.Payload)
		if err != nil {
			return false, nil, err
		}
		audit.Log(AuditValidationVerdict, StageValidate, map[string]any{
			"verdict":  report.Verdict,
			"findings": len(report.Findings),
		})
		return report.Verdict == VerdictBlocking, report.Findings, nil
	}
	return false, nil, fmt.Errorf("validation stage produced no report")
}

// commit records the run directory in version control. Failures are audited
// and never invalidate the run.
func (o *Orchestrator) commit(ctx context.Context, run *Run, ws *workspace.Workspace, tracker *manifest.Tracker, runDir string, audit *AuditLogger) {
	if o.Committer == nil || !ws.Commit.Enabled {
		return
	}
	message := ws.Commit.Message
	if message == "" {
		message = fmt.Sprintf("%s: run %s (%d artifacts)", ws.Name, run.ID, tracker.Len())
	}
	if err := o.Committer.Commit(ctx, runDir, message); err != nil {
		audit.Log(AuditCommitFailed, "", map[string]any{"error": err.Error()})
		return
	}
	audit.Log(AuditCommitSucceeded, "", map[string]any{"message": message})
}

func (o *Orchestrator) finishBlocked(result *RunResult, run *Run, audit *AuditLogger, blocked *ValidationBlockedError) (*RunResult, error) {
	now := time.Now().UTC()
	run.Status = StatusBlocked
	run.CompletedAt = &now
	run.Error = blocked.Error()
	if err := o.Runs.Update(run); err != nil {
		return result, err
	}
	audit.Log(AuditRunBlocked, "", map[string]any{"findings": len(blocked.Findings)})
	result.Findings = blocked.Findings
	return result, blocked
}

func (o *Orchestrator) finishFailed(run *Run, audit *AuditLogger, stage string, err error) (*RunResult, error) {
	result := &RunResult{Run: run, RunDir: o.Runs.RunDir(run.ID)}
	return o.failWith(result, run, audit, nil, stage, err)
}

func (o *Orchestrator) failWith(result *RunResult, run *Run, audit *AuditLogger, tracker *manifest.Tracker, stage string, err error) (*RunResult, error) {
	if stage != "" {
		audit.Log(AuditStageFailed, stage, map[string]any{"error": err.Error()})
	}

	now := time.Now().UTC()
	run.Status = StatusFailed
	run.Error = err.Error()
	run.CompletedAt = &now
	if uerr := o.Runs.Update(run); uerr != nil {
		return result, uerr
	}
	if tracker != nil {
		// Partial progress stays cacheable for a future resume.
		if serr := tracker.SaveTo(o.Runs.ManifestPath(run.ID)); serr != nil {
			audit.Log(AuditStageFailed, stage, map[string]any{"error": "save manifest: " + serr.Error()})
		}
		result.Manifest = tracker
	}
	audit.Log(AuditRunFailed, "", map[string]any{"run_id": run.ID, "error": err.Error()})
	return result, err
}

// seedWorkspace stores the framework and corpus documents as artifacts.
// Seeded inputs have no manifest entry; they are external to the run.
func (o *Orchestrator) seedWorkspace(ws *workspace.Workspace) ([]Artifact, error) {
	artifacts, err := loadWorkspaceArtifacts(ws)
	if err != nil {
		return nil, err
	}
	for i := range artifacts {
		digest, err := o.Store.Put(artifacts[i].Payload)
		if err != nil {
			return nil, err
		}
		artifacts[i].Digest = digest
	}
	return artifacts, nil
}

// loadWorkspaceArtifacts reads workspace files into artifacts with computed
// digests, without touching the store.
func loadWorkspaceArtifacts(ws *workspace.Workspace) ([]Artifact, error) {
	framework, err := os.ReadFile(ws.FrameworkPath())
	if err != nil {
		return nil, fmt.Errorf("read framework: %w", err)
	}
	artifacts := []Artifact{{
		Digest:      cas.HashBytes(framework),
		ContentType: TypeFramework,
		Payload:     framework,
	}}

	for _, path := range ws.DocumentPaths() {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		artifacts = append(artifacts, Artifact{
			Digest:      cas.HashBytes(payload),
			ContentType: TypeDocument,
			Payload:     payload,
		})
	}
	return artifacts, nil
}

// gatherInputs collects, in declared contract order, every available artifact
// of each content type the stage requires.
func (o *Orchestrator) gatherInputs(stage StageExecutor, artifacts []Artifact) []Artifact {
	var inputs []Artifact
	for _, contentType := range stage.RequiredInputs() {
		inputs = append(inputs, inputsOfType(artifacts, contentType)...)
	}
	return inputs
}

func (o *Orchestrator) stageNames() []string {
	names := make([]string, len(o.Stages))
	for i, s := range o.Stages {
		names[i] = s.Name()
	}
	return names
}

func (o *Orchestrator) storeExists(d cas.Digest) bool {
	return o.Store.Exists(d)
}

func digestsOf(artifacts []Artifact) []cas.Digest {
	digests := make([]cas.Digest, len(artifacts))
	for i, a := range artifacts {
		digests[i] = a.Digest
	}
	return digests
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
