// ABOUTME: Analysis stage: fans out one collaborator call per corpus document with bounded concurrency.
// ABOUTME: Per-document failures are retried and collected; the stage fails only past the configured threshold.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// AnalyzeStage scores every corpus document against the framework. Documents
// are independent of each other, so the stage fans out up to Workers
// collaborator calls at a time and fans results back in before returning.
type AnalyzeStage struct {
	Collaborator AnalysisCollaborator
	Model        string
	Parameters   map[string]any

	// Workers bounds fan-out concurrency. FailureThreshold is the fraction of
	// documents allowed to fail before the whole stage fails. Retry governs
	// per-document attempts.
	Workers          int
	FailureThreshold float64
	Retry            RetryPolicy
}

func (s *AnalyzeStage) Name() string { return StageAnalyze }

func (s *AnalyzeStage) RequiredInputs() []string {
	return []string{TypeFramework, TypeDocument}
}

func (s *AnalyzeStage) Outputs() []string {
	return []string{TypeScores, TypeEvidence}
}

// Config folds only output-affecting settings into the cache key. Worker
// count, threshold, and retry bounds change scheduling, not results.
func (s *AnalyzeStage) Config() map[string]any {
	return map[string]any{
		"model":      s.Model,
		"parameters": s.Parameters,
	}
}

func (s *AnalyzeStage) Execute(ctx context.Context, inputs []Artifact) (*StageResult, error) {
	framework := inputsOfType(inputs, TypeFramework)
	if len(framework) == 0 {
		return nil, fmt.Errorf("stage %s: no framework input", StageAnalyze)
	}
	documents := inputsOfType(inputs, TypeDocument)
	if len(documents) == 0 {
		return nil, fmt.Errorf("stage %s: no document inputs", StageAnalyze)
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	type docOutcome struct {
		result *AnalysisResult
		err    error
	}
	outcomes := make([]docOutcome, len(documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range documents {
		g.Go(func() error {
			err := withRetry(gctx, s.Retry, nil, func(ctx context.Context) error {
				result, err := s.Collaborator.Analyze(ctx, framework[0].Payload, doc.Payload)
				if err != nil {
					return collabErr(StageAnalyze, doc.Digest.String(), err)
				}
				outcomes[i].result = result
				return nil
			})
			if err != nil {
				if gctx.Err() != nil {
					// Cancellation aborts the whole stage rather than counting
					// as a document failure.
					return gctx.Err()
				}
				outcomes[i].err = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var outputs []StageOutput
	var failed []map[string]any
	for i, outcome := range outcomes {
		doc := documents[i]
		if outcome.err != nil {
			failed = append(failed, map[string]any{
				"document_index":  i,
				"document_digest": doc.Digest.String(),
				"error":           outcome.err.Error(),
			})
			continue
		}
		docMeta := func() map[string]any {
			return map[string]any{
				"document_index":  i,
				"document_digest": doc.Digest.String(),
			}
		}
		outputs = append(outputs, StageOutput{
			ContentType: TypeScores,
			Payload:     outcome.result.Scores,
			Metadata:    docMeta(),
			Agent:       outcome.result.Agent,
			Cost:        outcome.result.Cost,
		})
		outputs = append(outputs, StageOutput{
			ContentType: TypeEvidence,
			Payload:     outcome.result.Evidence,
			Metadata:    docMeta(),
			Agent:       outcome.result.Agent,
		})
	}

	succeeded := len(documents) - len(failed)
	failedFraction := float64(len(failed)) / float64(len(documents))
	if succeeded == 0 || failedFraction > s.FailureThreshold {
		return nil, &CollaboratorError{
			Stage:     StageAnalyze,
			Retryable: false,
			Err:       fmt.Errorf("%d of %d documents failed (threshold %.2f)", len(failed), len(documents), s.FailureThreshold),
		}
	}

	metadata := map[string]any{"documents": len(documents)}
	if len(failed) > 0 {
		metadata["failed_documents"] = failed
	}
	return &StageResult{Outputs: outputs, Metadata: metadata}, nil
}
