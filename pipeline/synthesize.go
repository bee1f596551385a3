// ABOUTME: Synthesis stage: aggregates per-document scores into statistics, then writes the narrative report.
// ABOUTME: Produces a statistics artifact followed by a report artifact.
package pipeline

import (
	"context"
	"fmt"
)

// SynthesizeStage computes corpus statistics locally, then asks the synthesis
// collaborator for a narrative report over scores, evidence, and statistics.
type SynthesizeStage struct {
	Statistics StatisticsCollaborator
	Synthesis  SynthesisCollaborator
	Model      string
	Parameters map[string]any
}

func (s *SynthesizeStage) Name() string { return StageSynthesize }

func (s *SynthesizeStage) RequiredInputs() []string {
	return []string{TypeScores, TypeEvidence}
}

func (s *SynthesizeStage) Outputs() []string {
	return []string{TypeStatistics, TypeReport}
}

func (s *SynthesizeStage) Config() map[string]any {
	return map[string]any{
		"model":      s.Model,
		"parameters": s.Parameters,
	}
}

func (s *SynthesizeStage) Execute(ctx context.Context, inputs []Artifact) (*StageResult, error) {
	scores := inputsOfType(inputs, TypeScores)
	if len(scores) == 0 {
		return nil, fmt.Errorf("stage %s: no scores inputs", StageSynthesize)
	}
	evidence := inputsOfType(inputs, TypeEvidence)

	statistics, err := s.Statistics.Compute(ctx, payloads(scores))
	if err != nil {
		return nil, collabErr(StageSynthesize, "", err)
	}

	result, err := s.Synthesis.Synthesize(ctx, payloads(scores), payloads(evidence), statistics)
	if err != nil {
		return nil, collabErr(StageSynthesize, "", err)
	}

	return &StageResult{
		Outputs: []StageOutput{
			{
				ContentType: TypeStatistics,
				Payload:     statistics,
				Metadata:    map[string]any{"documents": len(scores)},
			},
			{
				ContentType: TypeReport,
				Payload:     result.Report,
				Agent:       result.Agent,
				Cost:        result.Cost,
			},
		},
	}, nil
}
