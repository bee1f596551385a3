// ABOUTME: Finalization stage: converts the report and scores into tabular export artifacts.
// ABOUTME: Each export carries its results/ file name in entry metadata.
package pipeline

import (
	"context"
	"fmt"
)

// FinalizeStage produces the tabular exports for the results/ directory.
type FinalizeStage struct {
	Exporter ExportCollaborator
}

func (s *FinalizeStage) Name() string { return StageFinalize }

func (s *FinalizeStage) RequiredInputs() []string {
	return []string{TypeReport, TypeScores}
}

func (s *FinalizeStage) Outputs() []string {
	return []string{TypeExport}
}

func (s *FinalizeStage) Config() map[string]any {
	return map[string]any{}
}

func (s *FinalizeStage) Execute(ctx context.Context, inputs []Artifact) (*StageResult, error) {
	reports := inputsOfType(inputs, TypeReport)
	if len(reports) == 0 {
		return nil, fmt.Errorf("stage %s: no report input", StageFinalize)
	}
	scores := inputsOfType(inputs, TypeScores)

	exports, err := s.Exporter.Export(ctx, reports[0].Payload, payloads(scores))
	if err != nil {
		return nil, collabErr(StageFinalize, "", err)
	}
	if len(exports) == 0 {
		return nil, collabErr(StageFinalize, "", fmt.Errorf("export collaborator returned no exports"))
	}

	outputs := make([]StageOutput, 0, len(exports))
	for _, export := range exports {
		outputs = append(outputs, StageOutput{
			ContentType: TypeExport,
			Payload:     export.Payload,
			Metadata:    map[string]any{"export_name": export.Name},
		})
	}
	return &StageResult{Outputs: outputs}, nil
}
