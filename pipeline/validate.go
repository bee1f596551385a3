// ABOUTME: Pre-flight validation stage: checks framework and corpus before any paid work runs.
// ABOUTME: Produces a validation_report artifact whose verdict gates the rest of the pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
)

// ValidateStage runs the validation collaborator over the framework and corpus.
type ValidateStage struct {
	Collaborator ValidationCollaborator
}

func (s *ValidateStage) Name() string { return StageValidate }

func (s *ValidateStage) RequiredInputs() []string {
	return []string{TypeFramework, TypeDocument}
}

func (s *ValidateStage) Outputs() []string {
	return []string{TypeValidationReport}
}

func (s *ValidateStage) Config() map[string]any {
	return map[string]any{}
}

func (s *ValidateStage) Execute(ctx context.Context, inputs []Artifact) (*StageResult, error) {
	framework := inputsOfType(inputs, TypeFramework)
	if len(framework) == 0 {
		return nil, fmt.Errorf("stage %s: no framework input", StageValidate)
	}
	documents := inputsOfType(inputs, TypeDocument)

	result, err := s.Collaborator.Validate(ctx, framework[0].Payload, payloads(documents))
	if err != nil {
		return nil, collabErr(StageValidate, "", err)
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("stage %s: marshal validation report: %w", StageValidate, err)
	}

	return &StageResult{
		Outputs: []StageOutput{{
			ContentType: TypeValidationReport,
			Payload:     payload,
			Metadata:    map[string]any{"verdict": result.Verdict, "findings": len(result.Findings)},
		}},
		Metadata: map[string]any{"verdict": result.Verdict},
	}, nil
}

// DecodeValidationReport parses a validation_report artifact payload.
func DecodeValidationReport(payload []byte) (*ValidationResult, error) {
	var result ValidationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("parse validation report: %w", err)
	}
	return &result, nil
}

// collabErr wraps an error from a collaborator call, preserving an existing
// CollaboratorError's Retryable classification. Unclassified errors are
// treated as transient.
func collabErr(stage, document string, err error) *CollaboratorError {
	if ce, ok := err.(*CollaboratorError); ok {
		if ce.Stage == "" {
			ce.Stage = stage
		}
		if ce.Document == "" {
			ce.Document = document
		}
		return ce
	}
	return &CollaboratorError{Stage: stage, Document: document, Retryable: true, Err: err}
}
