// ABOUTME: Model-backed analysis collaborator: scores one document against a framework.
// ABOUTME: Expects a JSON response with scores and evidence sections; malformed output is retried.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/discernus/discernus-sub014/pipeline"
)

const analysisSystemPrompt = `You are a research analyst. Score the document against the analytical framework.
Respond with a single JSON object of the form:
{"scores": {"<dimension>": <number 0..1>, ...}, "evidence": {"<dimension>": ["<verbatim quote>", ...], ...}}
Return only JSON, no commentary.`

// Analyzer implements the analysis collaborator over a Completer.
type Analyzer struct {
	Completer Completer
}

var _ pipeline.AnalysisCollaborator = (*Analyzer)(nil)

// Analyze scores one document against the framework.
func (a *Analyzer) Analyze(ctx context.Context, framework, document []byte) (*pipeline.AnalysisResult, error) {
	user := fmt.Sprintf("## Framework\n\n%s\n\n## Document\n\n%s", framework, document)
	completion, err := a.Completer.Complete(ctx, analysisSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(completion.Text)
	if err != nil {
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("malformed analysis response: %w", err)}
	}

	var parsed struct {
		Scores   json.RawMessage `json:"scores"`
		Evidence json.RawMessage `json:"evidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("malformed analysis response: %w", err)}
	}
	if len(parsed.Scores) == 0 {
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("analysis response missing scores")}
	}
	if len(parsed.Evidence) == 0 {
		parsed.Evidence = json.RawMessage(`{}`)
	}

	return &pipeline.AnalysisResult{
		Scores:   parsed.Scores,
		Evidence: parsed.Evidence,
		Agent:    completion.Model,
		Cost:     completion.Cost,
	}, nil
}
