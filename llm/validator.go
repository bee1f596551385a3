// ABOUTME: Model-backed validation collaborator: reviews framework and corpus coherence.
// ABOUTME: Returns a verdict with findings; an unknown verdict from the model is retried.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/discernus/discernus-sub014/pipeline"
)

const validationSystemPrompt = `You are a research methodologist. Review the analytical framework and the
corpus for coherence before any analysis runs. Check that the framework defines
measurable dimensions, that the documents are plausible inputs for it, and that
nothing would make the analysis meaningless.
Respond with a single JSON object of the form:
{"verdict": "pass"|"suggestion"|"quality"|"blocking", "findings": [{"severity": "blocking"|"quality"|"suggestion", "message": "<text>"}]}
Use "blocking" only for problems that make analysis meaningless. Return only JSON.`

// Validator implements the validation collaborator over a Completer.
type Validator struct {
	Completer Completer
}

var _ pipeline.ValidationCollaborator = (*Validator)(nil)

// Validate reviews the framework against the corpus.
func (v *Validator) Validate(ctx context.Context, framework []byte, documents [][]byte) (*pipeline.ValidationResult, error) {
	var b strings.Builder
	b.WriteString("## Framework\n\n")
	b.Write(framework)
	b.WriteString("\n\n## Corpus\n")
	for i, doc := range documents {
		fmt.Fprintf(&b, "\n### Document %d\n\n%s\n", i+1, doc)
	}

	completion, err := v.Completer.Complete(ctx, validationSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(completion.Text)
	if err != nil {
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("malformed validation response: %w", err)}
	}

	var result pipeline.ValidationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("malformed validation response: %w", err)}
	}

	switch result.Verdict {
	case pipeline.VerdictPass, pipeline.VerdictSuggestion, pipeline.VerdictQuality, pipeline.VerdictBlocking:
	default:
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("unknown verdict %q", result.Verdict)}
	}

	return &result, nil
}
