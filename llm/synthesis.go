// ABOUTME: Model-backed synthesis collaborator: writes the narrative report.
// ABOUTME: Feeds scores, evidence, and statistics into one completion and returns markdown.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/discernus/discernus-sub014/pipeline"
)

const synthesisSystemPrompt = `You are a research writer. Using the per-document scores, supporting evidence,
and corpus statistics provided, write a narrative research report in markdown.
Structure it with a summary, per-dimension findings with quoted evidence, and a
conclusion. Every claim must cite evidence from the materials provided. Return
only the markdown report.`

// Synthesizer implements the synthesis collaborator over a Completer.
type Synthesizer struct {
	Completer Completer
}

var _ pipeline.SynthesisCollaborator = (*Synthesizer)(nil)

// Synthesize writes the final report from the analysis outputs.
func (s *Synthesizer) Synthesize(ctx context.Context, scores, evidence [][]byte, statistics []byte) (*pipeline.SynthesisResult, error) {
	var b strings.Builder
	b.WriteString("## Corpus statistics\n\n")
	b.Write(statistics)
	b.WriteString("\n\n## Per-document scores\n")
	for i, sc := range scores {
		fmt.Fprintf(&b, "\n### Document %d\n\n%s\n", i+1, sc)
	}
	b.WriteString("\n## Evidence\n")
	for i, ev := range evidence {
		fmt.Fprintf(&b, "\n### Document %d\n\n%s\n", i+1, ev)
	}

	completion, err := s.Completer.Complete(ctx, synthesisSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	report := strings.TrimSpace(completion.Text)
	if report == "" {
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("empty synthesis response")}
	}

	return &pipeline.SynthesisResult{
		Report: []byte(report + "\n"),
		Agent:  completion.Model,
		Cost:   completion.Cost,
	}, nil
}
