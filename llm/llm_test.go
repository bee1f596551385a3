// ABOUTME: Tests for the model-backed collaborators using a scripted Completer.
// ABOUTME: Covers JSON extraction, malformed responses, and provider error classification.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/discernus/discernus-sub014/pipeline"
)

type scriptedCompleter struct {
	text     string
	err      error
	lastUser string
}

func (s *scriptedCompleter) Complete(_ context.Context, _, user string) (*Completion, error) {
	s.lastUser = user
	if s.err != nil {
		return nil, s.err
	}
	return &Completion{Text: s.text, Model: "test-model", Cost: 0.02}, nil
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`, true},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"fenced no lang", "```\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"prose around", "Here you go:\n{\"a\": 1}\nHope that helps.", `{"a": 1}`, true},
		{"no object", "sorry, cannot do that", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSON(tc.in)
			if tc.ok != (err == nil) {
				t.Fatalf("extractJSON(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
			}
			if tc.ok && got != tc.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestAnalyzerParsesScoresAndEvidence(t *testing.T) {
	completer := &scriptedCompleter{
		text: "```json\n{\"scores\": {\"hope\": 0.8}, \"evidence\": {\"hope\": [\"we will prevail\"]}}\n```",
	}
	a := &Analyzer{Completer: completer}

	result, err := a.Analyze(context.Background(), []byte("framework"), []byte("document text"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.Contains(string(result.Scores), "hope") {
		t.Errorf("scores missing dimension: %s", result.Scores)
	}
	if !strings.Contains(string(result.Evidence), "we will prevail") {
		t.Errorf("evidence missing quote: %s", result.Evidence)
	}
	if result.Agent != "test-model" {
		t.Errorf("Agent = %q, want test-model", result.Agent)
	}
	if result.Cost != 0.02 {
		t.Errorf("Cost = %v, want 0.02", result.Cost)
	}
	if !strings.Contains(completer.lastUser, "document text") {
		t.Error("prompt does not include the document")
	}
}

func TestAnalyzerMalformedResponseIsRetryable(t *testing.T) {
	for _, text := range []string{
		"I cannot score this document.",
		`{"scores": `,
		`{"evidence": {"hope": []}}`,
	} {
		a := &Analyzer{Completer: &scriptedCompleter{text: text}}
		_, err := a.Analyze(context.Background(), []byte("f"), []byte("d"))
		var collabErr *pipeline.CollaboratorError
		if !errors.As(err, &collabErr) {
			t.Fatalf("response %q: error %v is not a collaborator error", text, err)
		}
		if !collabErr.Retryable {
			t.Errorf("response %q: error should be retryable", text)
		}
	}
}

func TestAnalyzerPropagatesCompleterError(t *testing.T) {
	wantErr := &pipeline.CollaboratorError{Retryable: false, Err: errors.New("unauthorized")}
	a := &Analyzer{Completer: &scriptedCompleter{err: wantErr}}

	_, err := a.Analyze(context.Background(), []byte("f"), []byte("d"))
	var collabErr *pipeline.CollaboratorError
	if !errors.As(err, &collabErr) || collabErr.Retryable {
		t.Fatalf("error = %v, want the non-retryable completer error", err)
	}
}

func TestSynthesizerBuildsPromptAndReturnsReport(t *testing.T) {
	completer := &scriptedCompleter{text: "# Report\n\nFindings."}
	s := &Synthesizer{Completer: completer}

	result, err := s.Synthesize(context.Background(),
		[][]byte{[]byte(`{"hope": 0.8}`), []byte(`{"hope": 0.3}`)},
		[][]byte{[]byte(`{"hope": ["q1"]}`), []byte(`{"hope": ["q2"]}`)},
		[]byte(`{"hope": {"mean": 0.55}}`))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.HasPrefix(string(result.Report), "# Report") {
		t.Errorf("unexpected report: %s", result.Report)
	}
	for _, want := range []string{"mean", "0.8", "q2", "Document 2"} {
		if !strings.Contains(completer.lastUser, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSynthesizerEmptyResponseIsRetryable(t *testing.T) {
	s := &Synthesizer{Completer: &scriptedCompleter{text: "   \n"}}
	_, err := s.Synthesize(context.Background(), nil, nil, []byte("{}"))
	var collabErr *pipeline.CollaboratorError
	if !errors.As(err, &collabErr) || !collabErr.Retryable {
		t.Fatalf("error = %v, want retryable collaborator error", err)
	}
}

func TestValidatorParsesVerdict(t *testing.T) {
	completer := &scriptedCompleter{
		text: `{"verdict": "blocking", "findings": [{"severity": "blocking", "message": "framework has no dimensions"}]}`,
	}
	v := &Validator{Completer: completer}

	result, err := v.Validate(context.Background(), []byte("framework"), [][]byte{[]byte("doc")})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Verdict != pipeline.VerdictBlocking {
		t.Errorf("Verdict = %q, want blocking", result.Verdict)
	}
	if len(result.Findings) != 1 || result.Findings[0].Severity != pipeline.SeverityBlocking {
		t.Errorf("unexpected findings: %+v", result.Findings)
	}
}

func TestValidatorRejectsUnknownVerdict(t *testing.T) {
	v := &Validator{Completer: &scriptedCompleter{text: `{"verdict": "maybe", "findings": []}`}}
	_, err := v.Validate(context.Background(), []byte("f"), [][]byte{[]byte("d")})
	var collabErr *pipeline.CollaboratorError
	if !errors.As(err, &collabErr) || !collabErr.Retryable {
		t.Fatalf("error = %v, want retryable collaborator error", err)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusUnprocessableEntity, false},
	}
	for _, tc := range cases {
		err := classifyError(&openai.Error{StatusCode: tc.status})
		var collabErr *pipeline.CollaboratorError
		if !errors.As(err, &collabErr) {
			t.Fatalf("status %d: %v is not a collaborator error", tc.status, err)
		}
		if collabErr.Retryable != tc.retryable {
			t.Errorf("status %d: Retryable = %v, want %v", tc.status, collabErr.Retryable, tc.retryable)
		}
	}

	err := classifyError(errors.New("connection reset"))
	var collabErr *pipeline.CollaboratorError
	if !errors.As(err, &collabErr) || !collabErr.Retryable {
		t.Errorf("transport error should be retryable: %v", err)
	}
}
