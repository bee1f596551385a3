// ABOUTME: External collaborator interfaces consumed by the stage executors.
// ABOUTME: Implementations live outside the orchestrator (llm, stats, vcs packages) and are injected.
package pipeline

import "context"

// Validation verdicts, ordered from best to worst.
const (
	VerdictPass       = "pass"
	VerdictSuggestion = "suggestion"
	VerdictQuality    = "quality"
	VerdictBlocking   = "blocking"
)

// Finding severities mirror the verdict scale.
const (
	SeverityBlocking   = "blocking"
	SeverityQuality    = "quality"
	SeveritySuggestion = "suggestion"
)

// Finding is one issue reported by the validation collaborator.
type Finding struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ValidationResult is the validation collaborator's verdict over a workspace.
type ValidationResult struct {
	Verdict  string    `json:"verdict"`
	Findings []Finding `json:"findings"`
}

// ValidationCollaborator checks a framework and corpus before any paid work runs.
type ValidationCollaborator interface {
	Validate(ctx context.Context, framework []byte, documents [][]byte) (*ValidationResult, error)
}

// AnalysisResult is the outcome of analyzing one document against a framework.
type AnalysisResult struct {
	Scores   []byte // structured scores, JSON
	Evidence []byte // supporting quotations, JSON
	Agent    string // model or engine identifier
	Cost     float64
}

// AnalysisCollaborator scores one document against the framework.
type AnalysisCollaborator interface {
	Analyze(ctx context.Context, framework, document []byte) (*AnalysisResult, error)
}

// StatisticsCollaborator aggregates per-document scores into corpus statistics.
type StatisticsCollaborator interface {
	Compute(ctx context.Context, scores [][]byte) ([]byte, error)
}

// SynthesisResult is the narrative report produced from scores, evidence, and statistics.
type SynthesisResult struct {
	Report []byte // markdown
	Agent  string
	Cost   float64
}

// SynthesisCollaborator writes the final narrative report.
type SynthesisCollaborator interface {
	Synthesize(ctx context.Context, scores, evidence [][]byte, statistics []byte) (*SynthesisResult, error)
}

// Export is one tabular export file produced by finalization.
type Export struct {
	Name    string // file name within results/, e.g. scores.csv
	Payload []byte
}

// ExportCollaborator converts the report and scores into tabular exports.
type ExportCollaborator interface {
	Export(ctx context.Context, report []byte, scores [][]byte) ([]Export, error)
}

// Committer records a completed run directory in version control. Invoked at
// most once per completed run; failures are audited but never fail the run.
type Committer interface {
	Commit(ctx context.Context, runDir, message string) error
}
