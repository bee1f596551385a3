// ABOUTME: StageExecutor contract plus the artifact and result types that flow between stages.
// ABOUTME: Executors are pure functions of their inputs and configuration, which is what makes caching valid.
package pipeline

import (
	"context"

	"github.com/discernus/discernus-sub014/cas"
)

// Stage names, in pipeline order.
const (
	StageValidate   = "validate"
	StageAnalyze    = "analyze"
	StageSynthesize = "synthesize"
	StageFinalize   = "finalize"
)

// Artifact content-type tags.
const (
	TypeDocument         = "document"
	TypeFramework        = "framework"
	TypeValidationReport = "validation_report"
	TypeScores           = "scores"
	TypeEvidence         = "evidence"
	TypeStatistics       = "statistics"
	TypeReport           = "report"
	TypeExport           = "export"
)

// Artifact pairs a stored payload with its digest and content-type tag.
// Payload is loaded from the store by the orchestrator before stage execution.
type Artifact struct {
	Digest      cas.Digest
	ContentType string
	Payload     []byte
}

// StageOutput is one artifact produced by a stage, before storage.
type StageOutput struct {
	ContentType string
	Payload     []byte
	Metadata    map[string]any
	Agent       string
	Cost        float64
}

// StageResult bundles a stage's outputs with stage-level metadata, such as the
// list of documents that failed during analysis fan-out.
type StageResult struct {
	Outputs  []StageOutput
	Metadata map[string]any
}

// StageExecutor is one phase of the fixed pipeline. RequiredInputs and Outputs
// declare the content-type contract; Config returns the deterministic stage
// configuration folded into the cache key.
type StageExecutor interface {
	Name() string
	RequiredInputs() []string
	Outputs() []string
	Config() map[string]any
	Execute(ctx context.Context, inputs []Artifact) (*StageResult, error)
}

// inputsOfType filters stage inputs by content type, preserving order.
func inputsOfType(inputs []Artifact, contentType string) []Artifact {
	var out []Artifact
	for _, a := range inputs {
		if a.ContentType == contentType {
			out = append(out, a)
		}
	}
	return out
}

// payloads extracts the byte payloads of a slice of artifacts, in order.
func payloads(arts []Artifact) [][]byte {
	out := make([][]byte, len(arts))
	for i, a := range arts {
		out[i] = a.Payload
	}
	return out
}
