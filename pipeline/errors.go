// ABOUTME: Typed errors for stage execution: collaborator failures, contract violations, blocking validation.
// ABOUTME: CollaboratorError carries a Retryable flag consulted by the retry loop.
package pipeline

import (
	"fmt"
	"strings"
)

// CollaboratorError reports a failure of an external collaborator call. When
// Retryable is true the orchestrator retries the call per its retry policy;
// otherwise the failure escalates immediately.
type CollaboratorError struct {
	Stage     string
	Document  string // document label for analysis fan-out failures, empty otherwise
	Retryable bool
	Err       error
}

func (e *CollaboratorError) Error() string {
	if e.Document != "" {
		return fmt.Sprintf("stage %s: document %s: collaborator: %v", e.Stage, e.Document, e.Err)
	}
	return fmt.Sprintf("stage %s: collaborator: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// ContractViolationError reports stage output that does not satisfy the
// stage's declared output content-types. Never retried.
type ContractViolationError struct {
	Stage string
	Got   string
	Want  []string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("stage %s: output content-type %q not in declared outputs %v", e.Stage, e.Got, e.Want)
}

// ValidationBlockedError reports that pre-flight validation found a blocking
// issue. The run transitions to blocked and no later stage executes.
type ValidationBlockedError struct {
	Findings []Finding
}

func (e *ValidationBlockedError) Error() string {
	msgs := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		if f.Severity == SeverityBlocking {
			msgs = append(msgs, f.Message)
		}
	}
	if len(msgs) == 0 {
		return "validation blocked the run"
	}
	return fmt.Sprintf("validation blocked the run: %s", strings.Join(msgs, "; "))
}
