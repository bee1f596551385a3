// ABOUTME: Pre-execution validation that checks workspace files, store writability, and credentials.
// ABOUTME: Runs before the orchestrator starts to provide fast, clear failure messages.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/discernus/discernus-sub014/workspace"
)

// PreflightCheck represents a single validation check to run before a pipeline run.
type PreflightCheck struct {
	Name  string                          // human-readable check name
	Check func(ctx context.Context) error // the actual check; nil error means pass
}

// PreflightResult holds the aggregated results of all preflight checks.
type PreflightResult struct {
	Passed []string           // names of checks that passed
	Failed []PreflightFailure // checks that failed with reasons
}

// PreflightFailure records a single check failure with its name and reason.
type PreflightFailure struct {
	Name   string
	Reason string
}

// OK returns true if no checks failed.
func (r PreflightResult) OK() bool {
	return len(r.Failed) == 0
}

// Error formats all failures as a multi-line string. Returns empty string if no failures.
func (r PreflightResult) Error() string {
	if len(r.Failed) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Failed)+1)
	lines = append(lines, fmt.Sprintf("preflight: %d check(s) failed:", len(r.Failed)))
	for _, f := range r.Failed {
		lines = append(lines, fmt.Sprintf("  - %s: %s", f.Name, f.Reason))
	}
	return strings.Join(lines, "\n")
}

// RunPreflight executes all checks and collects results. Every check is run
// regardless of whether earlier checks fail, so the caller gets a complete
// picture of what needs to be fixed.
func RunPreflight(ctx context.Context, checks []PreflightCheck) PreflightResult {
	result := PreflightResult{
		Passed: make([]string, 0, len(checks)),
		Failed: make([]PreflightFailure, 0),
	}

	for _, c := range checks {
		if err := c.Check(ctx); err != nil {
			result.Failed = append(result.Failed, PreflightFailure{
				Name:   c.Name,
				Reason: err.Error(),
			})
		} else {
			result.Passed = append(result.Passed, c.Name)
		}
	}

	return result
}

// BuildPreflightChecks produces the checks appropriate for running a
// workspace: framework and documents readable, data directory writable, and
// the model API key present when a model-backed collaborator will be called.
func BuildPreflightChecks(ws *workspace.Workspace, dataDir string, requireAPIKey bool) []PreflightCheck {
	checks := []PreflightCheck{
		{
			Name: "framework-readable",
			Check: func(ctx context.Context) error {
				_, err := os.ReadFile(ws.FrameworkPath())
				return err
			},
		},
	}

	for i, path := range ws.DocumentPaths() {
		docPath := path
		checks = append(checks, PreflightCheck{
			Name: fmt.Sprintf("document-%d-readable", i),
			Check: func(ctx context.Context) error {
				_, err := os.ReadFile(docPath)
				return err
			},
		})
	}

	checks = append(checks, PreflightCheck{
		Name: "data-dir-writable",
		Check: func(ctx context.Context) error {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			probe := filepath.Join(dataDir, ".preflight-probe")
			if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
				return err
			}
			return os.Remove(probe)
		},
	})

	if requireAPIKey {
		checks = append(checks, PreflightCheck{
			Name: "env:OPENAI_API_KEY",
			Check: func(ctx context.Context) error {
				if os.Getenv("OPENAI_API_KEY") == "" {
					return fmt.Errorf("required environment variable OPENAI_API_KEY is not set")
				}
				return nil
			},
		})
	}

	return checks
}
