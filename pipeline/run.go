// ABOUTME: Run state machine and filesystem-backed run store for persisting run metadata.
// ABOUTME: Stores each run in a directory with run.json, manifest.jsonl, and logs/audit.jsonl.
package pipeline

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Run statuses. pending -> running -> {completed | failed | blocked}.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusBlocked   = "blocked"
)

// staleRunningAge is how long a "running" run must be idle before it is
// considered abandoned and eligible for resume.
const staleRunningAge = 5 * time.Minute

// Run is one named execution of the pipeline over a workspace.
type Run struct {
	ID            string     `json:"id"`
	WorkspaceName string     `json:"workspace_name"`
	WorkspacePath string     `json:"workspace_path"`
	WorkspaceHash string     `json:"workspace_hash"`
	Stages        []string   `json:"stages"`
	CurrentStage  string     `json:"current_stage,omitempty"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
	TotalCost     float64    `json:"total_cost"`
}

// NewRunID returns a time-ordered, globally unique run identifier.
func NewRunID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Terminal reports whether the run has reached a terminal status.
func (r *Run) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed || r.Status == StatusBlocked
}

// FSRunStore is a filesystem-backed store of runs. Each run lives in a
// subdirectory of baseDir named by run ID.
type FSRunStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFSRunStore creates a run store rooted at baseDir, creating it if needed.
func NewFSRunStore(baseDir string) (*FSRunStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run store dir: %w", err)
	}
	return &FSRunStore{baseDir: baseDir}, nil
}

// RunDir returns the directory path for a given run ID.
func (s *FSRunStore) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// ManifestPath returns the manifest.jsonl path for a given run ID.
func (s *FSRunStore) ManifestPath(runID string) string {
	return filepath.Join(s.baseDir, runID, "manifest.jsonl")
}

// AuditLogPath returns the audit log path for a given run ID.
func (s *FSRunStore) AuditLogPath(runID string) string {
	return filepath.Join(s.baseDir, runID, "logs", "audit.jsonl")
}

// Create persists a new run. Returns an error if the run ID already exists.
func (s *FSRunStore) Create(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := s.RunDir(run.ID)
	if _, err := os.Stat(runDir); err == nil {
		return fmt.Errorf("run %q already exists", run.ID)
	}

	if err := os.MkdirAll(filepath.Join(runDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	return writeJSONAtomic(filepath.Join(runDir, "run.json"), run)
}

// Update overwrites run.json for an existing run.
func (s *FSRunStore) Update(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := s.RunDir(run.ID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return fmt.Errorf("run %q not found", run.ID)
	}
	return writeJSONAtomic(filepath.Join(runDir, "run.json"), run)
}

// Get loads a run by ID.
func (s *FSRunStore) Get(runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUnlocked(runID)
}

func (s *FSRunStore) getUnlocked(runID string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "run.json"))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %q: %w", runID, err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run %q: %w", runID, err)
	}
	return &run, nil
}

// List returns all stored runs, most recent first. Unreadable entries are
// silently skipped.
func (s *FSRunStore) List() ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read run store dir: %w", err)
	}

	var runs []*Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.getUnlocked(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// FindResumable returns the most recent resumable run whose workspace hash
// matches. A run is resumable when it is not completed or blocked, has a
// manifest on disk, and is not a recently-started run that may still be live.
// Returns nil when no run matches.
func (s *FSRunStore) FindResumable(workspaceHash string) (*Run, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.WorkspaceHash != workspaceHash {
			continue
		}
		if run.Status == StatusCompleted || run.Status == StatusBlocked {
			continue
		}
		if run.Status == StatusRunning && time.Since(run.StartedAt) < staleRunningAge {
			continue
		}
		if _, err := os.Stat(s.ManifestPath(run.ID)); os.IsNotExist(err) {
			continue
		}
		return run, nil
	}
	return nil, nil
}

// writeJSONAtomic writes a JSON-encoded value to a file using a temp file + rename for atomicity.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
