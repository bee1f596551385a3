// ABOUTME: Workspace definition loaded from workspace.yaml: corpus documents, framework, stage settings.
// ABOUTME: Relative paths resolve against the workspace directory; Load validates that inputs exist.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// AnalysisSettings configures the per-document analysis stage.
type AnalysisSettings struct {
	Model      string         `yaml:"model"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	MaxWorkers int            `yaml:"max_workers,omitempty"`

	// FailureThreshold is a pointer so an explicit 0 (fail on any document
	// failure) stays distinguishable from unset.
	FailureThreshold *float64 `yaml:"failure_threshold,omitempty"`
}

// SynthesisSettings configures the synthesis stage.
type SynthesisSettings struct {
	Model      string         `yaml:"model"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
}

// RetrySettings selects the retry policy applied to collaborator failures.
type RetrySettings struct {
	Policy      string `yaml:"policy,omitempty"`       // none, standard, aggressive, linear, patient
	MaxAttempts int    `yaml:"max_attempts,omitempty"` // overrides the preset when > 0
}

// CommitSettings configures the version-control commit of completed runs.
type CommitSettings struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Workspace describes one research workspace: the framework configuration, the
// corpus documents, and the stage settings for a run.
type Workspace struct {
	Name      string            `yaml:"name"`
	Framework string            `yaml:"framework"`
	Documents []string          `yaml:"documents"`
	Analysis  AnalysisSettings  `yaml:"analysis,omitempty"`
	Synthesis SynthesisSettings `yaml:"synthesis,omitempty"`
	Retry     RetrySettings     `yaml:"retry,omitempty"`
	Commit    CommitSettings    `yaml:"commit,omitempty"`

	// Path is the absolute path of the loaded workspace file. Dir is its
	// directory; all relative paths in the workspace resolve against it.
	Path string `yaml:"-"`
	Dir  string `yaml:"-"`
}

// Load reads and validates a workspace.yaml file. The returned workspace has
// Dir set and all declared files verified to exist.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}

	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}
	ws.Path = abs
	ws.Dir = filepath.Dir(abs)

	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return &ws, nil
}

// Validate checks structural requirements and that every declared file exists.
func (ws *Workspace) Validate() error {
	if ws.Name == "" {
		return fmt.Errorf("workspace: name must not be empty")
	}
	if ws.Framework == "" {
		return fmt.Errorf("workspace %q: framework must not be empty", ws.Name)
	}
	if len(ws.Documents) == 0 {
		return fmt.Errorf("workspace %q: at least one document is required", ws.Name)
	}
	if t := ws.Analysis.FailureThreshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("workspace %q: analysis.failure_threshold must be in [0,1]", ws.Name)
	}

	if _, err := os.Stat(ws.FrameworkPath()); err != nil {
		return fmt.Errorf("workspace %q: framework file: %w", ws.Name, err)
	}
	for _, doc := range ws.Documents {
		if _, err := os.Stat(ws.resolve(doc)); err != nil {
			return fmt.Errorf("workspace %q: document %q: %w", ws.Name, doc, err)
		}
	}
	return nil
}

// FrameworkPath returns the absolute path of the framework file.
func (ws *Workspace) FrameworkPath() string {
	return ws.resolve(ws.Framework)
}

// DocumentPaths returns the absolute paths of all corpus documents, in
// declared order.
func (ws *Workspace) DocumentPaths() []string {
	paths := make([]string, len(ws.Documents))
	for i, doc := range ws.Documents {
		paths[i] = ws.resolve(doc)
	}
	return paths
}

// MaxWorkers returns the analysis fan-out bound, defaulting to 4.
func (ws *Workspace) MaxWorkers() int {
	if ws.Analysis.MaxWorkers > 0 {
		return ws.Analysis.MaxWorkers
	}
	return 4
}

// FailureThreshold returns the analysis majority-failure threshold as a
// fraction of documents, defaulting to 0.5 when unset.
func (ws *Workspace) FailureThreshold() float64 {
	if ws.Analysis.FailureThreshold != nil {
		return *ws.Analysis.FailureThreshold
	}
	return 0.5
}

// Hash returns a SHA-256 fingerprint of the workspace: its configuration plus
// the content of the framework and every document. Any byte change anywhere
// produces a different hash. Used to match interrupted runs for resume.
func (ws *Workspace) Hash() (string, error) {
	h := sha256.New()

	cfg, err := yaml.Marshal(ws)
	if err != nil {
		return "", fmt.Errorf("marshal workspace for hashing: %w", err)
	}
	h.Write(cfg)

	files := append([]string{ws.FrameworkPath()}, ws.DocumentPaths()...)
	sort.Strings(files[1:]) // documents in stable order; framework stays first
	for _, p := range files {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("hash workspace file %q: %w", p, err)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("hash workspace file %q: %w", p, err)
		}
		f.Close()
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (ws *Workspace) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ws.Dir, p)
}
