// ABOUTME: JSONL persistence for run manifests so interrupted runs can be reloaded and resumed.
// ABOUTME: One JSON object per line, written atomically via temp file + rename.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SaveTo serializes the tracker's entries to a manifest.jsonl file at the
// given path, one JSON object per line, using an atomic temp-file write.
func (t *Tracker) SaveTo(path string) error {
	var b strings.Builder
	for _, e := range t.entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal manifest entry %s: %w", e.Digest, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp manifest: %w", err)
	}
	return nil
}

// LoadFrom reads a manifest.jsonl file and returns a tracker pre-populated
// with its entries. Input-existence validation uses the provided check, but
// loaded entries are trusted (they were validated when first recorded).
func LoadFrom(path string, exists ExistsFunc) (*Tracker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	t := NewTracker(exists)
	content := strings.TrimSpace(string(data))
	if content == "" {
		return t, nil
	}

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("parse manifest line %d: %w", i+1, err)
		}
		t.byDig[e.Digest] = len(t.entries)
		t.entries = append(t.entries, e)
	}

	return t, nil
}
