// ABOUTME: In-memory manifest tracker: appends entries, validates input existence, answers lineage queries.
// ABOUTME: Record rejects forward references with DependencyError so the dependency graph stays acyclic.
package manifest

import (
	"fmt"

	"github.com/discernus/discernus-sub014/cas"
)

// DependencyError indicates a manifest integrity violation: a recorded entry
// referenced an input digest that does not exist in the artifact store. This
// is a programming error and is never retried.
type DependencyError struct {
	Digest cas.Digest
	Stage  string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("manifest entry for stage %q references missing input artifact %s", e.Stage, e.Digest)
}

// ExistsFunc reports whether an artifact digest is present in the store.
type ExistsFunc func(cas.Digest) bool

// Tracker accumulates manifest entries for a single run, in stage order.
// The append path is single-writer: the orchestrator serializes Record calls
// even when stage work is internally parallel.
type Tracker struct {
	exists  ExistsFunc
	entries []Entry
	byDig   map[cas.Digest]int // digest -> index of producing entry
}

// NewTracker creates a tracker that validates input digests with the given
// existence check.
func NewTracker(exists ExistsFunc) *Tracker {
	return &Tracker{
		exists: exists,
		byDig:  make(map[cas.Digest]int),
	}
}

// Record appends an entry. Every declared input digest must already exist in
// the artifact store; otherwise Record fails with DependencyError and the
// manifest is left unchanged.
func (t *Tracker) Record(entry Entry) error {
	for _, in := range entry.InputDigests {
		if !t.exists(in) {
			return &DependencyError{Digest: in, Stage: entry.Stage}
		}
	}
	t.byDig[entry.Digest] = len(t.entries)
	t.entries = append(t.entries, entry)
	return nil
}

// Entries returns all recorded entries in append order.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of recorded entries.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Find returns the entry that produced the given digest, if any.
func (t *Tracker) Find(digest cas.Digest) (Entry, bool) {
	idx, ok := t.byDig[digest]
	if !ok {
		return Entry{}, false
	}
	return t.entries[idx], true
}

// ByStage returns the entries recorded for the given stage, in append order.
func (t *Tracker) ByStage(stage string) []Entry {
	var out []Entry
	for _, e := range t.entries {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// ByContentType returns the entries whose artifact carries the given content
// type, in append order.
func (t *Tracker) ByContentType(contentType string) []Entry {
	var out []Entry
	for _, e := range t.entries {
		if e.ContentType == contentType {
			out = append(out, e)
		}
	}
	return out
}

// Lineage returns the full upstream dependency chain for the given digest:
// the producing entry first, then its transitive inputs in breadth-first
// order. Each upstream artifact is visited exactly once; the graph is acyclic
// by construction, so the walk always terminates.
func (t *Tracker) Lineage(digest cas.Digest) []Entry {
	visited := make(map[cas.Digest]bool)
	var chain []Entry
	queue := []cas.Digest{digest}

	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if visited[d] {
			continue
		}
		visited[d] = true

		entry, ok := t.Find(d)
		if !ok {
			// Input artifacts seeded from outside this run (e.g. corpus
			// documents ingested by a prior run) have no producing entry here.
			continue
		}
		chain = append(chain, entry)
		queue = append(queue, entry.InputDigests...)
	}

	return chain
}
