// ABOUTME: ManifestEntry record type linking each artifact to its producing stage and input digests.
// ABOUTME: Entries form the append-only dependency graph that makes lineage and caching possible.
package manifest

import (
	"time"

	"github.com/discernus/discernus-sub014/cas"
)

// Entry is one record per artifact produced during a run. Entries are
// append-only; an entry may only reference input digests that already exist in
// the artifact store, which keeps the dependency graph acyclic by construction.
type Entry struct {
	Digest         cas.Digest     `json:"digest"`
	ContentType    string         `json:"content_type"`
	Stage          string         `json:"stage"`
	InputDigests   []cas.Digest   `json:"input_digests"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ProducingAgent string         `json:"producing_agent,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
	CostEstimate   float64        `json:"cost_estimate"`
	RecordedAt     time.Time      `json:"recorded_at"`
}

// ArtifactRef is a lightweight (digest, content-type) pair used where the
// payload itself is not needed, e.g. cache index rows.
type ArtifactRef struct {
	Digest      cas.Digest `json:"digest"`
	ContentType string     `json:"content_type"`
}
