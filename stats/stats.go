// ABOUTME: Local statistics collaborator: per-dimension descriptive statistics over score sets.
// ABOUTME: Runs deterministically with no model calls, so its outputs cache on inputs alone.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/discernus/discernus-sub014/pipeline"
)

// DimensionStats holds descriptive statistics for one framework dimension.
type DimensionStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// Aggregator computes per-dimension statistics across the corpus.
type Aggregator struct{}

var _ pipeline.StatisticsCollaborator = (*Aggregator)(nil)

// Compute aggregates per-document score maps into per-dimension statistics.
// Dimensions missing from some documents are aggregated over the documents
// that do score them.
func (Aggregator) Compute(_ context.Context, scores [][]byte) ([]byte, error) {
	values := map[string][]float64{}
	for i, raw := range scores {
		var doc map[string]float64
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("scores for document %d: %w", i, err)
		}
		for dim, v := range doc {
			values[dim] = append(values[dim], v)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no dimensions present in any score set")
	}

	result := map[string]DimensionStats{}
	for dim, vs := range values {
		result[dim] = describe(vs)
	}
	return json.MarshalIndent(result, "", "  ")
}

func describe(vs []float64) DimensionStats {
	s := DimensionStats{Count: len(vs), Min: vs[0], Max: vs[0]}
	var sum float64
	for _, v := range vs {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(vs))

	var sq float64
	for _, v := range vs {
		d := v - s.Mean
		sq += d * d
	}
	s.StdDev = math.Sqrt(sq / float64(len(vs)))
	return s
}

// Dimensions returns the sorted dimension names present across the score sets.
func Dimensions(scores [][]byte) ([]string, error) {
	seen := map[string]bool{}
	for i, raw := range scores {
		var doc map[string]float64
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("scores for document %d: %w", i, err)
		}
		for dim := range doc {
			seen[dim] = true
		}
	}
	dims := make([]string, 0, len(seen))
	for dim := range seen {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	return dims, nil
}
