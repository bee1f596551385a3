// ABOUTME: Export collaborator producing tabular views of a completed run.
// ABOUTME: Emits scores.csv with one row per document and one column per dimension.
package stats

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/discernus/discernus-sub014/pipeline"
)

// CSVExporter writes per-document scores as a CSV table.
type CSVExporter struct{}

var _ pipeline.ExportCollaborator = (*CSVExporter)(nil)

// Export produces scores.csv. Documents that lack a dimension get an empty
// cell rather than a zero, so absence stays distinguishable from a low score.
func (CSVExporter) Export(_ context.Context, _ []byte, scores [][]byte) ([]pipeline.Export, error) {
	dims, err := Dimensions(scores)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"document"}, dims...)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i, raw := range scores {
		var doc map[string]float64
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("scores for document %d: %w", i, err)
		}
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i+1))
		for _, dim := range dims {
			if v, ok := doc[dim]; ok {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return []pipeline.Export{{Name: "scores.csv", Payload: buf.Bytes()}}, nil
}
