// ABOUTME: Materializes the content-addressed store into a human-browsable run directory tree.
// ABOUTME: Entries under artifacts/ and results/ are non-owning projections (hardlink, copy fallback).
package pipeline

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/discernus/discernus-sub014/cas"
	"github.com/discernus/discernus-sub014/manifest"
)

var reportMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Table))

const reportPageShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; }
pre { background: #f5f5f5; padding: 0.8rem; overflow-x: auto; }
</style>
</head>
<body>
%s
</body>
</html>
`

// Materialize projects a run's artifacts into runDir: results/ holds the
// final report and exports, artifacts/<stage>/ holds every intermediate, and
// the store remains the sole owner of the bytes.
func Materialize(runDir string, tracker *manifest.Tracker, store *cas.Store) error {
	resultsDir := filepath.Join(runDir, "results")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	stageIndex := map[string]int{}
	for _, entry := range tracker.Entries() {
		stageDir := filepath.Join(runDir, "artifacts", entry.Stage)
		if err := os.MkdirAll(stageDir, 0o755); err != nil {
			return fmt.Errorf("create stage dir: %w", err)
		}

		n := stageIndex[entry.Stage]
		stageIndex[entry.Stage] = n + 1
		name := fmt.Sprintf("%03d_%s_%s%s", n, entry.ContentType, entry.Digest[:12], artifactExt(entry))
		if err := linkOrCopy(store, entry.Digest, filepath.Join(stageDir, name)); err != nil {
			return err
		}

		switch entry.ContentType {
		case TypeReport:
			if err := materializeReport(store, entry.Digest, resultsDir); err != nil {
				return err
			}
		case TypeExport:
			exportName, _ := entry.Metadata["export_name"].(string)
			if exportName == "" {
				exportName = fmt.Sprintf("export_%s.csv", entry.Digest[:12])
			}
			if err := linkOrCopy(store, entry.Digest, filepath.Join(resultsDir, filepath.Base(exportName))); err != nil {
				return err
			}
		}
	}
	return nil
}

// materializeReport links report.md into results/ and renders report.html.
func materializeReport(store *cas.Store, digest cas.Digest, resultsDir string) error {
	if err := linkOrCopy(store, digest, filepath.Join(resultsDir, "report.md")); err != nil {
		return err
	}

	source, err := store.Get(digest)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := reportMarkdown.Convert(source, &body); err != nil {
		return fmt.Errorf("render report html: %w", err)
	}
	page := fmt.Sprintf(reportPageShell, html.EscapeString("Research Report"), body.String())
	if err := os.WriteFile(filepath.Join(resultsDir, "report.html"), []byte(page), 0o644); err != nil {
		return fmt.Errorf("write report html: %w", err)
	}
	return nil
}

// linkOrCopy projects a stored object to dst via hardlink, copying when the
// filesystem does not support links across the two paths. An existing dst is
// left alone: materialization is idempotent.
func linkOrCopy(store *cas.Store, digest cas.Digest, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	if err := os.Link(store.ObjectPath(digest), dst); err == nil {
		return nil
	}

	payload, err := store.Get(digest)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, payload, 0o644); err != nil {
		return fmt.Errorf("materialize %s: %w", dst, err)
	}
	return nil
}

func artifactExt(entry manifest.Entry) string {
	switch entry.ContentType {
	case TypeScores, TypeEvidence, TypeStatistics, TypeValidationReport:
		return ".json"
	case TypeReport, TypeFramework:
		return ".md"
	case TypeExport:
		return ".csv"
	default:
		return ".txt"
	}
}
