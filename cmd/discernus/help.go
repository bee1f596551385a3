// ABOUTME: Help display for the discernus CLI with usage, flags, and examples.
// ABOUTME: Provides printHelp for usage output and envStatus for API key detection.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes a formatted help message to w.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "discernus %s — research pipeline runner\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  discernus run <workspace.yaml>       Run the full pipeline")
	fmt.Fprintln(w, "  discernus resume <run-id>            Resume an interrupted run")
	fmt.Fprintln(w, "  discernus resume <workspace.yaml>    Resume the latest resumable run for a workspace")
	fmt.Fprintln(w, "  discernus validate <workspace.yaml>  Dry-run validation only, no analysis spend")
	fmt.Fprintln(w, "  discernus serve [-port 8214]         Read-only HTTP status server")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -data-dir <dir>  Artifact and run state directory (default: $XDG_DATA_HOME/discernus)")
	fmt.Fprintln(w, "  -retry <policy>  none, standard, aggressive, linear, patient (default: workspace setting)")
	fmt.Fprintln(w, "  -base-url <url>  Custom API base URL for the model provider")
	fmt.Fprintln(w, "  -verbose         Print audit events as they happen")
	fmt.Fprintln(w, "  -version         Print version and exit")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0  run completed")
	fmt.Fprintln(w, "  1  blocked by validation")
	fmt.Fprintln(w, "  2  stage failure or usage error")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Environment: %s\n", envStatus())
}

// envStatus reports whether a model API key is configured.
func envStatus() string {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return "OPENAI_API_KEY set"
	}
	return "OPENAI_API_KEY not set (run and validate will fail preflight)"
}
