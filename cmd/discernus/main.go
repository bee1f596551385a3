// ABOUTME: CLI entrypoint for the discernus research pipeline with run, resume, validate, and serve modes.
// ABOUTME: Wires the orchestrator, collaborators, retry policies, status server, and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/discernus/discernus-sub014/pipeline"
	"github.com/discernus/discernus-sub014/workspace"
)

var version = "dev"

// Exit codes form the CLI contract: success, blocked by validation, stage failure.
const (
	exitOK      = 0
	exitBlocked = 1
	exitFailed  = 2
)

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	dataDir     string
	retryPolicy string
	baseURL     string
	port        int
	verbose     bool
	showVersion bool
	command     string
	arg         string
}

func main() {
	_ = godotenv.Load()

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("discernus %s\n", version)
		os.Exit(exitOK)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() config {
	var cfg config

	fs := flag.NewFlagSet("discernus", flag.ContinueOnError)
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Data directory for artifacts and run state (default: $XDG_DATA_HOME/discernus)")
	fs.StringVar(&cfg.retryPolicy, "retry", "", "Retry policy override: none, standard, aggressive, linear, patient")
	fs.StringVar(&cfg.baseURL, "base-url", "", "Custom API base URL for the model provider")
	fs.IntVar(&cfg.port, "port", 8214, "Status server port (serve mode)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Print audit events as they happen")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		os.Exit(exitFailed)
	}

	cfg.command = fs.Arg(0)
	cfg.arg = fs.Arg(1)
	return cfg
}

// run dispatches on the subcommand. Returns the process exit code.
func run(cfg config) int {
	switch cfg.command {
	case "run":
		return runWorkspace(cfg)
	case "resume":
		return resumeRun(cfg)
	case "validate":
		return validateWorkspace(cfg)
	case "serve":
		return serveStatus(cfg)
	case "":
		printHelp(os.Stderr, version)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", cfg.command)
		printHelp(os.Stderr, version)
		return exitFailed
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// runWorkspace executes the full pipeline over a workspace file.
func runWorkspace(cfg config) int {
	if cfg.arg == "" {
		fmt.Fprintln(os.Stderr, "error: run requires a workspace file")
		return exitFailed
	}

	ws, err := workspace.Load(cfg.arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}

	env, err := buildEnv(cfg, ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}
	defer env.Close()

	ctx, cancel := signalContext()
	defer cancel()

	preflight := pipeline.RunPreflight(ctx, pipeline.BuildPreflightChecks(ws, env.DataDir, true))
	if !preflight.OK() {
		fmt.Fprintf(os.Stderr, "error: preflight failed:\n%s\n", preflight.Error())
		return exitFailed
	}

	result, runErr := env.Orchestrator.Run(ctx, ws)
	return reportOutcome(result, runErr)
}

// resumeRun continues an interrupted run. The argument is a run ID, or a
// workspace file whose most recent resumable run should continue.
func resumeRun(cfg config) int {
	if cfg.arg == "" {
		fmt.Fprintln(os.Stderr, "error: resume requires a run ID or workspace file")
		return exitFailed
	}

	env, err := buildEnv(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}
	defer env.Close()

	runID := cfg.arg
	if strings.HasSuffix(cfg.arg, ".yaml") || strings.HasSuffix(cfg.arg, ".yml") {
		ws, err := workspace.Load(cfg.arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitFailed
		}
		hash, err := ws.Hash()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitFailed
		}
		candidate, err := env.Orchestrator.Runs.FindResumable(hash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitFailed
		}
		if candidate == nil {
			fmt.Fprintf(os.Stderr, "error: no resumable run for workspace %q\n", ws.Name)
			return exitFailed
		}
		runID = candidate.ID
		fmt.Fprintf(os.Stderr, "resuming run %s\n", runID)
	}

	// The run's own workspace drives stage wiring, so resume-by-ID executes
	// the same stage sequence the original run did.
	record, err := env.Orchestrator.Runs.Get(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}
	ws, err := workspace.Load(record.WorkspacePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}
	if err := env.wireWorkspace(cfg, ws); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, runErr := env.Orchestrator.Resume(ctx, runID)
	return reportOutcome(result, runErr)
}

// validateWorkspace runs the validation stage as a dry run, spending nothing
// on analysis or synthesis.
func validateWorkspace(cfg config) int {
	if cfg.arg == "" {
		fmt.Fprintln(os.Stderr, "error: validate requires a workspace file")
		return exitFailed
	}

	ws, err := workspace.Load(cfg.arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}

	env, err := buildEnv(cfg, ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}
	defer env.Close()

	ctx, cancel := signalContext()
	defer cancel()

	report, err := env.Orchestrator.ValidateOnly(ctx, ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}

	for _, f := range report.Findings {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", f.Severity, f.Message)
	}
	if report.Verdict == pipeline.VerdictBlocking {
		fmt.Fprintln(os.Stderr, "Validation blocked.")
		return exitBlocked
	}
	fmt.Printf("Validation verdict: %s\n", report.Verdict)
	return exitOK
}

// serveStatus starts the read-only HTTP status server over the data directory.
func serveStatus(cfg config) int {
	env, err := buildEnv(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}
	defer env.Close()

	ctx, cancel := signalContext()
	defer cancel()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: pipeline.NewStatusServer(env.Store, env.Orchestrator.Runs),
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	fmt.Fprintf(os.Stderr, "listening on %s\n", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailed
	}
	return exitOK
}

// reportOutcome prints the run result and maps it to an exit code.
func reportOutcome(result *pipeline.RunResult, runErr error) int {
	var blocked *pipeline.ValidationBlockedError
	if errors.As(runErr, &blocked) {
		fmt.Fprintln(os.Stderr, "Run blocked by validation:")
		for _, f := range blocked.Findings {
			fmt.Fprintf(os.Stderr, "  [%s] %s\n", f.Severity, f.Message)
		}
		return exitBlocked
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return exitFailed
	}

	fmt.Printf("Run %s completed.\n", result.Run.ID)
	fmt.Printf("Artifacts: %d  Cost: $%.4f\n", result.Manifest.Len(), result.Run.TotalCost)
	fmt.Printf("Results: %s\n", result.RunDir)
	return exitOK
}

// verboseEventPrinter writes audit records to stderr as they are logged.
func verboseEventPrinter(rec pipeline.AuditRecord) {
	if rec.Stage != "" {
		fmt.Fprintf(os.Stderr, "[%s] %s %v\n", rec.Stage, rec.Type, rec.Fields)
		return
	}
	fmt.Fprintf(os.Stderr, "[run] %s %v\n", rec.Type, rec.Fields)
}
