// Package main provides the CLI entry point of the basic cleaning step.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/cli"
	"github.com/canectors/basic-cleaning/internal/config"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/metrics"
	"github.com/canectors/basic-cleaning/internal/runtime"
	"github.com/canectors/basic-cleaning/internal/tracking"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// exitError carries the exit code of a failure that was already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// app holds the flag values and output streams of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	params      cleaning.Params
	configPath  string
	metricsFile string
	logFormat   string
	logFile     string
	dryRun      bool
	previewRows int
	jsonOutput  bool
	verbose     bool
	quiet       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer logger.CloseLogFile()

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	// Anything cobra rejects before RunE (unknown or missing flags, bad
	// values, wrong arguments) is a usage error.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if cmd != nil {
		fmt.Fprintln(stderr, cmd.UsageString())
	}
	return ExitUsage
}

// exitCodeFor maps a classified failure to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errhandling.IsConfigurationError(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "basic-cleaning",
		Short: "Clean a listings CSV artifact and publish the result",
		Long: `basic-cleaning fetches a listings CSV artifact, removes price and
minimum-nights outliers, converts last_review to a date, keeps only
listings inside the NYC bounding box, and publishes the cleaned table
as a new artifact version. Each run is tracked with its parameters and
the artifacts it used and produced.

Exit codes:
  0 - Success
  1 - Runtime error (retrieval, schema, type, publish, tracking, io)
  2 - Usage or configuration error

Examples:
  basic-cleaning --input_artifact sample.csv:latest \
    --output_artifact clean_sample.csv --output_type clean_sample \
    --output_description "Data with outliers and null values removed" \
    --min_price 10 --max_price 350 --max_minimum_nights 30

  basic-cleaning --dry-run --config settings.yaml ...`,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setupLogging,
		RunE:              a.runClean,
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	pf.StringVar(&a.logFormat, "log-format", "json", "Log format: json or human")
	pf.StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file")
	pf.BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")

	f := root.Flags()
	f.StringVar(&a.params.InputArtifact, "input_artifact", "", "Fully-qualified name for the input artifact")
	f.StringVar(&a.params.OutputArtifact, "output_artifact", "", "Name for the output artifact")
	f.StringVar(&a.params.OutputType, "output_type", "", "Type for the output artifact")
	f.StringVar(&a.params.OutputDescription, "output_description", "", "Description for the output artifact")
	f.Float64Var(&a.params.MinPrice, "min_price", 0, "Minimum price for cleaning outliers")
	f.Float64Var(&a.params.MaxPrice, "max_price", 0, "Maximum price for cleaning outliers")
	f.IntVar(&a.params.MaxMinimumNights, "max_minimum_nights", 0, "Maximum number of minimum nights for cleaning outliers")
	for _, name := range []string{
		"input_artifact", "output_artifact", "output_type", "output_description",
		"min_price", "max_price", "max_minimum_nights",
	} {
		_ = root.MarkFlagRequired(name)
	}
	f.StringVar(&a.configPath, "config", "", "Settings file (JSON or YAML)")
	f.BoolVar(&a.dryRun, "dry-run", false, "Clean without publishing or tracking and print a preview")
	f.IntVar(&a.previewRows, "preview-rows", 0, "Rows in the dry-run sample (default 5)")
	f.StringVar(&a.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")

	root.AddCommand(a.versionCmd(), a.runsCmd(), a.artifactsCmd(), a.validateConfigCmd())
	return root
}

func (a *app) setupLogging(_ *cobra.Command, _ []string) error {
	format, err := logger.ParseFormat(a.logFormat)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	} else if a.quiet {
		level = slog.LevelError
	}

	// stdout is reserved for command output
	logger.SetOutput(a.stderr, level, format)
	if a.logFile != "" {
		if err := logger.SetLogFile(a.logFile, level, format); err != nil {
			return a.fail(errhandling.NewIOError("opening log file", err))
		}
	}
	return nil
}

func (a *app) printer() *cli.Printer {
	return cli.NewPrinter(a.stdout, a.stderr, cli.OutputOptions{
		Verbose: a.verbose,
		Quiet:   a.quiet,
		DryRun:  a.dryRun,
		JSON:    a.jsonOutput,
	})
}

// fail reports a failure that happened before the run started and returns
// it with its exit code attached.
func (a *app) fail(err error) error {
	fmt.Fprintf(a.stderr, "✗ %v\n", err)
	return &exitError{code: exitCodeFor(err), err: err}
}

func (a *app) runClean(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(a.configPath)
	if err != nil {
		return a.fail(errhandling.NewConfigurationError("loading settings", err))
	}
	metricsFile := settings.MetricsFile
	if a.metricsFile != "" {
		metricsFile = a.metricsFile
	}

	var tracker tracking.Tracker
	if settings.TrackingEnabled && !a.dryRun {
		gt, err := tracking.Open(settings.TrackingDSN)
		if err != nil {
			return a.fail(errhandling.NewTrackingError("opening run tracker", err))
		}
		defer func() {
			if err := gt.Close(); err != nil {
				logger.Warn("failed to close run tracker", slog.String("error", err.Error()))
			}
		}()
		tracker = gt
	}

	recorder := metrics.New(metrics.DefaultNamespace)
	runner := &runtime.Runner{
		Store:   artifact.NewFSStore(settings.ArtifactRoot),
		Tracker: tracker,
		Metrics: recorder,
	}

	logger.Debug("settings resolved",
		slog.String("artifact_root", settings.ArtifactRoot),
		slog.Bool("tracking_enabled", settings.TrackingEnabled),
		slog.String("work_dir", settings.WorkDir),
		slog.Int("extra_filters", len(settings.ExtraFilters)),
	)

	result, runErr := runner.Run(cmd.Context(), runtime.Job{
		Params:       a.params,
		JobType:      settings.JobType,
		ExtraFilters: settings.ExtraFilters,
		WorkDir:      settings.WorkDir,
		OutputFile:   settings.OutputFile,
		DryRun:       a.dryRun,
		PreviewRows:  a.previewRows,
	})
	a.printer().ExecutionResult(result, runErr)

	if metricsFile != "" {
		if err := recorder.WriteTextfile(metricsFile); err != nil {
			logger.Warn("failed to write metrics file",
				slog.String("path", metricsFile),
				slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		return &exitError{code: exitCodeFor(runErr), err: runErr}
	}
	return nil
}
