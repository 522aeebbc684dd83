package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/config"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/tracking"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "Version: %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
		},
	}
}

func (a *app) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recent tracked runs, or show one run",
		Long: `List the most recent cleaning runs, newest first, with their status and
the artifact versions each run consumed and produced. With a run id, show
that run's parameters and artifact links.

The tracking database comes from the settings (--config, CLEANING_TRACKING_DSN).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(a.configPath)
			if err != nil {
				return a.fail(errhandling.NewConfigurationError("loading settings", err))
			}
			if !settings.TrackingEnabled {
				return a.fail(errhandling.NewConfigurationError("run tracking is disabled", nil))
			}
			tracker, err := tracking.Open(settings.TrackingDSN)
			if err != nil {
				return a.fail(errhandling.NewTrackingError("opening run tracker", err))
			}
			defer func() { _ = tracker.Close() }()

			if len(args) == 1 {
				run, err := tracker.GetRun(cmd.Context(), args[0])
				if err != nil {
					return a.fail(errhandling.NewTrackingError("loading run", err))
				}
				a.printer().Run(run)
				return nil
			}

			runs, err := tracker.ListRuns(cmd.Context(), limit)
			if err != nil {
				return a.fail(errhandling.NewTrackingError("listing runs", err))
			}
			a.printer().Runs(runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&a.configPath, "config", "", "Settings file (JSON or YAML)")
	return cmd
}

func (a *app) artifactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts <name>",
		Short: "List the published versions of an artifact",
		Long: `List every version of an artifact in the store, oldest first, with its
type, size, digest and the run that produced it.

The store location comes from the settings (--config, CLEANING_ARTIFACT_ROOT).`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			settings, err := config.Load(a.configPath)
			if err != nil {
				return a.fail(errhandling.NewConfigurationError("loading settings", err))
			}
			versions, err := artifact.NewFSStore(settings.ArtifactRoot).List(args[0])
			if errors.Is(err, artifact.ErrInvalidReference) {
				return a.fail(errhandling.NewConfigurationError("invalid artifact name", err))
			}
			if err != nil {
				return a.fail(errhandling.NewRetrievalError("listing artifact versions", err))
			}
			a.printer().Artifacts(args[0], versions)
			return nil
		},
	}
	cmd.Flags().StringVar(&a.configPath, "config", "", "Settings file (JSON or YAML)")
	return cmd
}

func (a *app) validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config <file>",
		Short: "Validate a settings file",
		Long: `Validate a settings file against the embedded schema.

Supports both JSON and YAML formats. The format is auto-detected
from the file extension (.json, .yaml, .yml) or the content.

Exit codes:
  0 - Settings file is valid
  2 - Parse or validation errors`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			result := config.ParseFile(args[0])
			a.printer().SettingsResult(result)
			if err := result.Err(); err != nil {
				return &exitError{code: ExitUsage, err: err}
			}
			return nil
		},
	}
}
