package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/factory"
	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/metrics"
	"github.com/canectors/basic-cleaning/internal/modules/output"
	"github.com/canectors/basic-cleaning/internal/registry"
	"github.com/canectors/basic-cleaning/internal/tracking"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// DefaultJobType is the tracker job type of a cleaning run.
const DefaultJobType = "basic_cleaning"

// Job describes one cleaning run.
type Job struct {
	Params cleaning.Params
	// JobType labels the tracked run (default DefaultJobType)
	JobType string
	// ExtraFilters run after the core cleaning steps
	ExtraFilters []cleaning.ModuleConfig
	// WorkDir is where the output file is written before publishing
	WorkDir string
	// OutputFile is the local output file name
	OutputFile string
	// DryRun cleans without publishing or tracking
	DryRun bool
	// PreviewRows is the number of rows in the dry-run sample
	PreviewRows int
}

// Runner wires the artifact store, the run tracker and the metrics recorder
// around an Executor.
type Runner struct {
	Store   artifact.Store
	Tracker tracking.Tracker
	// Metrics is optional
	Metrics *metrics.Recorder
}

// Run starts a tracked run, records the parameters, cleans the input
// artifact, publishes the result and finishes the run with the outcome.
//
// Dry runs use a tracker that records nothing. The returned result is never
// nil; it carries the error details when err is non-nil.
func (r *Runner) Run(ctx context.Context, job Job) (*cleaning.ExecutionResult, error) {
	startedAt := time.Now()
	jobType := job.JobType
	if jobType == "" {
		jobType = DefaultJobType
	}

	tracker := r.Tracker
	if tracker == nil || job.DryRun {
		tracker = tracking.NopTracker{}
	}

	run, err := tracker.Start(ctx, jobType)
	if err != nil {
		err = errhandling.NewTrackingError("starting run", err)
		return r.fail(newErrorResult(startedAt, "", jobType), ErrCodeTrackerFailed, "", err), err
	}
	runLog := logger.WithRun(run.ID())
	runLog.Info("run started", slog.String("job_type", jobType), slog.Bool("dry_run", job.DryRun))

	res, err := r.execute(ctx, run, jobType, job, startedAt)

	// the run is finished even when ctx was canceled
	if finishErr := run.Finish(context.WithoutCancel(ctx), err); finishErr != nil {
		runLog.Error("failed to finish run", slog.String("error", finishErr.Error()))
		if err == nil {
			err = errhandling.NewTrackingError("finishing run", finishErr)
			res.Status = StatusError
			res.Error = buildExecutionError(ErrCodeTrackerFailed, "", err)
		}
	}

	if r.Metrics != nil {
		r.Metrics.Observe(res)
	}
	return res, err
}

func (r *Runner) execute(ctx context.Context, run tracking.Run, jobType string, job Job, startedAt time.Time) (*cleaning.ExecutionResult, error) {
	if err := run.RecordConfig(ctx, job.Params.AsMap()); err != nil {
		err = errhandling.NewTrackingError("recording run config", err)
		return r.fail(newErrorResult(startedAt, run.ID(), jobType), ErrCodeTrackerFailed, "", err), err
	}

	modules, err := factory.Build(factory.PipelineSpec{
		Params:       job.Params,
		ExtraFilters: job.ExtraFilters,
		WorkDir:      job.WorkDir,
		OutputFile:   job.OutputFile,
	}, registry.Dependencies{Store: r.Store, Run: run})
	if err != nil {
		return r.fail(newErrorResult(startedAt, run.ID(), jobType), ErrCodeConfigInvalid, "", err), err
	}

	exec := NewExecutorWithModules(modules.Input, modules.Filters, modules.Output, job.DryRun).
		WithRequiredColumns(cleaner.RequiredColumns...).
		WithPreviewOptions(output.PreviewOptions{SampleRows: job.PreviewRows})
	return exec.Execute(ctx, run.ID(), jobType)
}

func (r *Runner) fail(res *cleaning.ExecutionResult, code, stage string, err error) *cleaning.ExecutionResult {
	res.CompletedAt = time.Now()
	res.Error = buildExecutionError(code, stage, err)
	logger.LogError("run failed before execution", logger.ErrorContext{
		RunID:     res.RunID,
		JobType:   res.JobType,
		ErrorCode: code,
		Err:       err,
		RowIndex:  -1,
	})
	return res
}
