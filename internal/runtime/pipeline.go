// Package runtime provides the cleaning execution engine.
// It orchestrates the execution of Input, Filter, and Output modules.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/modules/filter"
	"github.com/canectors/basic-cleaning/internal/modules/input"
	"github.com/canectors/basic-cleaning/internal/modules/output"
	"github.com/canectors/basic-cleaning/internal/table"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// Error codes for execution errors
const (
	ErrCodeInputFailed   = "INPUT_FAILED"
	ErrCodeSchemaInvalid = "SCHEMA_INVALID"
	ErrCodeFilterFailed  = "FILTER_FAILED"
	ErrCodeOutputFailed  = "OUTPUT_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeConfigInvalid = "CONFIG_INVALID"
	ErrCodeTrackerFailed = "TRACKER_FAILED"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Stage names
const (
	StageInput  = "input"
	StageFilter = "filter"
	StageOutput = "output"
)

// Common errors
var (
	// ErrNilInputModule is returned when input module is nil
	ErrNilInputModule = errors.New("input module is nil")

	// ErrNilOutputModule is returned when output module is nil
	ErrNilOutputModule = errors.New("output module is nil")
)

// artifactProvider is implemented by modules that resolve an artifact version.
type artifactProvider interface {
	Artifact() *artifact.Artifact
}

// Executor runs Input → Filters → Output once.
//
// The Executor only interacts with modules through their public interfaces.
type Executor struct {
	inputModule     input.Module
	filterModules   []filter.Module
	outputModule    output.Module
	dryRun          bool
	requiredColumns []string
	previewOpts     output.PreviewOptions
}

// NewExecutorWithModules creates an executor with all modules configured.
// If dryRun is true the output module is not called; a publish preview is
// produced instead when the output module supports it.
func NewExecutorWithModules(
	inputModule input.Module,
	filterModules []filter.Module,
	outputModule output.Module,
	dryRun bool,
) *Executor {
	return &Executor{
		inputModule:   inputModule,
		filterModules: filterModules,
		outputModule:  outputModule,
		dryRun:        dryRun,
	}
}

// WithRequiredColumns makes the executor check the input table for columns
// before any filter runs.
func (e *Executor) WithRequiredColumns(columns ...string) *Executor {
	e.requiredColumns = columns
	return e
}

// WithPreviewOptions sets the options of the dry-run preview.
func (e *Executor) WithPreviewOptions(opts output.PreviewOptions) *Executor {
	e.previewOpts = opts
	return e
}

// stageTimings holds timing measurements for each execution stage
type stageTimings struct {
	inputDuration  time.Duration
	filterDuration time.Duration
	outputDuration time.Duration
}

// Execute runs the modules. runID and jobType only label logs and the result.
//
// The input module is closed right after fetching; the output module when
// Execute returns. The result is never nil.
func (e *Executor) Execute(ctx context.Context, runID, jobType string) (*cleaning.ExecutionResult, error) {
	startedAt := time.Now()
	result := newErrorResult(startedAt, runID, jobType)
	execCtx := logger.ExecutionContext{RunID: runID, JobType: jobType, StepIndex: -1, DryRun: e.dryRun}
	var timings stageTimings

	logger.LogExecutionStart(execCtx)

	if err := e.validate(result); err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}
	if e.outputModule != nil {
		defer e.closeModule(runID, StageOutput, e.outputModule)
	}

	t, inputDuration, err := e.executeInput(ctx, execCtx, result)
	timings.inputDuration = inputDuration
	e.closeModule(runID, StageInput, e.inputModule)
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	t, filterDuration, err := e.executeFilters(ctx, execCtx, t, result)
	timings.filterDuration = filterDuration
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	if e.dryRun {
		result.DryRunPreview = e.executeDryRunPreview(runID, t)
	}

	outputDuration, err := e.executeOutput(ctx, execCtx, t, result)
	timings.outputDuration = outputDuration
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, result.RowsOutput, time.Since(startedAt))
		return result, err
	}

	e.finalizeSuccess(execCtx, result, startedAt, timings)
	return result, nil
}

func newErrorResult(startedAt time.Time, runID, jobType string) *cleaning.ExecutionResult {
	return &cleaning.ExecutionResult{
		RunID:     runID,
		JobType:   jobType,
		Status:    StatusError,
		StartedAt: startedAt,
	}
}

// buildExecutionError creates an ExecutionError with its error category.
func buildExecutionError(code, stage string, err error) *cleaning.ExecutionError {
	return &cleaning.ExecutionError{
		Code:     code,
		Message:  err.Error(),
		Stage:    stage,
		Category: string(errhandling.GetErrorCategory(err)),
	}
}

func (e *Executor) validate(result *cleaning.ExecutionResult) error {
	if e.inputModule == nil {
		logger.Error("execution failed: input module is nil", slog.String("run_id", result.RunID))
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInvalidInput, StageInput, ErrNilInputModule)
		return ErrNilInputModule
	}
	if e.outputModule == nil && !e.dryRun {
		logger.Error("execution failed: output module is nil", slog.String("run_id", result.RunID))
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInvalidInput, StageOutput, ErrNilOutputModule)
		return ErrNilOutputModule
	}
	return nil
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(runID, stage string, m interface{ Close() error }) {
	if err := m.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("run_id", runID),
			slog.String("module", stage),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Executor) executeInput(ctx context.Context, execCtx logger.ExecutionContext, result *cleaning.ExecutionResult) (*table.Table, time.Duration, error) {
	stageCtx := execCtx
	stageCtx.Stage = StageInput
	logger.LogStageStart(stageCtx)

	start := time.Now()
	t, err := e.inputModule.Fetch(ctx)
	duration := time.Since(start)

	if p, ok := e.inputModule.(artifactProvider); ok && p.Artifact() != nil {
		result.Input = summarize(p.Artifact())
	}

	code := ErrCodeInputFailed
	if err == nil {
		code = ErrCodeSchemaInvalid
		err = t.RequireColumns(e.requiredColumns...)
	}
	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(code, StageInput, err)
		logger.LogStageEnd(stageCtx, 0, duration, &logger.ExecutionError{Code: code, Message: err.Error()})
		return nil, duration, fmt.Errorf("executing input module: %w", err)
	}

	result.RowsInput = t.Len()
	logger.LogStageEnd(stageCtx, t.Len(), duration, nil)
	return t, duration, nil
}

func (e *Executor) executeFilters(ctx context.Context, execCtx logger.ExecutionContext, t *table.Table, result *cleaning.ExecutionResult) (*table.Table, time.Duration, error) {
	stageCtx := execCtx
	stageCtx.Stage = StageFilter
	logger.LogStageStart(stageCtx)

	logger.Info("Performing basic cleaning of dataset", slog.String("run_id", execCtx.RunID), slog.Int("rows", t.Len()))

	stageStart := time.Now()
	cur := t
	for i, m := range e.filterModules {
		if m == nil {
			logger.Warn("nil filter module encountered; skipping",
				slog.String("run_id", execCtx.RunID),
				slog.Int("filter_index", i))
			continue
		}

		start := time.Now()
		next, err := m.Process(ctx, cur)
		duration := time.Since(start)

		if err != nil {
			result.CompletedAt = time.Now()
			result.Error = buildExecutionError(ErrCodeFilterFailed, StageFilter, err)
			result.Error.Message = fmt.Sprintf("filter %s (index %d) failed: %v", m.Name(), i, err)
			result.Error.Details = map[string]interface{}{"filterIndex": i, "step": m.Name()}
			logger.LogError("filter module execution failed", logger.ErrorContext{
				RunID:     execCtx.RunID,
				JobType:   execCtx.JobType,
				Stage:     StageFilter,
				Step:      m.Name(),
				ErrorCode: ErrCodeFilterFailed,
				Err:       err,
				RowIndex:  rowIndexOf(err),
			})
			logger.LogStageEnd(stageCtx, cur.Len(), time.Since(stageStart), &logger.ExecutionError{
				Code:    ErrCodeFilterFailed,
				Message: result.Error.Message,
			})
			return nil, time.Since(stageStart), fmt.Errorf("executing filter %s: %w", m.Name(), err)
		}

		rep := cleaner.StepReport{Name: m.Name(), RowsIn: cur.Len(), RowsOut: next.Len(), Duration: duration}
		cleaner.LogStep(rep)
		result.Steps = append(result.Steps, cleaning.StepReport{
			Name:     rep.Name,
			RowsIn:   rep.RowsIn,
			RowsOut:  rep.RowsOut,
			Removed:  rep.Removed(),
			Duration: rep.Duration,
		})
		cur = next
	}

	duration := time.Since(stageStart)
	logger.LogStageEnd(stageCtx, cur.Len(), duration, nil)
	return cur, duration, nil
}

// rowIndexOf extracts the failing row from known row-level errors, or -1.
func rowIndexOf(err error) int {
	var typeErr *cleaner.TypeError
	if errors.As(err, &typeErr) {
		return typeErr.Row
	}
	var scriptErr *filter.ScriptError
	if errors.As(err, &scriptErr) {
		return scriptErr.RecordIndex
	}
	var condErr *filter.ConditionError
	if errors.As(err, &condErr) {
		return condErr.RecordIndex
	}
	return -1
}

// executeDryRunPreview returns nil if the output module cannot preview.
func (e *Executor) executeDryRunPreview(runID string, t *table.Table) *cleaning.PublishPreview {
	if e.outputModule == nil {
		return nil
	}
	previewable, ok := e.outputModule.(output.PreviewableModule)
	if !ok {
		logger.Debug("output module does not implement PreviewableModule, skipping preview",
			slog.String("run_id", runID))
		return nil
	}
	preview, err := previewable.PreviewPublish(t, e.previewOpts)
	if err != nil {
		logger.Error("failed to generate dry-run preview",
			slog.String("run_id", runID),
			slog.Int("row_count", t.Len()),
			slog.String("error", err.Error()))
		return &cleaning.PublishPreview{
			RowCount:      t.Len(),
			Columns:       t.Columns,
			SamplePreview: fmt.Sprintf("Failed to generate preview: %v", err),
		}
	}
	return preview
}

func (e *Executor) executeOutput(ctx context.Context, execCtx logger.ExecutionContext, t *table.Table, result *cleaning.ExecutionResult) (time.Duration, error) {
	if e.dryRun {
		logger.Debug("dry-run mode: skipping output module",
			slog.String("run_id", execCtx.RunID),
			slog.Int("rows_would_publish", t.Len()))
		result.RowsOutput = t.Len()
		return 0, nil
	}

	stageCtx := execCtx
	stageCtx.Stage = StageOutput
	logger.LogStageStart(stageCtx)

	start := time.Now()
	sent, err := e.outputModule.Send(ctx, t)
	duration := time.Since(start)

	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeOutputFailed, StageOutput, err)
		logger.LogStageEnd(stageCtx, t.Len(), duration, &logger.ExecutionError{Code: ErrCodeOutputFailed, Message: err.Error()})
		return duration, fmt.Errorf("executing output module: %w", err)
	}

	result.RowsOutput = sent
	if p, ok := e.outputModule.(artifactProvider); ok && p.Artifact() != nil {
		result.Output = summarize(p.Artifact())
	}
	logger.LogStageEnd(stageCtx, sent, duration, nil)
	return duration, nil
}

func (e *Executor) finalizeSuccess(execCtx logger.ExecutionContext, result *cleaning.ExecutionResult, startedAt time.Time, timings stageTimings) {
	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil

	total := time.Since(startedAt)
	logger.LogExecutionEnd(execCtx, StatusSuccess, result.RowsOutput, total)
	logger.LogMetrics(execCtx, logger.ExecutionMetrics{
		TotalDuration:  total,
		InputDuration:  timings.inputDuration,
		FilterDuration: timings.filterDuration,
		OutputDuration: timings.outputDuration,
		RowsInput:      result.RowsInput,
		RowsOutput:     result.RowsOutput,
		RowsRemoved:    result.RowsInput - result.RowsOutput,
	})
}

func summarize(a *artifact.Artifact) *cleaning.ArtifactSummary {
	return &cleaning.ArtifactSummary{
		Name:    a.Name,
		Version: a.Version,
		Type:    a.Type,
		Digest:  a.Digest,
		Size:    a.Size,
	}
}
