package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/config"
	"github.com/canectors/basic-cleaning/internal/tracking"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

func newTestPrinter(opts OutputOptions) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, opts), &out, &errOut
}

func successResult() *cleaning.ExecutionResult {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &cleaning.ExecutionResult{
		RunID:       "run-1",
		Status:      "success",
		StartedAt:   start,
		CompletedAt: start.Add(1500 * time.Millisecond),
		RowsInput:   16,
		RowsOutput:  12,
		Steps: []cleaning.StepReport{
			{Name: "price_range", RowsIn: 16, RowsOut: 15, Removed: 1},
		},
		Input:  &cleaning.ArtifactSummary{Name: "sample.csv", Version: 1, Type: "raw_data"},
		Output: &cleaning.ArtifactSummary{Name: "clean_sample.csv", Version: 3, Type: "clean_sample"},
	}
}

func TestExecutionResultSuccess(t *testing.T) {
	p, out, errOut := newTestPrinter(OutputOptions{})
	p.ExecutionResult(successResult(), nil)

	s := out.String()
	assert.Contains(t, s, "✓ Cleaning completed successfully")
	assert.Contains(t, s, "Run: run-1")
	assert.Contains(t, s, "Input: sample.csv:v1 (raw_data)")
	assert.Contains(t, s, "Rows: 16 in, 12 out (4 removed)")
	assert.Contains(t, s, "Output: clean_sample.csv:v3 (clean_sample)")
	assert.NotContains(t, s, "price_range", "steps are only listed in verbose mode")
	assert.Empty(t, errOut.String())
}

func TestExecutionResultVerboseAndQuiet(t *testing.T) {
	p, out, _ := newTestPrinter(OutputOptions{Verbose: true})
	p.ExecutionResult(successResult(), nil)
	assert.Contains(t, out.String(), "price_range")
	assert.Contains(t, out.String(), "Duration: 1.5s")

	p, out, _ = newTestPrinter(OutputOptions{Quiet: true})
	p.ExecutionResult(successResult(), nil)
	assert.Empty(t, out.String())
}

func TestExecutionResultFailure(t *testing.T) {
	p, out, errOut := newTestPrinter(OutputOptions{Verbose: true})
	result := &cleaning.ExecutionResult{
		RunID:  "run-2",
		Status: "error",
		Error:  &cleaning.ExecutionError{Code: "INPUT_FAILED", Message: "artifact not found", Stage: "input", Category: "retrieval"},
	}
	p.ExecutionResult(result, errors.New("artifact not found"))

	s := errOut.String()
	assert.Contains(t, s, "✗ Cleaning failed")
	assert.Contains(t, s, "Stage: input")
	assert.Contains(t, s, "Code: INPUT_FAILED")
	assert.Contains(t, s, "Category: retrieval")
	assert.Contains(t, s, "Run: run-2")
	assert.Empty(t, out.String())

	p, _, errOut = newTestPrinter(OutputOptions{})
	p.ExecutionResult(nil, errors.New("boom"))
	assert.Contains(t, errOut.String(), "boom")
}

func TestExecutionResultJSON(t *testing.T) {
	p, out, _ := newTestPrinter(OutputOptions{JSON: true})
	p.ExecutionResult(successResult(), nil)

	var decoded cleaning.ExecutionResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 12, decoded.RowsOutput)
}

func TestDryRunPreview(t *testing.T) {
	p, out, _ := newTestPrinter(OutputOptions{DryRun: true})
	result := successResult()
	result.Output = nil
	result.DryRunPreview = &cleaning.PublishPreview{
		Name:          "clean_sample.csv",
		Type:          "clean_sample",
		Description:   "Data with outliers removed",
		FileName:      "clean_sample.csv",
		RowCount:      12,
		SamplePreview: "id,price\n2539,149\n",
	}
	p.ExecutionResult(result, nil)

	s := out.String()
	assert.Contains(t, s, "Artifact: clean_sample.csv (clean_sample)")
	assert.Contains(t, s, "Description: Data with outliers removed")
	assert.Contains(t, s, "    2539,149\n")
	assert.Contains(t, s, "No artifact was published")
	assert.NotContains(t, s, "Output:")
}

func TestRuns(t *testing.T) {
	p, out, _ := newTestPrinter(OutputOptions{})
	p.Runs(nil)
	assert.Contains(t, out.String(), "No runs recorded")

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(2 * time.Second)
	runs := []tracking.RunRecord{{
		ID:         "run-1",
		JobType:    "basic_cleaning",
		Status:     tracking.StatusError,
		StartedAt:  started,
		FinishedAt: &finished,
		Artifacts: []tracking.ArtifactLink{
			{Direction: tracking.DirectionInput, Name: "sample.csv", Version: 1},
			{Direction: tracking.DirectionOutput, Name: "clean_sample.csv", Version: 2},
		},
		ErrorMessage: "publish failed",
	}}

	p, out, _ = newTestPrinter(OutputOptions{Verbose: true})
	p.Runs(runs)
	s := out.String()
	assert.Contains(t, s, "RUN")
	assert.Contains(t, s, "sample.csv:v1")
	assert.Contains(t, s, "clean_sample.csv:v2")
	assert.Contains(t, s, "2s")
	assert.Contains(t, s, "run-1: publish failed")

	p, out, _ = newTestPrinter(OutputOptions{JSON: true})
	p.Runs(nil)
	assert.JSONEq(t, "[]", out.String())
}

func TestRun(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	rec := &tracking.RunRecord{
		ID:         "run-1",
		JobType:    "basic_cleaning",
		Status:     tracking.StatusSuccess,
		StartedAt:  started,
		FinishedAt: &finished,
		Config:     map[string]interface{}{"min_price": 10.0, "input_artifact": "sample.csv:latest"},
		Artifacts: []tracking.ArtifactLink{
			{Direction: tracking.DirectionOutput, Name: "clean_sample.csv", Version: 0, Type: "clean_sample", Digest: "sha256:ab"},
		},
	}

	p, out, _ := newTestPrinter(OutputOptions{})
	p.Run(rec)
	s := out.String()
	assert.Contains(t, s, "Run: run-1")
	assert.Contains(t, s, "Duration: 1.5s")
	assert.Less(t, strings.Index(s, "input_artifact: sample.csv:latest"), strings.Index(s, "min_price: 10"))
	assert.Contains(t, s, "clean_sample.csv:v0 (clean_sample) sha256:ab")

	p, out, _ = newTestPrinter(OutputOptions{JSON: true})
	p.Run(rec)
	var decoded tracking.RunRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.ID)
}

func TestArtifacts(t *testing.T) {
	p, out, _ := newTestPrinter(OutputOptions{})
	p.Artifacts("clean_sample.csv", nil)
	assert.Contains(t, out.String(), "No versions of clean_sample.csv")

	versions := []*artifact.Artifact{
		{Name: "clean_sample.csv", Version: 0, Type: "clean_sample", Size: 120, Digest: "sha256:aa", RunID: "run-1", Description: "first"},
		{Name: "clean_sample.csv", Version: 1, Type: "clean_sample", Size: 98, Digest: "sha256:bb"},
	}
	p, out, _ = newTestPrinter(OutputOptions{Verbose: true})
	p.Artifacts("clean_sample.csv", versions)
	s := out.String()
	assert.Contains(t, s, "VERSION")
	assert.Contains(t, s, "sha256:aa")
	assert.Contains(t, s, "run-1")
	assert.Contains(t, s, "v0: first")

	p, out, _ = newTestPrinter(OutputOptions{JSON: true})
	p.Artifacts("clean_sample.csv", nil)
	assert.JSONEq(t, "[]", out.String())
}

func TestSettingsResult(t *testing.T) {
	p, out, _ := newTestPrinter(OutputOptions{})
	p.SettingsResult(&config.Result{FilePath: "settings.yaml", Format: "yaml"})
	assert.Contains(t, out.String(), "✓ settings.yaml is valid (yaml)")

	p, _, errOut := newTestPrinter(OutputOptions{})
	p.SettingsResult(&config.Result{
		FilePath:    "settings.json",
		ParseErrors: []config.ParseError{{Path: "settings.json", Line: 3, Column: 2, Message: "unexpected }"}},
	})
	assert.Contains(t, errOut.String(), "settings.json:3:2: unexpected }")

	p, _, errOut = newTestPrinter(OutputOptions{})
	p.SettingsResult(&config.Result{
		ValidationErrors: []config.ValidationError{{Path: "/trackingEnabled", Type: "type", Message: "got string, want boolean"}},
	})
	assert.Contains(t, errOut.String(), "/trackingEnabled: got string, want boolean")
	assert.Contains(t, errOut.String(), "Hint: Use --verbose")
}
