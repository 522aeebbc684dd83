// Package cleaning provides public types for the basic-cleaning step.
// This package is intended to be importable by pipeline orchestrators that
// need to drive the step or inspect its results.
package cleaning

import "time"

// Params holds the values supplied on the command line for one run.
// They are recorded verbatim against the tracked run.
type Params struct {
	// InputArtifact is the reference of the artifact to clean (e.g. "sample.csv:latest")
	InputArtifact string `json:"input_artifact"`

	// OutputArtifact is the name under which the cleaned table is published
	OutputArtifact string `json:"output_artifact"`

	// OutputType is the artifact type tag of the published table
	OutputType string `json:"output_type"`

	// OutputDescription is the human-readable description of the published table
	OutputDescription string `json:"output_description"`

	// MinPrice is the lower inclusive price bound
	MinPrice float64 `json:"min_price"`

	// MaxPrice is the upper inclusive price bound
	MaxPrice float64 `json:"max_price"`

	// MaxMinimumNights is the upper inclusive bound of minimum_nights
	MaxMinimumNights int `json:"max_minimum_nights"`
}

// AsMap returns the parameters keyed by their command-line names.
func (p Params) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_artifact":     p.InputArtifact,
		"output_artifact":    p.OutputArtifact,
		"output_type":        p.OutputType,
		"output_description": p.OutputDescription,
		"min_price":          p.MinPrice,
		"max_price":          p.MaxPrice,
		"max_minimum_nights": p.MaxMinimumNights,
	}
}

// ModuleConfig represents the configuration of an additional filter module.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "condition", "script")
	Type string `json:"type" yaml:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config" yaml:"config"`
}

// ExecutionResult represents the result of one cleaning run.
type ExecutionResult struct {
	// RunID is the identifier assigned by the run tracker
	RunID string `json:"runId"`

	// JobType is the tracker job type of the run
	JobType string `json:"jobType"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// RowsInput is the number of rows read from the input artifact
	RowsInput int `json:"rowsInput"`

	// RowsOutput is the number of rows written to the output artifact
	RowsOutput int `json:"rowsOutput"`

	// Steps holds one report per filter step, in execution order
	Steps []StepReport `json:"steps,omitempty"`

	// Input describes the consumed artifact version
	Input *ArtifactSummary `json:"input,omitempty"`

	// Output describes the produced artifact version (nil in dry-run mode)
	Output *ArtifactSummary `json:"output,omitempty"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`

	// DryRunPreview describes what would have been published (only set in dry-run mode)
	DryRunPreview *PublishPreview `json:"dryRunPreview,omitempty"`
}

// StepReport records the effect of a single filter step.
type StepReport struct {
	Name     string        `json:"name"`
	RowsIn   int           `json:"rowsIn"`
	RowsOut  int           `json:"rowsOut"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration"`
}

// ArtifactSummary identifies one artifact version.
type ArtifactSummary struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	Type    string `json:"type"`
	Digest  string `json:"digest"`
	Size    int64  `json:"size"`
}

// PublishPreview contains what a publish call would have sent.
type PublishPreview struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	FileName    string   `json:"fileName"`
	Columns     []string `json:"columns"`
	RowCount    int      `json:"rowCount"`
	// SamplePreview holds the header and first rows in CSV form
	SamplePreview string `json:"samplePreview"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Stage is the stage where the error occurred (input, filter, output)
	Stage string `json:"stage,omitempty"`

	// Category is the error classification (retrieval, schema, type, publish, ...)
	Category string `json:"category,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
