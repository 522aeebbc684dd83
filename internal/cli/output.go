// Package cli formats command results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/tracking"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
	JSON    bool
}

// Printer writes results to Out and failures to Err.
type Printer struct {
	Out  io.Writer
	Err  io.Writer
	Opts OutputOptions
}

// NewPrinter creates a printer.
func NewPrinter(out, errOut io.Writer, opts OutputOptions) *Printer {
	return &Printer{Out: out, Err: errOut, Opts: opts}
}

// ExecutionResult displays the outcome of a cleaning run.
func (p *Printer) ExecutionResult(result *cleaning.ExecutionResult, err error) {
	if p.Opts.JSON && result != nil {
		p.writeJSON(result)
		return
	}
	if result == nil {
		fmt.Fprintln(p.Err, "✗ No execution result available")
		if err != nil {
			fmt.Fprintf(p.Err, "  Error: %v\n", err)
		}
		return
	}

	if err != nil {
		fmt.Fprintln(p.Err, "✗ Cleaning failed")
		if result.Error != nil {
			if result.Error.Stage != "" {
				fmt.Fprintf(p.Err, "  Stage: %s\n", result.Error.Stage)
			}
			fmt.Fprintf(p.Err, "  Error: %s\n", result.Error.Message)
			if p.Opts.Verbose {
				fmt.Fprintf(p.Err, "  Code: %s\n", result.Error.Code)
				if result.Error.Category != "" {
					fmt.Fprintf(p.Err, "  Category: %s\n", result.Error.Category)
				}
			}
		} else {
			fmt.Fprintf(p.Err, "  Error: %v\n", err)
		}
		if result.RunID != "" {
			fmt.Fprintf(p.Err, "  Run: %s\n", result.RunID)
		}
		return
	}

	if p.Opts.Quiet {
		return
	}

	fmt.Fprintln(p.Out, "✓ Cleaning completed successfully")
	if result.RunID != "" {
		fmt.Fprintf(p.Out, "  Run: %s\n", result.RunID)
	}
	if result.Input != nil {
		fmt.Fprintf(p.Out, "  Input: %s\n", artifactLabel(result.Input))
	}
	fmt.Fprintf(p.Out, "  Rows: %d in, %d out (%d removed)\n",
		result.RowsInput, result.RowsOutput, result.RowsInput-result.RowsOutput)
	if p.Opts.Verbose {
		for _, s := range result.Steps {
			fmt.Fprintf(p.Out, "    %-18s %6d -> %-6d (-%d) %v\n", s.Name, s.RowsIn, s.RowsOut, s.Removed, s.Duration)
		}
		fmt.Fprintf(p.Out, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
	if result.Output != nil {
		fmt.Fprintf(p.Out, "  Output: %s\n", artifactLabel(result.Output))
	}

	if p.Opts.DryRun && result.DryRunPreview != nil {
		p.DryRunPreview(result.DryRunPreview)
	}
}

// DryRunPreview displays what would have been published.
func (p *Printer) DryRunPreview(preview *cleaning.PublishPreview) {
	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, "Dry-run preview (what would have been published):")
	fmt.Fprintf(p.Out, "  Artifact: %s (%s)\n", preview.Name, preview.Type)
	if preview.Description != "" {
		fmt.Fprintf(p.Out, "  Description: %s\n", preview.Description)
	}
	fmt.Fprintf(p.Out, "  File: %s\n", preview.FileName)
	fmt.Fprintf(p.Out, "  Rows: %d\n", preview.RowCount)
	if preview.SamplePreview != "" {
		fmt.Fprintln(p.Out, "  Sample:")
		for _, line := range splitLines(preview.SamplePreview) {
			fmt.Fprintf(p.Out, "    %s\n", line)
		}
	}
	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, "No artifact was published (dry-run mode)")
}

// Runs lists tracked runs, newest first, with their linked artifacts.
func (p *Printer) Runs(runs []tracking.RunRecord) {
	if p.Opts.JSON {
		if runs == nil {
			runs = []tracking.RunRecord{}
		}
		p.writeJSON(runs)
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(p.Out, "No runs recorded")
		return
	}

	tw := tabwriter.NewWriter(p.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tJOB\tSTATUS\tSTARTED\tDURATION\tINPUT\tOUTPUT")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.JobType, r.Status,
			r.StartedAt.Local().Format(time.DateTime),
			formatDuration(r),
			links(r, tracking.DirectionInput),
			links(r, tracking.DirectionOutput))
	}
	_ = tw.Flush()

	if p.Opts.Verbose {
		for i := range runs {
			if runs[i].ErrorMessage != "" {
				fmt.Fprintf(p.Out, "%s: %s\n", runs[i].ID, runs[i].ErrorMessage)
			}
		}
	}
}

// Run prints one tracked run with its parameters and artifact links.
func (p *Printer) Run(r *tracking.RunRecord) {
	if p.Opts.JSON {
		p.writeJSON(r)
		return
	}
	fmt.Fprintf(p.Out, "Run: %s\n", r.ID)
	fmt.Fprintf(p.Out, "Job: %s\n", r.JobType)
	fmt.Fprintf(p.Out, "Status: %s\n", r.Status)
	fmt.Fprintf(p.Out, "Started: %s\n", r.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(p.Out, "Duration: %s\n", formatDuration(r))
	if r.ErrorMessage != "" {
		fmt.Fprintf(p.Out, "Error: %s\n", r.ErrorMessage)
	}

	if len(r.Config) > 0 {
		keys := make([]string, 0, len(r.Config))
		for k := range r.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(p.Out, "Config:")
		for _, k := range keys {
			fmt.Fprintf(p.Out, "  %s: %v\n", k, r.Config[k])
		}
	}

	if len(r.Artifacts) > 0 {
		fmt.Fprintln(p.Out, "Artifacts:")
		for _, l := range r.Artifacts {
			fmt.Fprintf(p.Out, "  %-6s  %s:v%d (%s) %s\n", l.Direction, l.Name, l.Version, l.Type, l.Digest)
		}
	}
}

// Artifacts lists the versions of one artifact, oldest first.
func (p *Printer) Artifacts(name string, versions []*artifact.Artifact) {
	if p.Opts.JSON {
		if versions == nil {
			versions = []*artifact.Artifact{}
		}
		p.writeJSON(versions)
		return
	}
	if len(versions) == 0 {
		fmt.Fprintf(p.Out, "No versions of %s\n", name)
		return
	}

	tw := tabwriter.NewWriter(p.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tTYPE\tSIZE\tCREATED\tRUN\tDIGEST")
	for _, a := range versions {
		run := a.RunID
		if run == "" {
			run = "-"
		}
		fmt.Fprintf(tw, "v%d\t%s\t%d\t%s\t%s\t%s\n",
			a.Version, a.Type, a.Size,
			a.CreatedAt.Local().Format(time.DateTime),
			run, a.Digest)
	}
	_ = tw.Flush()
	if p.Opts.Verbose {
		for _, a := range versions {
			if a.Description != "" {
				fmt.Fprintf(p.Out, "v%d: %s\n", a.Version, a.Description)
			}
		}
	}
}

func (p *Printer) writeJSON(v interface{}) {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(p.Err, "✗ encoding JSON output: %v\n", err)
	}
}

func artifactLabel(a *cleaning.ArtifactSummary) string {
	label := fmt.Sprintf("%s:v%d", a.Name, a.Version)
	if a.Type != "" {
		label += " (" + a.Type + ")"
	}
	return label
}

func links(r *tracking.RunRecord, direction string) string {
	var out []string
	for _, l := range r.Artifacts {
		if l.Direction == direction {
			out = append(out, fmt.Sprintf("%s:v%d", l.Name, l.Version))
		}
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}

func formatDuration(r *tracking.RunRecord) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
