package cli

import (
	"fmt"

	"github.com/canectors/basic-cleaning/internal/config"
)

// SettingsResult prints the outcome of validating a settings file.
func (p *Printer) SettingsResult(result *config.Result) {
	if result.IsValid() {
		if !p.Opts.Quiet {
			fmt.Fprintf(p.Out, "✓ %s is valid (%s)\n", result.FilePath, result.Format)
		}
		return
	}
	if len(result.ParseErrors) > 0 {
		p.ParseErrors(result.ParseErrors)
	}
	if len(result.ValidationErrors) > 0 {
		p.ValidationErrors(result.ValidationErrors)
	}
}

// ParseErrors prints parse errors to Err.
func (p *Printer) ParseErrors(errs []config.ParseError) {
	fmt.Fprintln(p.Err, "✗ Parse errors:")
	for _, err := range errs {
		if loc := formatErrorLocation(err.Path, err.Line, err.Column); loc != "" {
			fmt.Fprintf(p.Err, "  %s: %s\n", loc, err.Message)
		} else {
			fmt.Fprintf(p.Err, "  %s\n", err.Message)
		}
		if p.Opts.Verbose && err.Type != "" {
			fmt.Fprintf(p.Err, "    Type: %s\n", err.Type)
		}
	}
}

// formatErrorLocation renders path:line:column.
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}
	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// ValidationErrors prints schema violations to Err.
func (p *Printer) ValidationErrors(errs []config.ValidationError) {
	fmt.Fprintln(p.Err, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if p.Opts.Verbose {
			fmt.Fprintf(p.Err, "  %s:\n", path)
			fmt.Fprintf(p.Err, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(p.Err, "    Keyword: %s\n", err.Type)
			}
			continue
		}
		msg := err.Message
		if len(msg) > 80 {
			msg = msg[:77] + "..."
		}
		fmt.Fprintf(p.Err, "  %s: %s\n", path, msg)
	}
	if !p.Opts.Quiet && !p.Opts.Verbose {
		fmt.Fprintln(p.Err)
		fmt.Fprintln(p.Err, "Hint: Use --verbose for detailed error information")
	}
}
