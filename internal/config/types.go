// Package config loads the settings of the cleaning step from built-in
// defaults, an optional JSON or YAML settings file and the environment.
package config

import (
	"fmt"
	"strings"
)

// Parse error types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// Supported settings file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseError is a settings file syntax or read failure with its location.
type ParseError struct {
	Path    string
	Line    int // 1-based, 0 if unknown
	Column  int // 1-based, 0 if unknown
	Offset  int64
	Message string
	Type    string
}

func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationError is a schema violation located by JSON pointer,
// e.g. "/extraFilters/0/type".
type ValidationError struct {
	Path    string
	Type    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result is the outcome of parsing and validating a settings file.
type Result struct {
	Data             map[string]interface{}
	ParseErrors      []ParseError
	ValidationErrors []ValidationError
	FilePath         string
	Format           string
}

// IsValid reports whether the file parsed and matched the schema.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parse errors followed by validation errors.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}

// Err joins all errors into one, or returns nil when the result is valid.
func (r *Result) Err() error {
	if r.IsValid() {
		return nil
	}
	msgs := make([]string, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.AllErrors() {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("invalid settings file: %s", strings.Join(msgs, "; "))
}
