package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads, parses and validates a settings file. The format comes
// from the extension (.json, .yaml, .yml) or, failing that, the content.
func ParseFile(path string) *Result {
	result := &Result{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseString(string(content), DetectFormat(path))
	parsed.FilePath = path
	for i := range parsed.ParseErrors {
		if parsed.ParseErrors[i].Path == "" {
			parsed.ParseErrors[i].Path = path
		}
	}
	return parsed
}

// ParseString parses and validates settings content. An empty format is
// detected from the content.
func ParseString(content, format string) *Result {
	result := &Result{Format: format}

	if format == "" {
		switch {
		case IsJSON(content):
			format = FormatJSON
		case IsYAML(content):
			format = FormatYAML
		default:
			result.ParseErrors = append(result.ParseErrors, ParseError{
				Message: "unable to detect settings format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			})
			return result
		}
		result.Format = format
	}

	var (
		data     map[string]interface{}
		parseErr *ParseError
	)
	switch format {
	case FormatJSON:
		data, parseErr = parseJSON(content)
	case FormatYAML:
		data, parseErr = parseYAML(content)
	default:
		parseErr = &ParseError{Message: fmt.Sprintf("unsupported format: %s", format), Type: ErrorTypeFormat}
	}
	if parseErr != nil {
		result.ParseErrors = append(result.ParseErrors, *parseErr)
		return result
	}

	result.Data = data
	result.ValidationErrors = Validate(data)
	return result
}

// DetectFormat maps a file extension to a format, or "" when unknown.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON reports whether content looks like a JSON document.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML reports whether content parses as a non-empty YAML document.
// JSON is valid YAML, so this is true for JSON content too.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	err := yaml.Unmarshal([]byte(content), &data)
	return err == nil && data != nil
}

func parseJSON(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected JSON object", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			pe.Offset = syntaxErr.Offset
			pe.Line, pe.Column = offsetToLineColumn(content, syntaxErr.Offset)
			pe.Message = fmt.Sprintf("JSON syntax error: %s", syntaxErr.Error())
		}
		return nil, &pe
	}
	return asObject(data, "JSON object")
}

func parseYAML(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected YAML document", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			pe.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
		}
		// yaml.v3 reports "yaml: line N: ..."
		var line int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
			pe.Line = line
		}
		return nil, &pe
	}

	// Round-trip through JSON so numbers and nested maps have the same
	// shapes for both formats.
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("unsupported YAML value: %v", err), Type: ErrorTypeFormat}
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, &ParseError{Message: err.Error(), Type: ErrorTypeFormat}
	}
	return asObject(normalized, "YAML mapping")
}

func asObject(data interface{}, want string) (map[string]interface{}, *ParseError) {
	if data == nil {
		return nil, &ParseError{Message: fmt.Sprintf("expected %s, got null", want), Type: ErrorTypeFormat}
	}
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{Message: fmt.Sprintf("expected %s, got %T", want, data), Type: ErrorTypeFormat}
	}
	return m, nil
}

// offsetToLineColumn converts a byte offset to 1-based line and column.
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
