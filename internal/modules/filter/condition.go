package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/table"
)

// Error codes for condition module
const (
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeEvaluationFailed  = "EVALUATION_FAILED"
	ErrCodeNotBoolean        = "NOT_BOOLEAN"
)

// Common errors for condition module
var (
	// ErrEmptyExpression is returned when no expression is configured
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid
	ErrInvalidExpression = errors.New("invalid expression syntax")
)

// ConditionConfig represents the configuration for a condition filter module.
type ConditionConfig struct {
	// Expression must evaluate to a boolean; rows where it is false are dropped (required)
	Expression string `json:"expression"`
	// Name overrides the step name (default "condition")
	Name string `json:"name,omitempty"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ConditionModule keeps the rows for which an expr-lang expression is true.
//
// Each column is a variable. Numeric cells are exposed as float64, missing
// cells as nil, dates as time.Time, and anything else as its raw string, so
// "price > 100 && room_type == 'Private room'" works on raw CSV values.
type ConditionModule struct {
	name       string
	expression string
	onError    string
	program    *vm.Program
}

// ConditionError carries structured context for condition evaluation failures.
type ConditionError struct {
	Code        string
	Message     string
	Expression  string
	RecordIndex int
}

func (e *ConditionError) Error() string {
	return e.Message
}

// NewConditionFromConfig compiles the expression.
func NewConditionFromConfig(config ConditionConfig) (*ConditionModule, error) {
	expression := strings.TrimSpace(config.Expression)
	if expression == "" {
		return nil, ErrEmptyExpression
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	name := config.Name
	if name == "" {
		name = "condition"
	}
	onError := normalizeOnError("condition", config.OnError)

	logger.Debug("condition module initialized",
		slog.String("expression", expression),
		slog.String("on_error", onError),
	)

	return &ConditionModule{
		name:       name,
		expression: expression,
		onError:    onError,
		program:    program,
	}, nil
}

// ParseConditionConfig reads a condition configuration from raw settings.
func ParseConditionConfig(cfg map[string]interface{}) (ConditionConfig, error) {
	var config ConditionConfig
	expression, ok := cfg["expression"].(string)
	if !ok {
		return config, fmt.Errorf("condition: 'expression' is required and must be a string")
	}
	config.Expression = expression
	config.Name, _ = cfg["name"].(string)
	config.OnError, _ = cfg["onError"].(string)
	return config, nil
}

// Name returns the step name.
func (m *ConditionModule) Name() string { return m.name }

// Process evaluates the expression for each row.
func (m *ConditionModule) Process(ctx context.Context, t *table.Table) (*table.Table, error) {
	startTime := time.Now()
	errorCount := 0

	out, err := t.Filter(func(i int, row table.Row) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		keep, evalErr := m.evaluate(row, i)
		if evalErr == nil {
			return keep, nil
		}

		errorCount++
		switch m.onError {
		case OnErrorSkip:
			logger.Warn("skipping row due to condition error",
				slog.String("module_type", "condition"),
				slog.Int("record_index", i),
				slog.String("error", evalErr.Error()),
			)
			return false, nil
		case OnErrorLog:
			logger.Error("condition error (keeping row)",
				slog.String("module_type", "condition"),
				slog.Int("record_index", i),
				slog.String("error", evalErr.Error()),
			)
			return true, nil
		default:
			return false, evalErr
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("filter processing completed",
		slog.String("module_type", "condition"),
		slog.Int("input_records", t.Len()),
		slog.Int("output_records", out.Len()),
		slog.Int("error_count", errorCount),
		slog.Duration("duration", time.Since(startTime)),
	)
	return out, nil
}

func (m *ConditionModule) evaluate(row table.Row, idx int) (bool, error) {
	result, err := expr.Run(m.program, expressionEnv(row))
	if err != nil {
		return false, &ConditionError{
			Code:        ErrCodeEvaluationFailed,
			Message:     fmt.Sprintf("evaluating %q on row %d: %v", m.expression, idx, err),
			Expression:  m.expression,
			RecordIndex: idx,
		}
	}
	keep, ok := result.(bool)
	if !ok {
		return false, &ConditionError{
			Code:        ErrCodeNotBoolean,
			Message:     fmt.Sprintf("expression %q returned %T on row %d, want bool", m.expression, result, idx),
			Expression:  m.expression,
			RecordIndex: idx,
		}
	}
	return keep, nil
}

// expressionEnv converts raw cells into typed variables.
func expressionEnv(row table.Row) map[string]interface{} {
	env := make(map[string]interface{}, len(row))
	for k, v := range row {
		switch val := v.(type) {
		case string:
			if cleaner.IsMissing(val) {
				env[k] = nil
				continue
			}
			if n, ok, err := cleaner.ToNumber(val); err == nil && ok {
				env[k] = n
				continue
			}
			env[k] = val
		default:
			env[k] = val
		}
	}
	return env
}

var _ Module = (*ConditionModule)(nil)
