package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/pathutil"
	"github.com/canectors/basic-cleaning/internal/table"
)

// Error codes for script module
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingTransform     = "MISSING_TRANSFORM"
	ErrCodeExecutionFailed      = "EXECUTION_FAILED"
	ErrCodeInvalidResult        = "INVALID_RESULT"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB)
const MaxScriptLength = 100 * 1024

// Common errors for script module
var (
	ErrScriptEmpty          = errors.New("script cannot be empty")
	ErrScriptTooLong        = errors.New("script exceeds maximum length")
	ErrMissingTransformFunc = errors.New("transform function not found in script")
)

// ScriptConfig represents the configuration for a script filter module.
// Either Script or ScriptFile must be provided (but not both).
type ScriptConfig struct {
	// Script is inline JavaScript defining transform(row)
	Script string `json:"script,omitempty"`
	// ScriptFile is a path to a JavaScript file defining transform(row)
	ScriptFile string `json:"scriptFile,omitempty"`
	// Name overrides the step name (default "script")
	Name string `json:"name,omitempty"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ScriptModule runs a JavaScript transform(row) function on every row using goja.
//
// transform receives the row as an object keyed by column. It returns the row
// to keep (possibly with changed values) or null, undefined or false to drop
// it. The returned object must have exactly the table's columns.
//
// Goja runtimes are not goroutine-safe; Process must not be called
// concurrently on the same module.
type ScriptModule struct {
	name        string
	onError     string
	runtime     *goja.Runtime
	transformFn goja.Callable
	console     *jsConsole
	interruptMu sync.Mutex
}

// ScriptError carries structured context for script failures.
type ScriptError struct {
	Code        string
	Message     string
	RecordIndex int
	Err         error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(code, message string, recordIdx int, err error) *ScriptError {
	return &ScriptError{Code: code, Message: message, RecordIndex: recordIdx, Err: err}
}

// NewScriptFromConfig compiles the script and resolves its transform function.
func NewScriptFromConfig(config ScriptConfig) (*ScriptModule, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, newScriptError(ErrCodeScriptEmpty, "script cannot be empty", -1, ErrScriptEmpty)
	}
	if len(source) > MaxScriptLength {
		return nil, newScriptError(ErrCodeScriptTooLong,
			fmt.Sprintf("script is %d bytes, maximum is %d", len(source), MaxScriptLength), -1, ErrScriptTooLong)
	}

	name := config.Name
	if name == "" {
		name = "script"
	}

	rt := goja.New()
	console, err := newJSConsole(rt, name)
	if err != nil {
		return nil, err
	}
	if _, err := rt.RunString(source); err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), -1, err)
	}

	fnVal := rt.Get("transform")
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil, newScriptError(ErrCodeMissingTransform, "transform function not found in script", -1, ErrMissingTransformFunc)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, newScriptError(ErrCodeMissingTransform, "transform is not a function", -1, ErrMissingTransformFunc)
	}

	onError := normalizeOnError("script", config.OnError)
	logger.Debug("script module initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", onError),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	return &ScriptModule{
		name:        name,
		onError:     onError,
		runtime:     rt,
		transformFn: fn,
		console:     console,
	}, nil
}

// ParseScriptConfig reads a script configuration from raw settings.
func ParseScriptConfig(cfg map[string]interface{}) (ScriptConfig, error) {
	var config ScriptConfig
	script, hasScript := cfg["script"].(string)
	scriptFile, hasScriptFile := cfg["scriptFile"].(string)
	switch {
	case hasScript && hasScriptFile:
		return config, fmt.Errorf("script: cannot specify both 'script' and 'scriptFile'")
	case !hasScript && !hasScriptFile:
		return config, fmt.Errorf("script: either 'script' or 'scriptFile' is required")
	}
	config.Script = script
	config.ScriptFile = scriptFile
	config.Name, _ = cfg["name"].(string)
	config.OnError, _ = cfg["onError"].(string)
	return config, nil
}

func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", fmt.Errorf("script: cannot specify both 'script' and 'scriptFile'")
	}
	if config.ScriptFile == "" {
		return config.Script, nil
	}

	if err := pathutil.ValidateFilePath(config.ScriptFile); err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("invalid scriptFile: %v", err), -1, err)
	}
	f, err := os.Open(config.ScriptFile)
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("opening script file %q: %v", config.ScriptFile, err), -1, err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, MaxScriptLength+1))
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("reading script file %q: %v", config.ScriptFile, err), -1, err)
	}
	return string(content), nil
}

// Name returns the step name.
func (m *ScriptModule) Name() string { return m.name }

// Process runs transform on every row.
func (m *ScriptModule) Process(ctx context.Context, t *table.Table) (*table.Table, error) {
	startTime := time.Now()
	out := &table.Table{Columns: t.Columns, Rows: make([]table.Row, 0, len(t.Rows))}
	errorCount := 0

	for i, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, keep, err := m.processRow(ctx, t.Columns, row, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errorCount++
			switch m.onError {
			case OnErrorSkip:
				logger.Warn("skipping row due to script error",
					slog.String("module_type", "script"),
					slog.Int("record_index", i),
					slog.String("error", err.Error()),
				)
				continue
			case OnErrorLog:
				logger.Error("script error (keeping row)",
					slog.String("module_type", "script"),
					slog.Int("record_index", i),
					slog.String("error", err.Error()),
				)
				out.Rows = append(out.Rows, row)
				continue
			default:
				return nil, err
			}
		}
		if keep {
			out.Rows = append(out.Rows, result)
		}
	}

	logger.Debug("filter processing completed",
		slog.String("module_type", "script"),
		slog.Int("input_records", t.Len()),
		slog.Int("output_records", out.Len()),
		slog.Int("error_count", errorCount),
		slog.Duration("duration", time.Since(startTime)),
	)
	return out, nil
}

// processRow calls transform with interruption on context cancellation.
func (m *ScriptModule) processRow(ctx context.Context, columns []string, row table.Row, idx int) (table.Row, bool, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.interruptMu.Lock()
			m.runtime.Interrupt(ctx.Err().Error())
			m.interruptMu.Unlock()
		case <-done:
		}
	}()

	m.console.SetRecordIndex(idx)
	defer m.console.ClearRecordIndex()

	jsRow := m.runtime.NewObject()
	for _, col := range columns {
		if err := jsRow.Set(col, row[col]); err != nil {
			return nil, false, newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("row %d: setting %q: %v", idx, col, err), idx, err)
		}
	}

	val, err := m.transformFn(goja.Undefined(), jsRow)
	m.interruptMu.Lock()
	m.runtime.ClearInterrupt()
	m.interruptMu.Unlock()
	if err != nil {
		return nil, false, newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script failed at row %d: %v", idx, err), idx, err)
	}

	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, false, nil
	}
	exported := val.Export()
	if b, ok := exported.(bool); ok {
		if b {
			return row, true, nil
		}
		return nil, false, nil
	}
	obj, ok := exported.(map[string]interface{})
	if !ok {
		return nil, false, newScriptError(ErrCodeInvalidResult,
			fmt.Sprintf("row %d: transform returned %T, want object, boolean or null", idx, exported), idx, nil)
	}

	result := make(table.Row, len(columns))
	for _, col := range columns {
		v, present := obj[col]
		if !present {
			return nil, false, newScriptError(ErrCodeInvalidResult,
				fmt.Sprintf("row %d: transform removed column %q", idx, col), idx, nil)
		}
		result[col] = m.normalizeValue(v)
	}
	if len(obj) != len(columns) {
		return nil, false, newScriptError(ErrCodeInvalidResult,
			fmt.Sprintf("row %d: transform added columns %v", idx, extraKeys(obj, row)), idx, nil)
	}
	return result, true, nil
}

// normalizeValue maps exported JavaScript values back to cell values.
// Numbers become strings formatted the way JavaScript prints them.
func (m *ScriptModule) normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return m.runtime.ToValue(val).String()
	default:
		return val
	}
}

func extraKeys(obj map[string]interface{}, row table.Row) []string {
	var extra []string
	for k := range obj {
		if _, ok := row[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

var _ Module = (*ScriptModule)(nil)
