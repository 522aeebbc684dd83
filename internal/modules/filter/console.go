package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/canectors/basic-cleaning/internal/logger"
)

// MaxLogMessageLength is the maximum length of a single console message (8KB)
const MaxLogMessageLength = 8 * 1024

// jsConsole routes console.log/info/warn/error/debug from scripts to the logger.
type jsConsole struct {
	moduleName string
	recordIdx  int
}

// newJSConsole registers a console object in the runtime.
func newJSConsole(rt *goja.Runtime, moduleName string) (*jsConsole, error) {
	c := &jsConsole{moduleName: moduleName, recordIdx: -1}

	console := rt.NewObject()
	for name, level := range map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	} {
		lvl := level
		fn := func(call goja.FunctionCall) goja.Value {
			c.write(lvl, call.Arguments)
			return goja.Undefined()
		}
		if err := console.Set(name, fn); err != nil {
			return nil, fmt.Errorf("console.Set(%q): %w", name, err)
		}
	}
	if err := rt.Set("console", console); err != nil {
		return nil, fmt.Errorf("runtime.Set(console): %w", err)
	}
	return c, nil
}

// SetRecordIndex sets the row index attached to console output.
func (c *jsConsole) SetRecordIndex(idx int) {
	c.recordIdx = idx
}

// ClearRecordIndex detaches the row index.
func (c *jsConsole) ClearRecordIndex() {
	c.recordIdx = -1
}

func (c *jsConsole) write(level slog.Level, args []goja.Value) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, formatJSValue(a))
	}
	msg := strings.Join(parts, " ")
	if len(msg) > MaxLogMessageLength {
		msg = msg[:MaxLogMessageLength] + "...(truncated)"
	}

	attrs := []any{
		slog.String("module_type", "script"),
		slog.String("step", c.moduleName),
	}
	if c.recordIdx >= 0 {
		attrs = append(attrs, slog.Int("record_index", c.recordIdx))
	}
	logger.Logger.Log(context.Background(), level, msg, attrs...)
}

// formatJSValue prints primitives as-is and objects as JSON.
func formatJSValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if _, ok := v.(*goja.Object); !ok {
		return v.String()
	}
	data, err := json.Marshal(v.Export())
	if err != nil {
		return v.String()
	}
	return string(data)
}
