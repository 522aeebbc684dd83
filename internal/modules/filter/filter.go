// Package filter provides implementations for filter modules.
// Filter modules take a table and return a new table with rows removed or
// cells converted. They never add or remove columns.
package filter

import (
	"context"
	"log/slog"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/table"
)

// Error handling modes shared by the expression-based modules.
const (
	// OnErrorFail aborts the run on the first row error (default)
	OnErrorFail = "fail"
	// OnErrorSkip drops the row that caused the error
	OnErrorSkip = "skip"
	// OnErrorLog logs the error and keeps the row unchanged
	OnErrorLog = "log"
)

// Module represents a filter module that transforms a table.
type Module interface {
	// Name identifies the step in reports, logs and metrics.
	Name() string
	// Process returns the filtered table. The input table must not be modified.
	Process(ctx context.Context, t *table.Table) (*table.Table, error)
}

// normalizeOnError returns a valid onError mode, defaulting to fail.
func normalizeOnError(module, onError string) string {
	switch onError {
	case "":
		return OnErrorFail
	case OnErrorFail, OnErrorSkip, OnErrorLog:
		return onError
	default:
		logger.Warn("invalid onError value; defaulting to fail",
			slog.String("module_type", module),
			slog.String("on_error", onError),
		)
		return OnErrorFail
	}
}
