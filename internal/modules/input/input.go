// Package input provides implementations for input modules.
// Input modules are responsible for producing the table to clean.
package input

import (
	"context"

	"github.com/canectors/basic-cleaning/internal/table"
)

// Module represents an input module that produces a table.
type Module interface {
	// Fetch retrieves the table from its source.
	// The context can be used to cancel long-running operations.
	Fetch(ctx context.Context) (*table.Table, error)
	// Close releases any resources held by the module.
	Close() error
}
