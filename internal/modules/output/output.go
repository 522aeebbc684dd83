// Package output provides implementations for output modules.
// Output modules are responsible for handing the cleaned table to its destination.
package output

import (
	"context"

	"github.com/canectors/basic-cleaning/internal/table"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// DefaultPreviewRows is the number of rows included in a dry-run sample.
const DefaultPreviewRows = 5

// Module represents an output module that sends a table to a destination.
type Module interface {
	// Send hands the table to the destination system.
	// Returns the number of rows successfully sent and any error.
	Send(ctx context.Context, t *table.Table) (int, error)

	// Close releases any resources held by the module.
	Close() error
}

// PreviewOptions controls what a dry-run preview contains.
type PreviewOptions struct {
	// SampleRows is the number of rows rendered in the sample (default DefaultPreviewRows)
	SampleRows int
}

// PreviewableModule is implemented by output modules that can describe what
// Send would do without side effects. Used by dry-run mode.
type PreviewableModule interface {
	Module
	PreviewPublish(t *table.Table, opts PreviewOptions) (*cleaning.PublishPreview, error)
}
