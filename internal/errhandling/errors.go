// Package errhandling provides error types and classification for the cleaning step.
// Every failure of a run is fatal: there is no retry and no partial output.
// The category decides how the failure is reported and which exit code the CLI returns.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/table"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryConfiguration represents invalid command-line values or settings.
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryRetrieval represents failures fetching the input artifact
	// (unknown name or version, unreadable store).
	CategoryRetrieval ErrorCategory = "retrieval"

	// CategorySchema represents a table missing a required column or with a malformed layout.
	CategorySchema ErrorCategory = "schema"

	// CategoryType represents a non-numeric value in a numeric column.
	CategoryType ErrorCategory = "type"

	// CategoryPublish represents failures writing or publishing the output artifact.
	CategoryPublish ErrorCategory = "publish"

	// CategoryTracking represents failures of the run tracker.
	CategoryTracking ErrorCategory = "tracking"

	// CategoryIO represents local filesystem failures outside of the artifact store.
	CategoryIO ErrorCategory = "io"

	// CategoryCanceled represents a run interrupted by its context.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.OriginalErr != nil && e.Message != e.OriginalErr.Error() {
		return fmt.Sprintf("%s error: %s: %v", e.Category, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as-is; known domain errors are
// mapped to their category; everything else is CategoryUnknown.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Category: CategoryUnknown, Message: "nil error"}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var missing *table.MissingColumnError
	if errors.As(err, &missing) {
		return NewSchemaError(missing.Error(), err)
	}

	var typeErr *cleaner.TypeError
	if errors.As(err, &typeErr) {
		return NewTypeError(typeErr.Error(), err)
	}

	if errors.Is(err, cleaner.ErrInvalidConfig) {
		return NewConfigurationError(err.Error(), err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Category: CategoryCanceled, Message: err.Error(), OriginalErr: err}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return NewIOError(err.Error(), err)
	}

	return &ClassifiedError{Category: CategoryUnknown, Message: err.Error(), OriginalErr: err}
}

// IsFatal returns true for every non-nil error. Runs are never retried.
func IsFatal(err error) bool {
	return err != nil
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return err != nil && GetErrorCategory(err) == CategoryConfiguration
}

// NewConfigurationError creates a ClassifiedError for configuration errors.
func NewConfigurationError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryConfiguration, message, originalErr)
}

// NewRetrievalError creates a ClassifiedError for input artifact retrieval errors.
func NewRetrievalError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryRetrieval, message, originalErr)
}

// NewSchemaError creates a ClassifiedError for schema errors.
func NewSchemaError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategorySchema, message, originalErr)
}

// NewTypeError creates a ClassifiedError for type errors.
func NewTypeError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryType, message, originalErr)
}

// NewPublishError creates a ClassifiedError for output artifact errors.
func NewPublishError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryPublish, message, originalErr)
}

// NewTrackingError creates a ClassifiedError for run tracker errors.
func NewTrackingError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryTracking, message, originalErr)
}

// NewIOError creates a ClassifiedError for local filesystem errors.
func NewIOError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryIO, message, originalErr)
}

func newClassified(category ErrorCategory, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    category,
		Message:     message,
		OriginalErr: originalErr,
	}
}
