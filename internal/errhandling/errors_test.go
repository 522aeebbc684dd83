package errhandling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/table"
)

func TestErrorCategory(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{CategoryConfiguration, "configuration"},
		{CategoryRetrieval, "retrieval"},
		{CategorySchema, "schema"},
		{CategoryType, "type"},
		{CategoryPublish, "publish"},
		{CategoryTracking, "tracking"},
		{CategoryIO, "io"},
		{CategoryCanceled, "canceled"},
		{CategoryUnknown, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.category))
		})
	}
}

func TestClassifiedError(t *testing.T) {
	t.Run("message includes category and cause", func(t *testing.T) {
		err := NewRetrievalError("fetching sample.csv:latest", errors.New("no such artifact"))
		assert.Equal(t, "retrieval error: fetching sample.csv:latest: no such artifact", err.Error())
	})

	t.Run("message is not repeated", func(t *testing.T) {
		cause := errors.New("boom")
		err := NewIOError(cause.Error(), cause)
		assert.Equal(t, "io error: boom", err.Error())
	})

	t.Run("unwrap reaches the original error", func(t *testing.T) {
		sentinel := errors.New("sentinel")
		err := fmt.Errorf("outer: %w", NewPublishError("publishing", sentinel))
		assert.ErrorIs(t, err, sentinel)

		var ce *ClassifiedError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, CategoryPublish, ce.Category)
	})
}

func TestClassifyError(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, CategoryUnknown},
		{"already classified", NewTrackingError("x", nil), CategoryTracking},
		{"wrapped classified", fmt.Errorf("run: %w", NewRetrievalError("x", nil)), CategoryRetrieval},
		{"missing column", fmt.Errorf("step: %w", &table.MissingColumnError{Columns: []string{"price"}}), CategorySchema},
		{"type error", &cleaner.TypeError{Column: "price", Row: 3, Value: "$5"}, CategoryType},
		{"invalid config", fmt.Errorf("%w: bad", cleaner.ErrInvalidConfig), CategoryConfiguration},
		{"canceled", context.Canceled, CategoryCanceled},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), CategoryCanceled},
		{"path error", statErr, CategoryIO},
		{"plain", errors.New("something"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err).Category)
			assert.Equal(t, tt.want, GetErrorCategory(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(errors.New("x")))
	assert.True(t, IsFatal(NewPublishError("x", nil)))
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(NewConfigurationError("bad flag", nil)))
	assert.False(t, IsConfigurationError(NewSchemaError("missing", nil)))
	assert.False(t, IsConfigurationError(nil))
}
