package filter

import (
	"context"
	"log/slog"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/table"
)

// StubModule passes tables through unchanged. Used to exercise the executor
// without cleaning logic.
type StubModule struct {
	ModuleType string
	Index      int
}

// NewStub creates a new stub filter module.
func NewStub(moduleType string, index int) *StubModule {
	return &StubModule{ModuleType: moduleType, Index: index}
}

// Name returns the module type.
func (m *StubModule) Name() string { return m.ModuleType }

// Process returns t unchanged.
func (m *StubModule) Process(_ context.Context, t *table.Table) (*table.Table, error) {
	logger.Debug("stub filter passing table through",
		slog.String("type", m.ModuleType),
		slog.Int("index", m.Index),
		slog.Int("records", t.Len()))
	return t, nil
}

var _ Module = (*StubModule)(nil)
