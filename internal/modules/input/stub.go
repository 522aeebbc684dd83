package input

import (
	"context"
	"log/slog"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/table"
)

// StubModule returns a fixed table. It is used to exercise the executor
// without an artifact store.
type StubModule struct {
	ModuleType string
	Table      *table.Table
	Err        error
	Closed     bool
}

// NewStub creates a stub input returning t.
func NewStub(moduleType string, t *table.Table) *StubModule {
	return &StubModule{ModuleType: moduleType, Table: t}
}

// Fetch returns a copy of the configured table, or the configured error.
func (m *StubModule) Fetch(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	logger.Debug("stub input returning table",
		slog.String("type", m.ModuleType),
		slog.Int("records", m.Table.Len()))
	if m.Table == nil {
		return table.New(), nil
	}
	return m.Table.Clone(), nil
}

// Close marks the stub closed.
func (m *StubModule) Close() error {
	m.Closed = true
	return nil
}

var _ Module = (*StubModule)(nil)
