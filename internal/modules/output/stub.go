package output

import (
	"context"
	"log/slog"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/table"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// StubModule records the tables it receives instead of publishing them.
// It implements both Module and PreviewableModule for dry-run support.
type StubModule struct {
	ModuleType string
	Name       string
	Err        error

	// Received holds every table passed to Send
	Received []*table.Table
}

// NewStub creates a new stub output module.
func NewStub(moduleType, name string) *StubModule {
	return &StubModule{ModuleType: moduleType, Name: name}
}

// Send records t, or returns the configured error.
func (m *StubModule) Send(_ context.Context, t *table.Table) (int, error) {
	logger.Info("Output module sending data",
		slog.String("type", m.ModuleType),
		slog.String("artifact", m.Name),
		slog.Int("records", t.Len()))
	if m.Err != nil {
		return 0, m.Err
	}
	m.Received = append(m.Received, t)
	return t.Len(), nil
}

// Close releases resources (no-op for stub).
func (m *StubModule) Close() error {
	return nil
}

// PreviewPublish describes what Send would receive.
func (m *StubModule) PreviewPublish(t *table.Table, opts PreviewOptions) (*cleaning.PublishPreview, error) {
	sample, err := samplePreview(t, opts)
	if err != nil {
		return nil, err
	}
	return &cleaning.PublishPreview{
		Name:          m.Name,
		Type:          m.ModuleType,
		Columns:       t.Columns,
		RowCount:      t.Len(),
		SamplePreview: sample,
	}, nil
}

var (
	_ Module            = (*StubModule)(nil)
	_ PreviewableModule = (*StubModule)(nil)
)
