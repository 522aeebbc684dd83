package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/pathutil"
	"github.com/canectors/basic-cleaning/internal/table"
	"github.com/canectors/basic-cleaning/internal/tracking"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// DefaultFileName is the local file the table is written to before publishing.
const DefaultFileName = "clean_sample.csv"

// ArtifactConfig describes the artifact to publish.
type ArtifactConfig struct {
	// Name is the artifact name (required)
	Name string
	// Type is the artifact type tag (required)
	Type string
	// Description is stored with the new version
	Description string
	// WorkDir is where the local file is written (default ".")
	WorkDir string
	// FileName is the local file name (default DefaultFileName)
	FileName string
}

// ArtifactOutput writes the table to a local CSV file, publishes it as a new
// artifact version and links that version to the run.
//
// The local file is removed when Send returns, whether or not publishing
// succeeded.
type ArtifactOutput struct {
	store  artifact.Store
	run    tracking.Run
	config ArtifactConfig

	published *artifact.Artifact
}

// NewArtifactOutput validates cfg and returns the module.
// run may be nil, in which case the published version is not linked to any run.
func NewArtifactOutput(store artifact.Store, run tracking.Run, cfg ArtifactConfig) (*ArtifactOutput, error) {
	if store == nil {
		return nil, errhandling.NewConfigurationError("artifact store is required", nil)
	}
	if err := pathutil.ValidateArtifactName(cfg.Name); err != nil {
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("output_artifact %q", cfg.Name), err)
	}
	if cfg.Type == "" {
		return nil, errhandling.NewConfigurationError("output_type is required", nil)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	if err := pathutil.ValidateFileName(cfg.FileName); err != nil {
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("output file %q", cfg.FileName), err)
	}
	return &ArtifactOutput{store: store, run: run, config: cfg}, nil
}

// LocalPath returns the path of the temporary CSV file.
func (m *ArtifactOutput) LocalPath() string {
	return filepath.Join(m.config.WorkDir, m.config.FileName)
}

// Artifact returns the published version after a successful Send.
func (m *ArtifactOutput) Artifact() *artifact.Artifact {
	return m.published
}

// Send writes, publishes and links the table.
func (m *ArtifactOutput) Send(ctx context.Context, t *table.Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path := m.LocalPath()
	defer m.removeLocal(path)

	if err := os.MkdirAll(m.config.WorkDir, 0o755); err != nil {
		return 0, errhandling.NewIOError(fmt.Sprintf("creating work dir %s", m.config.WorkDir), err)
	}
	logger.Info("Saving cleaned table", slog.String("path", path), slog.Int("rows", t.Len()))
	if err := t.WriteFile(path); err != nil {
		return 0, errhandling.NewIOError(fmt.Sprintf("writing %s", path), err)
	}

	runID := ""
	if m.run != nil {
		runID = m.run.ID()
	}
	logger.Info("Creating artifact",
		slog.String("artifact", m.config.Name),
		slog.String("type", m.config.Type))
	a, err := m.store.Publish(ctx, artifact.PublishRequest{
		LocalPath:   path,
		Name:        m.config.Name,
		Type:        m.config.Type,
		Description: m.config.Description,
		RunID:       runID,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, errhandling.NewPublishError(fmt.Sprintf("publishing %s", m.config.Name), err)
	}
	m.published = a

	if m.run != nil {
		if err := m.run.LogArtifact(ctx, a); err != nil {
			return 0, errhandling.NewTrackingError(fmt.Sprintf("linking %s to run %s", a.Ref(), runID), err)
		}
	}
	return t.Len(), nil
}

func (m *ArtifactOutput) removeLocal(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		logger.Debug("removed local file", slog.String("path", path))
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.Warn("failed to remove local file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// PreviewPublish describes the publish call without writing anything.
func (m *ArtifactOutput) PreviewPublish(t *table.Table, opts PreviewOptions) (*cleaning.PublishPreview, error) {
	sample, err := samplePreview(t, opts)
	if err != nil {
		return nil, err
	}
	return &cleaning.PublishPreview{
		Name:          m.config.Name,
		Type:          m.config.Type,
		Description:   m.config.Description,
		FileName:      m.config.FileName,
		Columns:       t.Columns,
		RowCount:      t.Len(),
		SamplePreview: sample,
	}, nil
}

// Close releases resources (no-op).
func (m *ArtifactOutput) Close() error {
	return nil
}

// samplePreview renders the header and the first rows as CSV.
func samplePreview(t *table.Table, opts PreviewOptions) (string, error) {
	n := opts.SampleRows
	if n <= 0 {
		n = DefaultPreviewRows
	}
	var buf bytes.Buffer
	if err := t.Head(n).WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("rendering preview: %w", err)
	}
	return buf.String(), nil
}

var (
	_ Module            = (*ArtifactOutput)(nil)
	_ PreviewableModule = (*ArtifactOutput)(nil)
)
