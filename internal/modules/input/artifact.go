package input

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/table"
	"github.com/canectors/basic-cleaning/internal/tracking"
)

// ArtifactInput reads a CSV table from a versioned artifact.
//
// The fetched version is linked to the run as an input before the file is
// read, so a run that fails on a malformed file still records what it consumed.
type ArtifactInput struct {
	store     artifact.Store
	run       tracking.Run
	reference artifact.Reference

	fetched *artifact.Artifact
}

// NewArtifactInput parses reference and returns a module fetching it from store.
// run may be nil, in which case the artifact is not linked to any run.
func NewArtifactInput(store artifact.Store, run tracking.Run, reference string) (*ArtifactInput, error) {
	if store == nil {
		return nil, errhandling.NewConfigurationError("artifact store is required", nil)
	}
	ref, err := artifact.ParseReference(reference)
	if err != nil {
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("input_artifact %q", reference), err)
	}
	return &ArtifactInput{store: store, run: run, reference: ref}, nil
}

// Reference returns the parsed input reference.
func (m *ArtifactInput) Reference() artifact.Reference {
	return m.reference
}

// Artifact returns the resolved artifact version after a successful Fetch.
func (m *ArtifactInput) Artifact() *artifact.Artifact {
	return m.fetched
}

// Fetch downloads the artifact and reads it as a table.
func (m *ArtifactInput) Fetch(ctx context.Context) (*table.Table, error) {
	logger.Info("Downloading and reading artifact", slog.String("artifact", m.reference.String()))

	a, err := m.store.Fetch(ctx, m.reference)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, errhandling.NewRetrievalError(fmt.Sprintf("fetching %s", m.reference), err)
	}
	m.fetched = a

	if m.run != nil {
		if err := m.run.UseArtifact(ctx, a); err != nil {
			return nil, errhandling.NewTrackingError(fmt.Sprintf("linking %s to run %s", a.Ref(), m.run.ID()), err)
		}
	}
	logger.Info("Downloaded artifact to "+a.LocalPath,
		slog.String("artifact", a.Name),
		slog.Int("version", a.Version),
		slog.String("digest", a.Digest),
	)

	t, err := table.ReadFile(a.LocalPath)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, errhandling.NewRetrievalError(fmt.Sprintf("opening %s", a.Ref()), err)
		}
		return nil, errhandling.NewSchemaError(fmt.Sprintf("reading %s as CSV", a.Ref()), err)
	}

	logger.Debug("artifact table loaded",
		slog.String("artifact", a.Ref().String()),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns)),
	)
	return t, nil
}

// Close releases resources (no-op; the store owns the fetched file).
func (m *ArtifactInput) Close() error {
	return nil
}

var _ Module = (*ArtifactInput)(nil)
