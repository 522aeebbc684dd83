package input

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/table"
)

type recordingRun struct {
	used   []*artifact.Artifact
	useErr error
}

func (r *recordingRun) ID() string { return "run-1" }

func (r *recordingRun) RecordConfig(context.Context, map[string]interface{}) error { return nil }

func (r *recordingRun) UseArtifact(_ context.Context, a *artifact.Artifact) error {
	if r.useErr != nil {
		return r.useErr
	}
	r.used = append(r.used, a)
	return nil
}

func (r *recordingRun) LogArtifact(context.Context, *artifact.Artifact) error { return nil }

func (r *recordingRun) Finish(context.Context, error) error { return nil }

func publish(t *testing.T, store *artifact.FSStore, name, content string) *artifact.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	a, err := store.Publish(context.Background(), artifact.PublishRequest{LocalPath: path, Name: name, Type: "raw_data"})
	require.NoError(t, err)
	return a
}

func TestArtifactInput_Fetch(t *testing.T) {
	store := artifact.NewFSStore(t.TempDir())
	publish(t, store, "sample.csv", "id,price\n1,50\n2,500\n")
	run := &recordingRun{}

	m, err := NewArtifactInput(store, run, "sample.csv:latest")
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	tbl, err := m.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "price"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "500", tbl.Rows[1]["price"])

	require.Len(t, run.used, 1)
	assert.Equal(t, "sample.csv", run.used[0].Name)
	assert.Equal(t, 0, m.Artifact().Version)
}

func TestArtifactInput_PinnedVersion(t *testing.T) {
	store := artifact.NewFSStore(t.TempDir())
	publish(t, store, "sample.csv", "id\n1\n")
	publish(t, store, "sample.csv", "id\n1\n2\n")

	m, err := NewArtifactInput(store, nil, "team/project/sample.csv:v0")
	require.NoError(t, err)
	tbl, err := m.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	m, err = NewArtifactInput(store, nil, "sample.csv")
	require.NoError(t, err)
	tbl, err = m.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestArtifactInput_Errors(t *testing.T) {
	store := artifact.NewFSStore(t.TempDir())
	publish(t, store, "broken.csv", "id,id\n1,2\n")

	_, err := NewArtifactInput(store, nil, "bad name:latest")
	assert.Equal(t, errhandling.CategoryConfiguration, errhandling.GetErrorCategory(err))
	assert.ErrorIs(t, err, artifact.ErrInvalidReference)

	_, err = NewArtifactInput(nil, nil, "sample.csv")
	assert.Equal(t, errhandling.CategoryConfiguration, errhandling.GetErrorCategory(err))

	m, err := NewArtifactInput(store, nil, "missing.csv:latest")
	require.NoError(t, err)
	_, err = m.Fetch(context.Background())
	assert.Equal(t, errhandling.CategoryRetrieval, errhandling.GetErrorCategory(err))
	assert.ErrorIs(t, err, artifact.ErrNotFound)

	m, err = NewArtifactInput(store, nil, "broken.csv")
	require.NoError(t, err)
	_, err = m.Fetch(context.Background())
	assert.Equal(t, errhandling.CategorySchema, errhandling.GetErrorCategory(err))

	linkErr := errors.New("tracker down")
	m, err = NewArtifactInput(store, &recordingRun{useErr: linkErr}, "broken.csv")
	require.NoError(t, err)
	_, err = m.Fetch(context.Background())
	assert.Equal(t, errhandling.CategoryTracking, errhandling.GetErrorCategory(err))
	assert.ErrorIs(t, err, linkErr)
}

func TestArtifactInput_Canceled(t *testing.T) {
	store := artifact.NewFSStore(t.TempDir())
	m, err := NewArtifactInput(store, nil, "sample.csv")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, errhandling.CategoryCanceled, errhandling.GetErrorCategory(err))
}

func TestStubModule(t *testing.T) {
	src := table.New("id")
	src.Append(table.Row{"id": "1"})

	m := NewStub("stub", src)
	got, err := m.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, src, got)
	assert.NotSame(t, src, got)

	m.Err = errors.New("boom")
	_, err = m.Fetch(context.Background())
	assert.EqualError(t, err, "boom")

	empty, err := NewStub("stub", nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}
