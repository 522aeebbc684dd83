package artifact

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s := NewFSStore(t.TempDir())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		in      string
		want    Reference
		version int
		wantErr bool
	}{
		{in: "sample.csv", want: Reference{Name: "sample.csv", Alias: "latest"}, version: -1},
		{in: "sample.csv:latest", want: Reference{Name: "sample.csv", Alias: "latest"}, version: -1},
		{in: "sample.csv:v2", want: Reference{Name: "sample.csv", Alias: "v2"}, version: 2},
		{in: "sample.csv:0", want: Reference{Name: "sample.csv", Alias: "0"}, version: 0},
		{in: "team/nyc_airbnb/sample.csv:v1", want: Reference{Scope: "team/nyc_airbnb", Name: "sample.csv", Alias: "v1"}, version: 1},
		{in: "", wantErr: true},
		{in: "sample.csv:", wantErr: true},
		{in: "sample.csv:prod", wantErr: true},
		{in: "sample.csv:v-1", wantErr: true},
		{in: "../x:latest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReference(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.version, got.Version())
		})
	}
}

func TestReferenceString(t *testing.T) {
	assert.Equal(t, "sample.csv:latest", Reference{Name: "sample.csv", Alias: "latest"}.String())
	assert.Equal(t, "a/b/sample.csv:v1", Reference{Scope: "a/b", Name: "sample.csv", Alias: "v1"}.String())
}

func TestFSStore_PublishAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	src := writeTemp(t, "clean_sample.csv", "a,b\n1,2\n")
	a, err := s.Publish(ctx, PublishRequest{
		LocalPath:   src,
		Name:        "clean_sample.csv",
		Type:        "clean_sample",
		Description: "Data with outliers and null values removed",
		RunID:       "run-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Version)
	assert.Equal(t, "clean_sample.csv", a.FileName)
	assert.Equal(t, int64(8), a.Size)
	assert.Contains(t, a.Digest, "sha256:")
	assert.Equal(t, "run-1", a.RunID)

	data, err := os.ReadFile(a.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	got, err := s.Fetch(ctx, Reference{Name: "clean_sample.csv", Alias: AliasLatest})
	require.NoError(t, err)
	assert.Equal(t, a.Digest, got.Digest)
	assert.Equal(t, a.LocalPath, got.LocalPath)
	assert.Equal(t, "Data with outliers and null values removed", got.Description)
}

func TestFSStore_Versions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, content := range []string{"x\n1\n", "x\n2\n", "x\n3\n"} {
		a, err := s.Publish(ctx, PublishRequest{LocalPath: writeTemp(t, "f.csv", content), Name: "f.csv", Type: "raw"})
		require.NoError(t, err)
		assert.Equal(t, i, a.Version)
	}

	v1, err := s.Fetch(ctx, Reference{Name: "f.csv", Alias: "v1"})
	require.NoError(t, err)
	data, err := os.ReadFile(v1.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "x\n2\n", string(data))

	latest, err := s.Fetch(ctx, Reference{Name: "f.csv", Alias: AliasLatest})
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	all, err := s.List("f.csv")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFSStore_SameContentReusesVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Publish(ctx, PublishRequest{LocalPath: writeTemp(t, "f.csv", "x\n1\n"), Name: "f.csv", Type: "raw"})
	require.NoError(t, err)
	second, err := s.Publish(ctx, PublishRequest{LocalPath: writeTemp(t, "f.csv", "x\n1\n"), Name: "f.csv", Type: "raw"})
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)

	all, err := s.List("f.csv")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFSStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Fetch(ctx, Reference{Name: "missing.csv", Alias: AliasLatest})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Publish(ctx, PublishRequest{LocalPath: writeTemp(t, "f.csv", "x\n"), Name: "f.csv", Type: "raw"})
	require.NoError(t, err)

	_, err = s.Fetch(ctx, Reference{Name: "f.csv", Alias: "v7"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Publish(ctx, PublishRequest{LocalPath: writeTemp(t, "f.csv", "y\n"), Name: "f.csv", Type: "clean"})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = s.Publish(ctx, PublishRequest{LocalPath: writeTemp(t, "f.csv", "y\n"), Name: "f.csv"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Publish(ctx, PublishRequest{LocalPath: filepath.Join(t.TempDir(), "nope.csv"), Name: "f.csv", Type: "raw"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Fetch(canceled, Reference{Name: "f.csv", Alias: AliasLatest})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFSStore_NoStagingLeftovers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Publish(ctx, PublishRequest{LocalPath: writeTemp(t, "f.csv", "x\n"), Name: "f.csv", Type: "raw"})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.Root(), "f.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "v0", entries[0].Name())
}

func TestFSStore_ConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		path := writeTemp(t, "f.csv", "x\n"+string(rune('a'+i))+"\n")
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Publish(ctx, PublishRequest{LocalPath: path, Name: "f.csv", Type: "raw"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.List("f.csv")
	require.NoError(t, err)
	assert.Len(t, all, 8)
}
