package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/pathutil"
)

// DefaultRoot is the default directory of the filesystem store.
const DefaultRoot = "./artifacts"

const manifestFile = "manifest.json"

// FSStore keeps artifacts on the local filesystem:
//
//	<root>/<name>/v<N>/<file>
//	<root>/<name>/v<N>/manifest.json
//
// A version directory is fully written under a temporary name and then renamed,
// so readers never see a partial version.
type FSStore struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFSStore creates a store rooted at root. If root is empty, DefaultRoot is used.
func NewFSStore(root string) *FSStore {
	if root == "" {
		root = DefaultRoot
	}
	return &FSStore{root: root, now: time.Now}
}

// Root returns the store directory.
func (s *FSStore) Root() string {
	return s.root
}

// Fetch resolves ref to a stored version.
func (s *FSStore) Fetch(ctx context.Context, ref Reference) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := pathutil.ValidateArtifactName(ref.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := ref.Version()
	if version < 0 {
		versions, err := s.versions(ref.Name)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		version = versions[len(versions)-1]
	}

	a, err := s.readManifest(ref.Name, version)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, err
	}

	logger.Debug("artifact resolved",
		"reference", ref.String(),
		"version", a.Version,
		"path", a.LocalPath,
	)
	return a, nil
}

// Publish copies req.LocalPath into a new version of req.Name.
func (s *FSStore) Publish(ctx context.Context, req PublishRequest) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	digest, size, err := fileDigest(req.LocalPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(req.Name)
	if err != nil {
		return nil, err
	}

	next := 0
	if len(versions) > 0 {
		latestVersion := versions[len(versions)-1]
		latest, err := s.readManifest(req.Name, latestVersion)
		if err != nil {
			return nil, fmt.Errorf("reading latest version of %s: %w", req.Name, err)
		}
		if latest.Type != req.Type {
			return nil, fmt.Errorf("%w: %s is registered as %q, not %q", ErrTypeMismatch, req.Name, latest.Type, req.Type)
		}
		if latest.Digest == digest {
			logger.Info("artifact content unchanged; reusing latest version",
				"artifact", req.Name,
				"version", latest.Version,
				"digest", digest,
			)
			return latest, nil
		}
		next = latestVersion + 1
	}

	a := &Artifact{
		Name:        req.Name,
		Version:     next,
		Type:        req.Type,
		Description: req.Description,
		FileName:    filepath.Base(req.LocalPath),
		Digest:      digest,
		Size:        size,
		CreatedAt:   s.now().UTC(),
		RunID:       req.RunID,
	}
	if err := s.writeVersion(req.LocalPath, a); err != nil {
		return nil, err
	}

	logger.Info("artifact published",
		"artifact", a.Name,
		"version", a.Version,
		"type", a.Type,
		"digest", a.Digest,
		"size", a.Size,
	)
	return a, nil
}

// List returns every version of name, oldest first.
func (s *FSStore) List(name string) ([]*Artifact, error) {
	if err := pathutil.ValidateArtifactName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(name)
	if err != nil {
		return nil, err
	}
	out := make([]*Artifact, 0, len(versions))
	for _, v := range versions {
		a, err := s.readManifest(name, v)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func validateRequest(req PublishRequest) error {
	if req.LocalPath == "" {
		return fmt.Errorf("%w: local path is required", ErrInvalidRequest)
	}
	if err := pathutil.ValidateArtifactName(req.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidRequest)
	}
	return nil
}

// versions returns the published version numbers of name in ascending order.
func (s *FSStore) versions(name string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing versions of %s: %w", name, err)
	}
	var out []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "v") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "v"))
		if err != nil || n < 0 {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

func (s *FSStore) readManifest(name string, version int) (*Artifact, error) {
	dir := filepath.Join(s.root, name, versionDir(version))
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding manifest of %s:%s: %w", name, versionDir(version), err)
	}
	a.LocalPath = filepath.Join(dir, a.FileName)
	return &a, nil
}

// writeVersion stages the file and manifest in a temporary directory, then
// renames it into place.
func (s *FSStore) writeVersion(src string, a *Artifact) error {
	nameDir := filepath.Join(s.root, a.Name)
	if err := os.MkdirAll(nameDir, 0755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	staging, err := os.MkdirTemp(nameDir, ".publish-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()
	if err := os.Chmod(staging, 0755); err != nil {
		return fmt.Errorf("preparing staging directory: %w", err)
	}

	if err := copyFile(src, filepath.Join(staging, a.FileName)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, manifestFile), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	final := filepath.Join(nameDir, versionDir(a.Version))
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("committing %s:%s: %w", a.Name, versionDir(a.Version), err)
	}
	committed = true
	a.LocalPath = filepath.Join(final, a.FileName)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("syncing %s: %w", dst, err)
	}
	return out.Close()
}

// fileDigest returns the hex sha256 and size of a file.
func fileDigest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), n, nil
}

var _ Store = (*FSStore)(nil)
