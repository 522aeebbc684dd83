// Package artifact provides a versioned artifact store.
// Artifacts are immutable named files; publishing under an existing name adds a new version.
package artifact

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	// ErrNotFound is returned when the artifact name or version does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrTypeMismatch is returned when publishing under a name registered with another type.
	ErrTypeMismatch = errors.New("artifact type mismatch")

	// ErrInvalidReference is returned for references that cannot be parsed.
	ErrInvalidReference = errors.New("invalid artifact reference")

	// ErrInvalidRequest is returned for publish requests missing required fields.
	ErrInvalidRequest = errors.New("invalid publish request")
)

// Artifact is one published version.
type Artifact struct {
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	FileName    string    `json:"fileName"`
	Digest      string    `json:"digest"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	// RunID is the run that produced this version
	RunID string `json:"runId,omitempty"`

	// LocalPath is where the file can be read. Not persisted.
	LocalPath string `json:"-"`
}

// Ref returns the pinned reference of this version.
func (a *Artifact) Ref() Reference {
	return Reference{Name: a.Name, Alias: versionDir(a.Version)}
}

// PublishRequest describes a file to publish.
type PublishRequest struct {
	// LocalPath is the file to copy into the store (required)
	LocalPath string
	// Name is the artifact name (required)
	Name string
	// Type is the artifact type tag (required)
	Type string
	// Description is a free-form description
	Description string
	// RunID links the new version to the producing run
	RunID string
}

// Store fetches and publishes artifacts.
type Store interface {
	// Fetch resolves ref and returns the artifact with LocalPath set.
	Fetch(ctx context.Context, ref Reference) (*Artifact, error)

	// Publish stores the file as a new version of req.Name.
	// When the content equals the latest version, that version is returned unchanged.
	Publish(ctx context.Context, req PublishRequest) (*Artifact, error)
}
