// Package pathutil provides shared path and name validation helpers.
package pathutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidName is returned for artifact or file names that cannot be used
// as a single path segment.
var ErrInvalidName = errors.New("invalid name")

// artifactNamePattern allows the characters commonly used in artifact names
// such as "sample.csv" or "clean_sample-v2.csv".
var artifactNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateFilePath rejects empty paths, NUL bytes and any ".." segment.
// Segments are checked before cleaning: "out/../../etc" must not pass
// just because filepath.Clean would shorten it.
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.ContainsRune(filePath, 0) {
		return fmt.Errorf("file path contains invalid characters")
	}
	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}

// ValidateFileName checks that name is a bare file name with no directory part.
func ValidateFileName(name string) error {
	if err := ValidateFilePath(name); err != nil {
		return err
	}
	if strings.ContainsAny(name, `/\`) || name == "." {
		return fmt.Errorf("%w: %q must be a bare file name", ErrInvalidName, name)
	}
	return nil
}

// ValidateArtifactName checks that name can be stored as one directory of an
// artifact store.
func ValidateArtifactName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: artifact name cannot be empty", ErrInvalidName)
	}
	if len(name) > 128 {
		return fmt.Errorf("%w: artifact name longer than 128 characters", ErrInvalidName)
	}
	if !artifactNamePattern.MatchString(name) {
		return fmt.Errorf("%w: artifact name %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidName, name)
	}
	return nil
}
