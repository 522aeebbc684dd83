package artifact

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/canectors/basic-cleaning/internal/pathutil"
)

// AliasLatest resolves to the highest published version.
const AliasLatest = "latest"

// Reference identifies an artifact version: "name", "name:latest", "name:v3" or "name:3".
// An "entity/project/" prefix is accepted and kept for display only.
type Reference struct {
	Scope string
	Name  string
	Alias string
}

// ParseReference parses a reference string.
func ParseReference(s string) (Reference, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	var ref Reference
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		ref.Scope = raw[:i]
		raw = raw[i+1:]
		if err := pathutil.ValidateFilePath(ref.Scope); err != nil {
			return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
	}

	name, alias, hasAlias := strings.Cut(raw, ":")
	if hasAlias && alias == "" {
		return Reference{}, fmt.Errorf("%w: %q has an empty alias", ErrInvalidReference, s)
	}
	if !hasAlias {
		alias = AliasLatest
	}
	if err := pathutil.ValidateArtifactName(name); err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if alias != AliasLatest {
		if _, err := parseVersion(alias); err != nil {
			return Reference{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, s, err)
		}
	}

	ref.Name = name
	ref.Alias = alias
	return ref, nil
}

// String returns the canonical "name:alias" form, including the scope if any.
func (r Reference) String() string {
	s := r.Name + ":" + r.Alias
	if r.Scope != "" {
		return r.Scope + "/" + s
	}
	return s
}

// Version returns the pinned version number, or -1 for the latest alias.
func (r Reference) Version() int {
	if r.Alias == AliasLatest {
		return -1
	}
	v, _ := parseVersion(r.Alias)
	return v
}

// parseVersion accepts "v3" or "3".
func parseVersion(alias string) (int, error) {
	digits := strings.TrimPrefix(alias, "v")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || digits == "" || strings.HasPrefix(digits, "+") {
		return 0, fmt.Errorf("alias %q is neither %q nor a version", alias, AliasLatest)
	}
	return n, nil
}

func versionDir(v int) string {
	return "v" + strconv.Itoa(v)
}
