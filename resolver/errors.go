package resolver

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no matching record exists at all.
	ErrNotFound = errors.New("not found")

	// ErrNotLatestVersion is matched by *NotLatestVersionError.
	ErrNotLatestVersion = errors.New("not the latest version")
)

// NotLatestVersionError reports that a requested version exists in the
// artifact's history but is not the version in the latest snapshot.
// Callers fall back to historical resolution.
type NotLatestVersionError struct {
	AssetTag  uuid.UUID
	Requested string
	Latest    string
}

func (e *NotLatestVersionError) Error() string {
	return fmt.Sprintf("asset %s: version %s is not the latest (%s)", e.AssetTag, e.Requested, e.Latest)
}

// Is reports whether target is ErrNotLatestVersion.
func (e *NotLatestVersionError) Is(target error) bool {
	return target == ErrNotLatestVersion
}
