// Package identifier provides the asset and artifact identifiers used across
// semweave, and the rule that maps vendor URIs into the canonical namespace.
package identifier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// versionsSegment separates an asset URI from its version tag.
const versionsSegment = "/versions/"

// ErrInvalidAssetID is returned when an asset URI cannot be parsed.
var ErrInvalidAssetID = errors.New("invalid asset identifier")

// AssetID identifies the knowledge content carried by one or more artifact versions.
// The Tag is stable for the lifetime of the asset; VersionTag and Timestamp
// describe one particular version of it.
type AssetID struct {
	Namespace  string    `json:"namespace"`
	Tag        uuid.UUID `json:"tag"`
	VersionTag string    `json:"version_tag,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// URI returns the version-independent asset URI.
func (a AssetID) URI() string {
	return a.Namespace + a.Tag.String()
}

// VersionURI returns the versioned asset URI, or the plain URI if no version is set.
func (a AssetID) VersionURI() string {
	if a.VersionTag == "" {
		return a.URI()
	}
	return a.URI() + versionsSegment + a.VersionTag
}

// String returns the versioned asset URI.
func (a AssetID) String() string {
	return a.VersionURI()
}

// IsZero reports whether the identifier is unset.
func (a AssetID) IsZero() bool {
	return a.Tag == uuid.Nil
}

// WithVersion returns a copy of the identifier pinned to the given version tag and timestamp.
func (a AssetID) WithVersion(versionTag string, ts time.Time) AssetID {
	a.VersionTag = versionTag
	a.Timestamp = ts
	return a
}

// ParseAssetURI parses "<namespace><uuid>[/versions/<versionTag>]".
func ParseAssetURI(s string) (AssetID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AssetID{}, fmt.Errorf("%w: empty", ErrInvalidAssetID)
	}

	base, version, _ := strings.Cut(s, versionsSegment)
	base = strings.TrimSuffix(base, "/")

	idx := strings.LastIndex(base, "/")
	if idx < 0 {
		return AssetID{}, fmt.Errorf("%w: %q has no namespace", ErrInvalidAssetID, s)
	}

	tag, err := uuid.Parse(base[idx+1:])
	if err != nil {
		return AssetID{}, fmt.Errorf("%w: %q: %v", ErrInvalidAssetID, s, err)
	}

	return AssetID{
		Namespace:  base[:idx+1],
		Tag:        tag,
		VersionTag: version,
	}, nil
}

// ArtifactRef identifies one version of a vendor model document.
type ArtifactRef struct {
	ModelURI string    `json:"model_uri"`
	Version  string    `json:"version,omitempty"`
	Updated  time.Time `json:"updated"`
}

// Published reports whether the artifact version carries a version string.
func (r ArtifactRef) Published() bool {
	return r.Version != ""
}

// String returns "<modelURI>" or "<modelURI>@<version>".
func (r ArtifactRef) String() string {
	if r.Version == "" {
		return r.ModelURI
	}
	return r.ModelURI + "@" + r.Version
}

// artifactKeyNamespace scopes deterministic artifact keys.
var artifactKeyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://semweave.dev/artifacts"))

// Key returns a deterministic UUIDv5 for the artifact version. The update
// timestamp does not contribute.
func (r ArtifactRef) Key() string {
	return uuid.NewSHA1(artifactKeyNamespace, []byte(r.String())).String()
}
