package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semweave/identifier"
	"golang.org/x/mod/semver"
)

// HistoricalDependencies infers which version of each latest-snapshot
// dependency was in effect when a model was at the given version.
//
// The window of the requested version starts at its timestamp tA and ends
// at tNext, the timestamp of the first later entry with a greater semantic
// version (or the latest entry when there is none). Each dependency history
// is walked in timestamp order; the first entry after tA whose timestamp is
// not exactly tNext stops the walk and the entry before it is selected. A
// walk that never stops selects the last entry. Dependencies without
// published versions are omitted.
func (s *Session) HistoricalDependencies(ctx context.Context, modelURI, version string) ([]identifier.ArtifactRef, error) {
	own, err := s.history(ctx, modelURI)
	if err != nil {
		return nil, err
	}
	current, ok := findVersion(own, version)
	if !ok {
		return nil, fmt.Errorf("%w: model %s has no version %s", ErrNotFound, modelURI, version)
	}
	tA := current.Updated
	tNext := nextVersionTime(own, current)

	deps, err := s.ArtifactDependencies(ctx, modelURI)
	if err != nil {
		return nil, err
	}

	out := make([]identifier.ArtifactRef, 0, len(deps))
	for _, dep := range deps {
		h, err := s.history(ctx, dep)
		if err != nil {
			return nil, err
		}
		selected, ok := selectHistorical(h, tA, tNext)
		if !ok {
			s.r.logger.Debug("Dependency was never published", "model", modelURI, "dependency", dep)
			continue
		}
		s.r.logger.Debug("Historical dependency selected",
			"model", modelURI,
			"version", version,
			"dependency", dep,
			"selected", selected.Version)
		out = append(out, selected)
	}
	return out, nil
}

func findVersion(history []identifier.ArtifactRef, version string) (identifier.ArtifactRef, bool) {
	for _, e := range history {
		if e.Version == version {
			return e, true
		}
	}
	return identifier.ArtifactRef{}, false
}

// nextVersionTime returns the timestamp of the first entry after current
// with a strictly greater version, or the timestamp of the latest entry.
func nextVersionTime(history []identifier.ArtifactRef, current identifier.ArtifactRef) time.Time {
	for _, e := range history {
		if e.Updated.After(current.Updated) && compareVersions(e.Version, current.Version) > 0 {
			return e.Updated
		}
	}
	return history[len(history)-1].Updated
}

// selectHistorical applies the window rule to one ascending dependency
// history. When the first entry already stops the walk there is no
// predecessor and the first entry is selected.
func selectHistorical(history []identifier.ArtifactRef, tA, tNext time.Time) (identifier.ArtifactRef, bool) {
	if len(history) == 0 {
		return identifier.ArtifactRef{}, false
	}
	prev := -1
	for i, cur := range history {
		if cur.Updated.After(tA) && !cur.Updated.Equal(tNext) {
			if prev < 0 {
				return history[0], true
			}
			return history[prev], true
		}
		prev = i
	}
	return history[prev], true
}

// compareVersions orders semantic versions. Strings that are not semantic
// versions compare lexically.
func compareVersions(a, b string) int {
	va, vb := canonicalVersion(a), canonicalVersion(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return strings.Compare(a, b)
}

func canonicalVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
