package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
)

// Manifest describes the artifact version a document was exported from.
type Manifest struct {
	ModelURI string           `json:"model_uri"`
	Version  string           `json:"version"`
	Updated  time.Time        `json:"updated"`
	State    graphquery.State `json:"state,omitempty"`
	MimeType string           `json:"mime_type,omitempty"`
	Name     string           `json:"name,omitempty"`
}

// Artifact returns the artifact reference of the manifest.
func (m Manifest) Artifact() identifier.ArtifactRef {
	return identifier.ArtifactRef{ModelURI: m.ModelURI, Version: m.Version, Updated: m.Updated}
}

// Bundle is the resolved identity of one artifact version and its
// dependencies.
type Bundle struct {
	AssetID             identifier.AssetID       `json:"asset_id"`
	Artifact            identifier.ArtifactRef   `json:"artifact"`
	DependencyAssetIDs  []identifier.AssetID     `json:"dependency_asset_ids"`
	DependencyArtifacts []identifier.ArtifactRef `json:"dependency_artifacts"`
	// Historical is set when the version is not the latest and dependencies
	// were inferred from version histories.
	Historical bool `json:"historical"`
}

// ResolveBundle resolves the identity bundle of the artifact version named
// by the manifest. Versions that are not the latest fall back to
// historical dependency resolution.
func (s *Session) ResolveBundle(ctx context.Context, m Manifest) (*Bundle, error) {
	asset, err := s.ResolveModelToAssetID(ctx, m.ModelURI)
	if err != nil {
		return nil, err
	}

	latest, err := s.resolveModelVersion(ctx, m.ModelURI, asset.Tag, m.Version)
	switch {
	case err == nil:
		return s.latestBundle(ctx, asset, latest)
	case errors.Is(err, ErrNotLatestVersion):
		s.r.logger.Info("Resolving historical version",
			"model", m.ModelURI, "version", m.Version, "reason", err)
		s.r.metrics.fallback()
		return s.historicalBundle(ctx, asset, m)
	default:
		return nil, err
	}
}

func (s *Session) latestBundle(ctx context.Context, asset identifier.AssetID, row graphquery.ModelRow) (*Bundle, error) {
	deps, err := s.ArtifactDependencies(ctx, row.Model)
	if err != nil {
		return nil, err
	}
	b := &Bundle{AssetID: asset, Artifact: row.Artifact()}
	for _, dep := range deps {
		depRow, err := s.Model(ctx, dep, false)
		if errors.Is(err, ErrNotFound) {
			s.r.logger.Warn("Dependency is not published", "model", row.Model, "dependency", dep)
			s.r.metrics.anomaly("unpublished_dependency")
			continue
		}
		if err != nil {
			return nil, err
		}
		b.DependencyArtifacts = append(b.DependencyArtifacts, depRow.Artifact())
		depAsset, err := s.ResolveModelToAssetID(ctx, dep)
		if errors.Is(err, ErrNotFound) {
			s.r.logger.Warn("Dependency has no asset identifier", "model", row.Model, "dependency", dep)
			s.r.metrics.anomaly("dependency_without_asset")
			continue
		}
		if err != nil {
			return nil, err
		}
		b.DependencyAssetIDs = append(b.DependencyAssetIDs, depAsset)
	}
	return b, nil
}

// historicalBundle re-derives asset version tags and timestamps from the
// version history entries selected for the requested version.
func (s *Session) historicalBundle(ctx context.Context, asset identifier.AssetID, m Manifest) (*Bundle, error) {
	own, err := s.history(ctx, m.ModelURI)
	if err != nil {
		return nil, err
	}
	entry, ok := findVersion(own, m.Version)
	if !ok {
		return nil, fmt.Errorf("%w: model %s has no version %s", ErrNotFound, m.ModelURI, m.Version)
	}

	deps, err := s.HistoricalDependencies(ctx, m.ModelURI, m.Version)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		AssetID:             asset.WithVersion(entry.Version, entry.Updated),
		Artifact:            entry,
		DependencyArtifacts: deps,
		Historical:          true,
	}
	for _, dep := range deps {
		depAsset, err := s.ResolveModelToAssetID(ctx, dep.ModelURI)
		if errors.Is(err, ErrNotFound) {
			s.r.logger.Warn("Dependency has no asset identifier", "model", m.ModelURI, "dependency", dep.ModelURI)
			s.r.metrics.anomaly("dependency_without_asset")
			continue
		}
		if err != nil {
			return nil, err
		}
		b.DependencyAssetIDs = append(b.DependencyAssetIDs, depAsset.WithVersion(dep.Version, dep.Updated))
	}
	return b, nil
}
