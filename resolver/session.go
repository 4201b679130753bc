package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Query shape names used in logs and metrics.
const (
	shapePublished = "published_models"
	shapeAll       = "all_models"
	shapeImports   = "import_edges"
	shapeHistory   = "version_history"
)

// lazy materializes a value at most once.
type lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (l *lazy[T]) get(fetch func() (T, error)) (T, error) {
	l.once.Do(func() { l.val, l.err = fetch() })
	return l.val, l.err
}

// model is a materialized graph row with its parsed asset identifier.
type model struct {
	row   graphquery.ModelRow
	asset identifier.AssetID
}

// modelIndex is one materialized model query, ordered as returned and
// indexed by model URI and asset tag.
type modelIndex struct {
	models  []model
	byModel map[string]int
	byAsset map[uuid.UUID][]int
}

// edgeIndex holds the deduplicated import edges by source model.
type edgeIndex struct {
	from map[string][]string
}

// ModelRef is the result of an asset to model lookup.
type ModelRef struct {
	URI string
	// Ambiguous is set when more than one model carries the asset tag.
	Ambiguous bool
	// Candidates lists every model carrying the asset tag, in graph order.
	Candidates []string
}

// Session is one resolution pass. Query results are fetched lazily, at most
// once per shape, and cached for the life of the session. A Session may be
// used from several goroutines.
type Session struct {
	r *Resolver

	published lazy[*modelIndex]
	all       lazy[*modelIndex]
	edges     lazy[*edgeIndex]

	mu        sync.Mutex
	histories map[string][]identifier.ArtifactRef
}

// Prefetch materializes the three graph query shapes concurrently.
func (s *Session) Prefetch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.publishedModels(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.allModels(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.importEdges(ctx)
		return err
	})
	return g.Wait()
}

func (s *Session) publishedModels(ctx context.Context) (*modelIndex, error) {
	return s.published.get(func() (*modelIndex, error) {
		rows, err := s.r.graph.PublishedModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", shapePublished, err)
		}
		return s.index(shapePublished, rows), nil
	})
}

func (s *Session) allModels(ctx context.Context) (*modelIndex, error) {
	return s.all.get(func() (*modelIndex, error) {
		rows, err := s.r.graph.AllModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", shapeAll, err)
		}
		return s.index(shapeAll, rows), nil
	})
}

func (s *Session) importEdges(ctx context.Context) (*edgeIndex, error) {
	return s.edges.get(func() (*edgeIndex, error) {
		edges, err := s.r.graph.ImportEdges(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", shapeImports, err)
		}
		s.r.metrics.query(shapeImports)
		s.r.logger.Debug("Graph query materialized", "shape", shapeImports, "rows", len(edges))

		idx := &edgeIndex{from: make(map[string][]string)}
		seen := make(map[graphquery.ImportEdge]bool, len(edges))
		for _, e := range edges {
			if seen[e] {
				continue
			}
			seen[e] = true
			idx.from[e.From] = append(idx.from[e.From], e.To)
		}
		return idx, nil
	})
}

// index materializes rows. Rows without a state default to Draft.
func (s *Session) index(shape string, rows []graphquery.ModelRow) *modelIndex {
	s.r.metrics.query(shape)
	s.r.logger.Debug("Graph query materialized", "shape", shape, "rows", len(rows))

	idx := &modelIndex{
		models:  make([]model, 0, len(rows)),
		byModel: make(map[string]int, len(rows)),
		byAsset: make(map[uuid.UUID][]int),
	}
	for _, row := range rows {
		if _, dup := idx.byModel[row.Model]; dup {
			continue
		}
		if row.State == graphquery.StateAbsent {
			s.r.logger.Warn("Model has no publication state, assuming draft", "model", row.Model)
			s.r.metrics.anomaly("missing_state")
			row.State = graphquery.StateDraft
		}

		m := model{row: row}
		if row.AssetID != "" {
			asset, err := identifier.ParseAssetURI(row.AssetID)
			if err != nil {
				s.r.logger.Warn("Model carries an invalid asset identifier",
					"model", row.Model, "asset_id", row.AssetID, "error", err)
				s.r.metrics.anomaly("invalid_asset_id")
			} else {
				asset.Timestamp = row.Updated
				m.asset = asset
			}
		}

		pos := len(idx.models)
		idx.models = append(idx.models, m)
		idx.byModel[row.Model] = pos
		if !m.asset.IsZero() {
			idx.byAsset[m.asset.Tag] = append(idx.byAsset[m.asset.Tag], pos)
		}
	}
	return idx
}

// history returns the ascending version history of a model, fetched at most
// once per session.
func (s *Session) history(ctx context.Context, modelURI string) ([]identifier.ArtifactRef, error) {
	s.mu.Lock()
	h, ok := s.histories[modelURI]
	s.mu.Unlock()
	if ok {
		return h, nil
	}

	h, err := s.r.history.VersionHistory(ctx, modelURI)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", shapeHistory, modelURI, err)
	}
	s.r.metrics.query(shapeHistory)

	sorted := make([]identifier.ArtifactRef, 0, len(h))
	for _, e := range h {
		if e.Published() {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Updated.Before(sorted[j].Updated)
	})

	s.mu.Lock()
	s.histories[modelURI] = sorted
	s.mu.Unlock()
	return sorted, nil
}

func (s *Session) modelsFor(ctx context.Context, anyState bool) (*modelIndex, error) {
	if anyState {
		return s.allModels(ctx)
	}
	return s.publishedModels(ctx)
}

// Models returns the rows of the published (or, with anyState, all) models
// query in graph order.
func (s *Session) Models(ctx context.Context, anyState bool) ([]graphquery.ModelRow, error) {
	idx, err := s.modelsFor(ctx, anyState)
	if err != nil {
		return nil, err
	}
	rows := make([]graphquery.ModelRow, len(idx.models))
	for i, m := range idx.models {
		rows[i] = m.row
	}
	return rows, nil
}

// Model returns the latest snapshot row of a model.
func (s *Session) Model(ctx context.Context, modelURI string, anyState bool) (graphquery.ModelRow, error) {
	idx, err := s.modelsFor(ctx, anyState)
	if err != nil {
		return graphquery.ModelRow{}, err
	}
	pos, ok := idx.byModel[modelURI]
	if !ok {
		return graphquery.ModelRow{}, fmt.Errorf("%w: model %s", ErrNotFound, modelURI)
	}
	return idx.models[pos].row, nil
}

// ResolveModelToAssetID returns the asset identifier asserted by the latest
// published version of a model.
func (s *Session) ResolveModelToAssetID(ctx context.Context, modelURI string) (identifier.AssetID, error) {
	idx, err := s.publishedModels(ctx)
	if err != nil {
		return identifier.AssetID{}, err
	}
	pos, ok := idx.byModel[modelURI]
	if !ok {
		return identifier.AssetID{}, fmt.Errorf("%w: no published model %s", ErrNotFound, modelURI)
	}
	asset := idx.models[pos].asset
	if asset.IsZero() {
		return identifier.AssetID{}, fmt.Errorf("%w: model %s asserts no asset identifier", ErrNotFound, modelURI)
	}
	return asset, nil
}

// ResolveAssetToModelID returns the model carrying an asset tag. Without
// anyState only published models are considered. When several models carry
// the same tag the first in graph order is returned and the result is
// flagged as ambiguous.
func (s *Session) ResolveAssetToModelID(ctx context.Context, assetTag uuid.UUID, anyState bool) (ModelRef, error) {
	idx, err := s.modelsFor(ctx, anyState)
	if err != nil {
		return ModelRef{}, err
	}
	positions := idx.byAsset[assetTag]
	if len(positions) == 0 {
		return ModelRef{}, fmt.Errorf("%w: no model for asset %s", ErrNotFound, assetTag)
	}

	ref := ModelRef{URI: idx.models[positions[0]].row.Model}
	for _, pos := range positions {
		ref.Candidates = append(ref.Candidates, idx.models[pos].row.Model)
	}
	if len(ref.Candidates) > 1 {
		ref.Ambiguous = true
		s.r.logger.Warn("Asset tag is carried by more than one model",
			"asset", assetTag, "models", ref.Candidates, "selected", ref.URI)
		s.r.metrics.anomaly("ambiguous_asset")
	}
	return ref, nil
}

// ArtifactDependencies returns the models a model imports in the latest
// snapshot, without duplicates.
func (s *Session) ArtifactDependencies(ctx context.Context, modelURI string) ([]string, error) {
	idx, err := s.importEdges(ctx)
	if err != nil {
		return nil, err
	}
	deps := idx.from[modelURI]
	out := make([]string, len(deps))
	copy(out, deps)
	return out, nil
}

// AssetDependencies maps the artifact dependencies of a model to asset
// identifiers. Dependencies without a published asset are left out.
func (s *Session) AssetDependencies(ctx context.Context, modelURI string) ([]identifier.AssetID, error) {
	deps, err := s.ArtifactDependencies(ctx, modelURI)
	if err != nil {
		return nil, err
	}
	out := make([]identifier.AssetID, 0, len(deps))
	for _, dep := range deps {
		asset, err := s.ResolveModelToAssetID(ctx, dep)
		if errors.Is(err, ErrNotFound) {
			s.r.logger.Warn("Dependency has no published asset", "model", modelURI, "dependency", dep)
			s.r.metrics.anomaly("unpublished_dependency")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, nil
}

// ResolveVersion checks a requested artifact version of an asset against
// the latest snapshot. It returns the latest row when the version is
// current, a *NotLatestVersionError when the version exists only in the
// history, and ErrNotFound otherwise. When several models carry the tag the
// selected model is checked.
func (s *Session) ResolveVersion(ctx context.Context, assetTag uuid.UUID, version string) (graphquery.ModelRow, error) {
	ref, err := s.ResolveAssetToModelID(ctx, assetTag, false)
	if err != nil {
		return graphquery.ModelRow{}, err
	}
	return s.resolveModelVersion(ctx, ref.URI, assetTag, version)
}

// resolveModelVersion checks a requested version against one model's latest
// row and history.
func (s *Session) resolveModelVersion(ctx context.Context, modelURI string, assetTag uuid.UUID, version string) (graphquery.ModelRow, error) {
	row, err := s.Model(ctx, modelURI, false)
	if err != nil {
		return graphquery.ModelRow{}, err
	}
	if row.Version == version {
		return row, nil
	}

	h, err := s.history(ctx, modelURI)
	if err != nil {
		return graphquery.ModelRow{}, err
	}
	for _, e := range h {
		if e.Version == version {
			return graphquery.ModelRow{}, &NotLatestVersionError{
				AssetTag:  assetTag,
				Requested: version,
				Latest:    row.Version,
			}
		}
	}
	return graphquery.ModelRow{}, fmt.Errorf("%w: model %s has no version %s", ErrNotFound, modelURI, version)
}
