package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModelToAssetID(t *testing.T) {
	graph, history := fixture()
	s := New(graph, history).NewSession()
	ctx := context.Background()

	asset, err := s.ResolveModelToAssetID(ctx, "mA")
	require.NoError(t, err)
	assert.Equal(t, tagA, asset.Tag)
	assert.Equal(t, assetNS, asset.Namespace)
	assert.Equal(t, "1.2.0", asset.VersionTag)
	assert.Equal(t, at(400), asset.Timestamp)

	_, err = s.ResolveModelToAssetID(ctx, "mDraft")
	assert.ErrorIs(t, err, ErrNotFound, "drafts are not in the published snapshot")

	_, err = s.ResolveModelToAssetID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAssetToModelID(t *testing.T) {
	graph, history := fixture()
	s := New(graph, history).NewSession()
	ctx := context.Background()

	got, err := s.ResolveAssetToModelID(ctx, tagD1, false)
	require.NoError(t, err)
	assert.Equal(t, "mD1", got.URI)
	assert.False(t, got.Ambiguous)

	_, err = s.ResolveAssetToModelID(ctx, tagDraft, false)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.ResolveAssetToModelID(ctx, tagDraft, true)
	require.NoError(t, err)
	assert.Equal(t, "mDraft", got.URI)
}

func TestResolveAssetToModelIDAmbiguous(t *testing.T) {
	graph, history := fixture()
	graph.published = append(graph.published, graphquery.ModelRow{
		Model:   "mCopy",
		AssetID: assetURI(tagD1, "1.0.0"),
		Version: "1.0.0",
		State:   graphquery.StatePublished,
		Updated: at(600),
	})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(graph, history, WithMetrics(m)).NewSession()

	for i := 0; i < 3; i++ {
		got, err := s.ResolveAssetToModelID(context.Background(), tagD1, false)
		require.NoError(t, err)
		assert.Equal(t, "mD1", got.URI, "first encountered model wins")
		assert.True(t, got.Ambiguous)
		assert.Equal(t, []string{"mD1", "mCopy"}, got.Candidates)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.anomalies.WithLabelValues("ambiguous_asset")))
}

func TestArtifactDependenciesDeduplicates(t *testing.T) {
	graph, history := fixture()
	s := New(graph, history).NewSession()

	deps, err := s.ArtifactDependencies(context.Background(), "mA")
	require.NoError(t, err)
	assert.Equal(t, []string{"mD1", "mD2", "mDraft"}, deps)

	deps, err = s.ArtifactDependencies(context.Background(), "mD2")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestAssetDependenciesOmitsUnpublished(t *testing.T) {
	graph, history := fixture()
	s := New(graph, history).NewSession()

	assets, err := s.AssetDependencies(context.Background(), "mA")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, tagD1, assets[0].Tag)
	assert.Equal(t, tagD2, assets[1].Tag)
}

func TestResolveVersion(t *testing.T) {
	graph, history := fixture()
	s := New(graph, history).NewSession()
	ctx := context.Background()

	row, err := s.ResolveVersion(ctx, tagA, "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "mA", row.Model)

	_, err = s.ResolveVersion(ctx, tagA, "1.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotLatestVersion)
	assert.NotErrorIs(t, err, ErrNotFound)
	var nle *NotLatestVersionError
	require.True(t, errors.As(err, &nle))
	assert.Equal(t, tagA, nle.AssetTag)
	assert.Equal(t, "1.0.0", nle.Requested)
	assert.Equal(t, "1.2.0", nle.Latest)

	_, err = s.ResolveVersion(ctx, tagA, "3.0.0")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNotLatestVersion)

	_, err = s.ResolveVersion(ctx, uuid.New(), "1.0.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionMaterializesEachShapeOnce(t *testing.T) {
	graph, history := fixture()
	r := New(graph, history)
	s := r.NewSession()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.AssetDependencies(ctx, "mA")
		require.NoError(t, err)
		_, err = s.ResolveAssetToModelID(ctx, tagDraft, true)
		require.NoError(t, err)
		_, err = s.HistoricalDependencies(ctx, "mA", "1.0.0")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, graph.callsFor(shapePublished))
	assert.Equal(t, 1, graph.callsFor(shapeAll))
	assert.Equal(t, 1, graph.callsFor(shapeImports))
	assert.Equal(t, 1, history.calls["mA"])
	assert.Equal(t, 1, history.calls["mD1"])

	other := r.NewSession()
	_, err := other.ResolveModelToAssetID(ctx, "mA")
	require.NoError(t, err)
	assert.Equal(t, 2, graph.callsFor(shapePublished), "sessions do not share results")
}

func TestPrefetch(t *testing.T) {
	graph, history := fixture()
	s := New(graph, history).NewSession()

	require.NoError(t, s.Prefetch(context.Background()))
	assert.Equal(t, 1, graph.callsFor(shapePublished))
	assert.Equal(t, 1, graph.callsFor(shapeAll))
	assert.Equal(t, 1, graph.callsFor(shapeImports))

	_, err := s.ResolveModelToAssetID(context.Background(), "mA")
	require.NoError(t, err)
	assert.Equal(t, 1, graph.callsFor(shapePublished))
}

func TestQueryFailurePropagates(t *testing.T) {
	graph, history := fixture()
	graph.err = errors.New("connection reset")
	s := New(graph, history).NewSession()

	_, err := s.ResolveModelToAssetID(context.Background(), "mA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Prefetch(context.Background()))
}

func TestMissingStateDefaultsToDraft(t *testing.T) {
	graph, history := fixture()
	s := New(graph, history).NewSession()

	row, err := s.Model(context.Background(), "mDraft", true)
	require.NoError(t, err)
	assert.Equal(t, graphquery.StateDraft, row.State)
}

func TestInvalidAssetIDIsNotFatal(t *testing.T) {
	graph, history := fixture()
	graph.published[1].AssetID = "not-an-asset"
	s := New(graph, history).NewSession()

	_, err := s.ResolveModelToAssetID(context.Background(), "mD1")
	assert.ErrorIs(t, err, ErrNotFound)

	assets, err := s.AssetDependencies(context.Background(), "mA")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tagD2}, tags(assets))
}

func tags(assets []identifier.AssetID) []uuid.UUID {
	out := make([]uuid.UUID, len(assets))
	for i, a := range assets {
		out[i] = a.Tag
	}
	return out
}
