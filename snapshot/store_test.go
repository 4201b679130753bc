package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/resolver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

type staticGraph struct {
	published []graphquery.ModelRow
	all       []graphquery.ModelRow
	edges     []graphquery.ImportEdge
}

func (g staticGraph) PublishedModels(context.Context) ([]graphquery.ModelRow, error) {
	return g.published, nil
}

func (g staticGraph) AllModels(context.Context) ([]graphquery.ModelRow, error) {
	return g.all, nil
}

func (g staticGraph) ImportEdges(context.Context) ([]graphquery.ImportEdge, error) {
	return g.edges, nil
}

var assetTag = uuid.MustParse("0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11")

func testGraph() staticGraph {
	a := graphquery.ModelRow{
		Model:    "mA",
		FileID:   "fA",
		AssetID:  "https://semweave.dev/assets/" + assetTag.String() + "/versions/1.1.0",
		Version:  "1.1.0",
		State:    graphquery.StatePublished,
		MimeType: "application/dmn+xml",
		Name:     "Eligibility",
		Updated:  at(300),
	}
	d := graphquery.ModelRow{Model: "mD", Version: "2.0.0", State: graphquery.StatePublished, Updated: at(250)}
	draft := graphquery.ModelRow{Model: "mDraft", Name: "Draft"}
	return staticGraph{
		published: []graphquery.ModelRow{a, d},
		all:       []graphquery.ModelRow{a, draft, d},
		edges:     []graphquery.ImportEdge{{From: "mA", To: "mD"}, {From: "mA", To: "mDraft"}},
	}
}

func testHistory() resolver.HistoryFunc {
	histories := map[string][]identifier.ArtifactRef{
		"mA": {
			{ModelURI: "mA", Version: "1.1.0", Updated: at(300)},
			{ModelURI: "mA", Version: "1.0.0", Updated: at(100)},
		},
		"mD": {
			{ModelURI: "mD", Version: "1.0.0", Updated: at(50)},
			{ModelURI: "mD", Version: "2.0.0", Updated: at(250)},
		},
	}
	return func(_ context.Context, model string) ([]identifier.ArtifactRef, error) {
		return histories[model], nil
	}
}

func TestCaptureAndServe(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	info, err := Capture(ctx, testGraph(), testHistory(), st, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Models)
	assert.Equal(t, 2, info.Published)
	assert.Equal(t, 2, info.Imports)
	assert.Equal(t, 4, info.Versions)

	published, err := st.PublishedModels(ctx)
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, testGraph().published[0], published[0])
	assert.Equal(t, "mD", published[1].Model)

	all, err := st.AllModels(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"mA", "mDraft", "mD"}, []string{all[0].Model, all[1].Model, all[2].Model})
	assert.True(t, all[1].Updated.IsZero())

	edges, err := st.ImportEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, testGraph().edges, edges)

	history, err := st.VersionHistory(ctx, "mA")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "1.0.0", history[0].Version)
	assert.Equal(t, at(100), history[0].Updated)

	stored, err := st.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.ID, stored.ID)
	assert.Equal(t, info.Versions, stored.Versions)
}

func TestSnapshotDrivesResolver(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	_, err := Capture(ctx, testGraph(), testHistory(), st, nil)
	require.NoError(t, err)

	s := resolver.New(st, st).NewSession()
	b, err := s.ResolveBundle(ctx, resolver.Manifest{ModelURI: "mA", Version: "1.0.0"})
	require.NoError(t, err)
	assert.True(t, b.Historical)
	require.Len(t, b.DependencyArtifacts, 1)
	assert.Equal(t, "1.0.0", b.DependencyArtifacts[0].Version)
}

func TestReplaceOverwrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := Capture(ctx, testGraph(), testHistory(), st, nil)
	require.NoError(t, err)
	info, err := st.Replace(ctx, Data{CapturedAt: at(1000)})
	require.NoError(t, err)
	assert.Zero(t, info.Models)

	all, err := st.AllModels(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInfoOnEmptyStore(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Info(context.Background())
	assert.ErrorIs(t, err, ErrEmpty)
}
