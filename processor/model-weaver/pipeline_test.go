package modelweaver

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semweave/annotation"
	"github.com/c360studio/semweave/concept"
	"github.com/c360studio/semweave/config"
	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/ingest"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/weaver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vendorNS   = "http://vendor.example.com/modeling"
	vendorBase = "http://vendor.example.com/definitions/"
	modelA     = "http://vendor.example.com/definitions/_a1b2"
	modelDep   = "http://vendor.example.com/definitions/_c3d4"
	assetsNS   = "https://semweave.dev/assets/"
)

var (
	tagA   = uuid.MustParse("0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11")
	tagDep = uuid.MustParse("1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c01")
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func weaveConfig() weaver.Config {
	cfg := weaver.DefaultConfig()
	cfg.VendorNamespaces = []string{vendorNS}
	cfg.VendorBaseURI = vendorBase
	cfg.SchemaLocations = map[identifier.Notation]string{
		identifier.NotationDecision: "https://schemas.semweave.dev/dmn/DMN13.xsd",
		identifier.NotationCase:     "https://schemas.semweave.dev/cmmn/CMMN11.xsd",
		identifier.NotationProcess:  "https://schemas.semweave.dev/bpmn/BPMN20.xsd",
	}
	return cfg
}

type staticGraph struct {
	published []graphquery.ModelRow
	edges     []graphquery.ImportEdge
}

func (g *staticGraph) PublishedModels(context.Context) ([]graphquery.ModelRow, error) {
	return g.published, nil
}

func (g *staticGraph) AllModels(context.Context) ([]graphquery.ModelRow, error) {
	return g.published, nil
}

func (g *staticGraph) ImportEdges(context.Context) ([]graphquery.ImportEdge, error) {
	return g.edges, nil
}

// testResolver serves modelA at 1.2.0 importing modelDep at 2.0.0.
//
//	modelA:   1.0.0@100  1.2.0@400
//	modelDep: 1.0.0@90   2.0.0@350
func testResolver() *resolver.Resolver {
	graph := &staticGraph{
		published: []graphquery.ModelRow{
			{Model: modelA, AssetID: assetsNS + tagA.String() + "/versions/1.2.0", Version: "1.2.0", State: graphquery.StatePublished, Updated: at(400)},
			{Model: modelDep, AssetID: assetsNS + tagDep.String() + "/versions/2.0.0", Version: "2.0.0", State: graphquery.StatePublished, Updated: at(350)},
		},
		edges: []graphquery.ImportEdge{{From: modelA, To: modelDep}},
	}
	histories := map[string][]identifier.ArtifactRef{
		modelA:   {{ModelURI: modelA, Version: "1.0.0", Updated: at(100)}, {ModelURI: modelA, Version: "1.2.0", Updated: at(400)}},
		modelDep: {{ModelURI: modelDep, Version: "1.0.0", Updated: at(90)}, {ModelURI: modelDep, Version: "2.0.0", Updated: at(350)}},
	}
	history := resolver.HistoryFunc(func(_ context.Context, modelURI string) ([]identifier.ArtifactRef, error) {
		return histories[modelURI], nil
	})
	return resolver.New(graph, history)
}

func newTestPipeline(t *testing.T, r *resolver.Resolver) *Pipeline {
	t.Helper()
	catalog, err := concept.LoadCatalog(filepath.Join("testdata", "concepts.yaml"))
	require.NoError(t, err)
	w, err := weaver.New(weaveConfig(), catalog)
	require.NoError(t, err)
	return NewPipeline(w, r, nil)
}

func testRequest(t *testing.T, version string, updated time.Time) *ingest.ModelRequest {
	t.Helper()
	req, err := ingest.FromFile(filepath.Join("testdata", "eligibility.dmn"))
	require.NoError(t, err)
	require.Equal(t, modelA, req.Manifest.ModelURI)
	if version != "" {
		req.Manifest.Version = version
		req.Manifest.Updated = updated
	}
	return req
}

func TestPipelineLatestVersion(t *testing.T) {
	p := newTestPipeline(t, testResolver())
	req := testRequest(t, "1.2.0", at(400))

	out, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, out.ResolveErr)

	assert.Equal(t, identifier.NotationDecision, out.Woven.Notation)
	assert.Equal(t, "Eligibility", out.Woven.Name)
	assert.Equal(t, graphquery.StatePublished, out.Woven.State)
	require.Len(t, out.Woven.Annotations, 1)
	assert.Equal(t, annotation.Captures, out.Woven.Annotations[0].Rel)
	assert.False(t, strings.Contains(string(out.Content), vendorNS), "vendor namespace leaked")

	require.NotNil(t, out.Woven.Bundle)
	b := out.Woven.Bundle
	assert.False(t, b.Historical)
	assert.Equal(t, tagA, b.AssetID.Tag)
	require.Len(t, b.DependencyArtifacts, 1)
	assert.Equal(t, "2.0.0", b.DependencyArtifacts[0].Version)
	require.Len(t, b.DependencyAssetIDs, 1)
	assert.Equal(t, tagDep, b.DependencyAssetIDs[0].Tag)
}

func TestPipelineHistoricalVersion(t *testing.T) {
	p := newTestPipeline(t, testResolver())
	req := testRequest(t, "1.0.0", at(100))

	out, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, out.ResolveErr)
	require.NotNil(t, out.Woven.Bundle)

	b := out.Woven.Bundle
	assert.True(t, b.Historical)
	assert.Equal(t, "1.0.0", b.AssetID.VersionTag)
	require.Len(t, b.DependencyArtifacts, 1)
	assert.Equal(t, "1.0.0", b.DependencyArtifacts[0].Version)
}

func TestPipelineUnknownVersionKeepsDocument(t *testing.T) {
	p := newTestPipeline(t, testResolver())
	req := testRequest(t, "9.9.9", at(900))

	out, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, errors.Is(out.ResolveErr, resolver.ErrNotFound), "got %v", out.ResolveErr)
	assert.Nil(t, out.Woven.Bundle)
	assert.NotEmpty(t, out.Content)
	assert.Nil(t, out.StoredBundle(time.Now()))
}

func TestPipelineWithoutResolver(t *testing.T) {
	p := newTestPipeline(t, nil)
	assert.False(t, p.Resolves())

	out, err := p.Run(context.Background(), testRequest(t, "", time.Time{}))
	require.NoError(t, err)
	assert.NoError(t, out.ResolveErr)
	assert.Nil(t, out.Woven.Bundle)
}

func TestPipelineMalformedDocument(t *testing.T) {
	p := newTestPipeline(t, testResolver())
	req := &ingest.ModelRequest{
		Manifest: resolver.Manifest{ModelURI: modelA, Version: "1.2.0"},
		Content:  "<definitions",
	}
	_, err := p.Run(context.Background(), req)
	assert.True(t, errors.Is(err, weaver.ErrMalformedDocument), "got %v", err)
}

func TestOutcomeRecords(t *testing.T) {
	p := newTestPipeline(t, testResolver())
	out, err := p.Run(context.Background(), testRequest(t, "1.2.0", at(400)))
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := out.Document(now)
	assert.Equal(t, modelA, doc.Artifact.ModelURI)
	assert.Equal(t, "1.2.0", doc.Artifact.Version)
	assert.Equal(t, string(out.Content), doc.Content)
	assert.Equal(t, now, doc.WovenAt)
	assert.Len(t, doc.Annotations, 1)

	b := out.StoredBundle(now)
	require.NotNil(t, b)
	assert.Equal(t, tagA, b.Bundle.AssetID.Tag)
	assert.Equal(t, now, b.ResolvedAt)
}

func TestBuildPipeline(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Weave = weaveConfig()
	cfg.Concepts.Catalog = filepath.Join("testdata", "concepts.yaml")

	p, closer, err := BuildPipeline(cfg, nil, Metrics{})
	require.NoError(t, err)
	assert.False(t, p.Resolves())
	require.NoError(t, closer.Close())

	cfg.Graph.Snapshot = filepath.Join(t.TempDir(), "graph.db")
	p, closer, err = BuildPipeline(cfg, nil, Metrics{})
	require.NoError(t, err)
	defer closer.Close()
	assert.True(t, p.Resolves())

	// An empty snapshot knows no models.
	out, err := p.Run(context.Background(), testRequest(t, "1.2.0", at(400)))
	require.NoError(t, err)
	assert.True(t, errors.Is(out.ResolveErr, resolver.ErrNotFound), "got %v", out.ResolveErr)
}

func TestBuildPipelineConfigError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Concepts.Catalog = filepath.Join("testdata", "concepts.yaml")

	_, _, err := BuildPipeline(cfg, nil, Metrics{})
	assert.True(t, errors.Is(err, weaver.ErrConfig), "got %v", err)
}
