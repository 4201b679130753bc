package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/google/uuid"
)

const assetNS = "https://semweave.dev/assets/"

var (
	tagA     = uuid.MustParse("0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11")
	tagD1    = uuid.MustParse("1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c01")
	tagD2    = uuid.MustParse("1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c02")
	tagDraft = uuid.MustParse("1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c03")
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func assetURI(tag uuid.UUID, version string) string {
	return assetNS + tag.String() + "/versions/" + version
}

type fakeGraph struct {
	mu        sync.Mutex
	published []graphquery.ModelRow
	all       []graphquery.ModelRow
	edges     []graphquery.ImportEdge
	calls     map[string]int
	err       error
}

func (g *fakeGraph) count(shape string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[shape]++
}

func (g *fakeGraph) callsFor(shape string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[shape]
}

func (g *fakeGraph) PublishedModels(context.Context) ([]graphquery.ModelRow, error) {
	g.count(shapePublished)
	return g.published, g.err
}

func (g *fakeGraph) AllModels(context.Context) ([]graphquery.ModelRow, error) {
	g.count(shapeAll)
	return g.all, g.err
}

func (g *fakeGraph) ImportEdges(context.Context) ([]graphquery.ImportEdge, error) {
	g.count(shapeImports)
	return g.edges, g.err
}

type fakeHistory struct {
	mu        sync.Mutex
	histories map[string][]identifier.ArtifactRef
	calls     map[string]int
}

func (h *fakeHistory) VersionHistory(_ context.Context, modelURI string) ([]identifier.ArtifactRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.calls == nil {
		h.calls = make(map[string]int)
	}
	h.calls[modelURI]++
	return h.histories[modelURI], nil
}

func ref(model, version string, sec int64) identifier.ArtifactRef {
	return identifier.ArtifactRef{ModelURI: model, Version: version, Updated: at(sec)}
}

// fixture models artifact mA importing mD1, mD2 and a never-published mDraft.
//
//	mA:     1.0.0@100  1.1.0@250  1.2.0@400
//	mD1:    1.0.0@90   1.5.0@200  2.0.0@350
//	mD2:    1.0.0@120
//	mDraft: (no published versions)
func fixture() (*fakeGraph, *fakeHistory) {
	published := []graphquery.ModelRow{
		{Model: "mA", AssetID: assetURI(tagA, "1.2.0"), Version: "1.2.0", State: graphquery.StatePublished, MimeType: "application/dmn+xml", Name: "Eligibility", Updated: at(400)},
		{Model: "mD1", AssetID: assetURI(tagD1, "2.0.0"), Version: "2.0.0", State: graphquery.StatePublished, MimeType: "application/dmn+xml", Name: "Risk", Updated: at(350)},
		{Model: "mD2", AssetID: assetURI(tagD2, "1.0.0"), Version: "1.0.0", State: graphquery.StatePublished, MimeType: "application/dmn+xml", Name: "Age", Updated: at(120)},
	}
	all := append([]graphquery.ModelRow{}, published...)
	all = append(all, graphquery.ModelRow{Model: "mDraft", AssetID: assetURI(tagDraft, ""), MimeType: "application/cmmn+xml", Name: "Draft", Updated: at(500)})

	graph := &fakeGraph{
		published: published,
		all:       all,
		edges: []graphquery.ImportEdge{
			{From: "mA", To: "mD1"},
			{From: "mA", To: "mD2"},
			{From: "mA", To: "mD1"},
			{From: "mA", To: "mDraft"},
		},
	}
	history := &fakeHistory{histories: map[string][]identifier.ArtifactRef{
		"mA":  {ref("mA", "1.0.0", 100), ref("mA", "1.1.0", 250), ref("mA", "1.2.0", 400)},
		"mD1": {ref("mD1", "1.0.0", 90), ref("mD1", "1.5.0", 200), ref("mD1", "2.0.0", 350)},
		"mD2": {ref("mD2", "1.0.0", 120)},
	}}
	return graph, history
}
