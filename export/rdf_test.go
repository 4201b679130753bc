package export_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
	"github.com/c360studio/semweave/annotation"
	"github.com/c360studio/semweave/concept"
	"github.com/c360studio/semweave/export"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/vocabulary/weave"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assetID = "semweave.local.weave.asset.asset.0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11"

func assetEntity() export.Entity {
	return export.Entity{
		ID:         assetID,
		EntityType: weave.EntityTypeAsset,
		Triples: []message.Triple{
			{Subject: assetID, Predicate: weave.AssetVersion, Object: "1.0.0"},
			{Subject: assetID, Predicate: weave.AnnotationCaptures, Object: "https://terms.example.com/concepts/eligibility"},
			{Subject: assetID, Predicate: weave.AssetTimestamp, Object: "2024-05-01T12:00:00Z"},
		},
	}
}

func testWoven() graph.Woven {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	art := identifier.ArtifactRef{ModelURI: "http://vendor.example.com/models/m1", Version: "1.0.0", Updated: ts}
	return graph.Woven{
		Artifact: art,
		Name:     "Eligibility \"v1\"",
		State:    graphquery.StatePublished,
		Notation: identifier.NotationDecision,
		Annotations: []annotation.Annotation{
			{Rel: annotation.Captures, Ref: concept.Descriptor{
				Tag: "c1", URI: "https://terms.example.com/concepts/eligibility", Label: "Eligibility", Scheme: "SNOMED",
			}},
			{Rel: annotation.InTermsOf, Ref: concept.Descriptor{URI: "https://terms.example.com/concepts/age"}},
		},
		Bundle: &resolver.Bundle{
			AssetID: identifier.AssetID{
				Namespace:  weave.AssetsNamespace,
				Tag:        uuid.MustParse("0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11"),
				VersionTag: "1.0.0",
				Timestamp:  ts,
			},
			Artifact: art,
		},
	}
}

func TestExportTurtle(t *testing.T) {
	exporter := export.NewRDFExporter(export.ProfileMinimal)
	exporter.AddEntity(assetEntity())

	output, err := exporter.Export(export.FormatTurtle)
	require.NoError(t, err)

	assert.Contains(t, output, "@prefix weave: <"+weave.Namespace+">")
	assert.Contains(t, output, "<"+weave.EntityNamespace+"asset/0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11>")
	assert.Contains(t, output, "a <"+weave.ClassKnowledgeAsset+"> ;")
	assert.Contains(t, output, "<"+weave.IRICaptures+"> <https://terms.example.com/concepts/eligibility>")
	assert.Contains(t, output, "\"2024-05-01T12:00:00Z\"^^xsd:dateTime .")
}

func TestExportTurtlePrefixesSorted(t *testing.T) {
	output, err := export.NewRDFExporter(export.ProfileMinimal).Export(export.FormatTurtle)
	require.NoError(t, err)

	var prefixes []string
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "@prefix") {
			prefixes = append(prefixes, line)
		}
	}
	require.NotEmpty(t, prefixes)
	for i := 1; i < len(prefixes); i++ {
		if prefixes[i-1] > prefixes[i] {
			t.Errorf("prefixes out of order: %q before %q", prefixes[i-1], prefixes[i])
		}
	}
}

func TestExportNTriples(t *testing.T) {
	exporter := export.NewRDFExporter(export.ProfileMinimal)
	exporter.AddEntity(assetEntity())

	output, err := exporter.Export(export.FormatNTriples)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	// two type assertions plus three triples
	assert.Len(t, lines, 5)
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, " ."), "line %q not terminated", line)
		assert.True(t, strings.HasPrefix(line, "<"), "line %q does not start with an IRI", line)
	}
	assert.Contains(t, output, "^^<http://www.w3.org/2001/XMLSchema#dateTime>")
}

func TestExportJSONLD(t *testing.T) {
	exporter := export.NewRDFExporter(export.ProfileMinimal)
	exporter.AddEntity(assetEntity())

	output, err := exporter.Export(export.FormatJSONLD)
	require.NoError(t, err)

	doc, err := export.ParseJSONLD([]byte(output))
	require.NoError(t, err)
	require.Len(t, doc.Graph, 1)

	node := doc.Graph[0]
	assert.Equal(t, weave.EntityNamespace+"asset/0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11", node.ID)
	assert.Contains(t, node.Type, weave.ClassKnowledgeAsset)
	assert.Equal(t, "1.0.0", node.Properties[weave.GetPredicateIRI(weave.AssetVersion)])
	assert.Equal(t,
		map[string]any{"@id": "https://terms.example.com/concepts/eligibility"},
		node.Properties[weave.IRICaptures])
	assert.Equal(t, weave.Namespace, doc.Context["weave"])
}

func TestExportJSONLDRepeatedPredicate(t *testing.T) {
	e := assetEntity()
	e.Triples = append(e.Triples, message.Triple{
		Subject: assetID, Predicate: weave.AnnotationCaptures, Object: "https://terms.example.com/concepts/income",
	})
	exporter := export.NewRDFExporter(export.ProfileMinimal)
	exporter.AddEntity(e)

	output, err := exporter.Export(export.FormatJSONLD)
	require.NoError(t, err)

	var raw struct {
		Graph []map[string]json.RawMessage `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &raw))
	require.Len(t, raw.Graph, 1)

	var values []map[string]string
	require.NoError(t, json.Unmarshal(raw.Graph[0][weave.IRICaptures], &values))
	assert.Len(t, values, 2)
}

func TestExportProfiles(t *testing.T) {
	tests := []struct {
		profile export.Profile
		want    string
		absent  string
	}{
		{export.ProfileMinimal, vocabulary.ProvEntity, bfo.GenericallyDependentContinuant},
		{export.ProfileBFO, bfo.GenericallyDependentContinuant, cco.InformationContentEntity},
		{export.ProfileCCO, cco.InformationContentEntity, ""},
	}
	for _, tc := range tests {
		t.Run(string(tc.profile), func(t *testing.T) {
			exporter := export.NewRDFExporter(tc.profile)
			exporter.AddEntity(assetEntity())
			output, err := exporter.Export(export.FormatNTriples)
			require.NoError(t, err)
			assert.Contains(t, output, "<"+tc.want+">")
			if tc.absent != "" {
				assert.NotContains(t, output, "<"+tc.absent+">")
			}
		})
	}
}

func TestAddEntityMergesByID(t *testing.T) {
	exporter := export.NewRDFExporter(export.ProfileMinimal)
	exporter.AddEntity(assetEntity())
	exporter.AddEntity(export.Entity{
		ID:      assetID,
		Triples: []message.Triple{{Subject: assetID, Predicate: weave.AssetTag, Object: "0f3c"}},
	})
	assert.Equal(t, 1, exporter.Len())

	output, err := exporter.Export(export.FormatNTriples)
	require.NoError(t, err)
	assert.Contains(t, output, "\"0f3c\"")
}

func TestAddWoven(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	w := testWoven()

	exporter := export.NewRDFExporter(export.ProfileCCO)
	exporter.AddWoven(w, now)

	// artifact, asset and the labelled concept
	assert.Equal(t, 3, exporter.Len())

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(&buf, export.FormatTurtle))
	out := buf.String()

	assert.Contains(t, out, "a <"+weave.ClassArtifact+">")
	assert.Contains(t, out, "a <"+weave.ClassConcept+">")
	assert.Contains(t, out, "\"Eligibility\"")
	assert.Contains(t, out, "\"Eligibility \\\"v1\\\"\"")
	assert.Contains(t, out, "<"+weave.EntityNamespace+"artifact/"+w.Artifact.Key()+">")
	assert.Contains(t, out, "\"false\"^^xsd:boolean")
}

func TestExportObjectTypes(t *testing.T) {
	exporter := export.NewRDFExporter(export.ProfileMinimal)
	exporter.AddEntity(export.Entity{
		ID:         assetID,
		EntityType: weave.EntityTypeAsset,
		Triples: []message.Triple{
			{Subject: assetID, Predicate: "weave.test.int", Object: 42},
			{Subject: assetID, Predicate: "weave.test.float", Object: 0.5},
			{Subject: assetID, Predicate: "weave.test.multiline", Object: "a\nb"},
			{Subject: assetID, Predicate: "weave.test.ref", Object: "semweave.local.weave.artifact.artifact.k1"},
		},
	})

	output, err := exporter.Export(export.FormatTurtle)
	require.NoError(t, err)
	assert.Contains(t, output, "\"42\"^^xsd:integer")
	assert.Contains(t, output, "\"0.5\"^^xsd:decimal")
	assert.Contains(t, output, "\"a\\nb\"")
	assert.Contains(t, output, "<"+weave.EntityNamespace+"artifact/k1>")
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := export.NewRDFExporter(export.ProfileMinimal).Export("rdfxml")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	tests := map[string]export.Format{
		"turtle": export.FormatTurtle,
		"ttl":    export.FormatTurtle,
		".nt":    export.FormatNTriples,
		"JSONLD": export.FormatJSONLD,
	}
	for in, want := range tests {
		got, err := export.ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := export.ParseFormat("rdfxml"); err == nil {
		t.Error("expected error for rdfxml")
	}
}
