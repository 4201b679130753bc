package graphquery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semweave/identifier"
)

const modelsResponse = `{
  "head": {"vars": ["model","fileId","assetId","version","state","mimetype","artifactName","updated"]},
  "results": {"bindings": [
    {
      "model": {"type": "uri", "value": "http://vendor.example.com/models/m1"},
      "fileId": {"type": "literal", "value": "f1"},
      "assetId": {"type": "literal", "value": "https://semweave.dev/assets/0f3c1a9e-5b7d-4c2a-9e1f-6a8b4d2c0e11/versions/1.0.0"},
      "version": {"type": "literal", "value": "1.2.0"},
      "state": {"type": "literal", "value": "Published"},
      "mimetype": {"type": "literal", "value": "application/dmn-1-2+xml"},
      "artifactName": {"type": "literal", "value": "Eligibility"},
      "updated": {"type": "literal", "value": "2024-03-01T10:00:00Z"}
    },
    {
      "model": {"type": "uri", "value": "http://vendor.example.com/models/m2"},
      "fileId": {"type": "literal", "value": "f2"},
      "mimetype": {"type": "literal", "value": "application/cmmn-1-1+xml"},
      "artifactName": {"type": "literal", "value": "Intake"},
      "updated": {"type": "literal", "value": "2024-03-02T08:30:00"}
    }
  ]}
}`

const importsResponse = `{
  "results": {"bindings": [
    {"fromModel": {"type": "uri", "value": "m1"}, "toModel": {"type": "uri", "value": "m2"}},
    {"fromModel": {"type": "uri", "value": "m1"}}
  ]}
}`

func newGraphServer(t *testing.T, handler func(query string) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Header.Get("Accept"); got != "application/sparql-results+json" {
			t.Errorf("Accept = %q", got)
		}
		status, body := handler(r.PostForm.Get("query"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSPARQLQuerierModels(t *testing.T) {
	var queries []string
	srv := newGraphServer(t, func(query string) (int, string) {
		queries = append(queries, query)
		return http.StatusOK, modelsResponse
	})
	q := NewSPARQLQuerier(srv.URL, "", time.Second)

	rows, err := q.AllModels(context.Background())
	if err != nil {
		t.Fatalf("AllModels() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	first := rows[0]
	if first.Model != "http://vendor.example.com/models/m1" {
		t.Errorf("Model = %q", first.Model)
	}
	if first.State != StatePublished {
		t.Errorf("State = %q, want %q", first.State, StatePublished)
	}
	if !first.Published() {
		t.Error("Published() = false, want true")
	}
	if first.Notation() != identifier.NotationDecision {
		t.Errorf("Notation() = %q", first.Notation())
	}
	if want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC); !first.Updated.Equal(want) {
		t.Errorf("Updated = %v, want %v", first.Updated, want)
	}

	second := rows[1]
	if second.Published() {
		t.Error("draft row reported as published")
	}
	if second.State != StateAbsent {
		t.Errorf("State = %q, want absent", second.State)
	}
	if second.Updated.IsZero() {
		t.Error("zone-less timestamp was not parsed")
	}

	if _, err := q.PublishedModels(context.Background()); err != nil {
		t.Fatalf("PublishedModels() error = %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(queries))
	}
	if strings.Contains(queries[0], "FILTER") {
		t.Error("all-models query must not filter on version")
	}
	if !strings.Contains(queries[1], "FILTER(BOUND(?version))") {
		t.Error("published-models query must filter on version")
	}
	if !strings.Contains(queries[1], DefaultOntology) {
		t.Error("query does not use the default ontology")
	}
}

func TestSPARQLQuerierImportEdges(t *testing.T) {
	srv := newGraphServer(t, func(string) (int, string) { return http.StatusOK, importsResponse })
	q := NewSPARQLQuerier(srv.URL, "urn:ontology#", 0)

	edges, err := q.ImportEdges(context.Background())
	if err != nil {
		t.Fatalf("ImportEdges() error = %v", err)
	}
	if len(edges) != 1 || edges[0] != (ImportEdge{From: "m1", To: "m2"}) {
		t.Errorf("edges = %+v", edges)
	}
}

func TestSPARQLQuerierErrorStatus(t *testing.T) {
	srv := newGraphServer(t, func(string) (int, string) {
		return http.StatusBadGateway, "upstream down"
	})
	q := NewSPARQLQuerier(srv.URL, "", time.Second)

	_, err := q.PublishedModels(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("error = %v", err)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in   string
		want State
	}{
		{"Published", StatePublished},
		{"draft", StateDraft},
		{"Pending Approval", StatePendingApproval},
		{"pending-approval", StatePendingApproval},
		{"", StateAbsent},
		{"archived", StateAbsent},
	}
	for _, tt := range tests {
		if got := ParseState(tt.in); got != tt.want {
			t.Errorf("ParseState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
