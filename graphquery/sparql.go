package graphquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// maxErrorBodySize limits the size of error response bodies.
	maxErrorBodySize = 4096

	// DefaultTimeout bounds one query round trip.
	DefaultTimeout = 30 * time.Second

	// DefaultOntology is the vendor ontology the queries are written against.
	DefaultOntology = "http://vendor.example.com/graph/ontology#"
)

// SPARQLQuerier runs the graph queries against a SPARQL endpoint that
// answers with application/sparql-results+json.
type SPARQLQuerier struct {
	endpoint   string
	ontology   string
	httpClient *http.Client
}

// NewSPARQLQuerier creates a querier for endpoint. An empty ontology selects
// DefaultOntology; a zero timeout selects DefaultTimeout.
func NewSPARQLQuerier(endpoint, ontology string, timeout time.Duration) *SPARQLQuerier {
	if ontology == "" {
		ontology = DefaultOntology
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SPARQLQuerier{
		endpoint:   endpoint,
		ontology:   ontology,
		httpClient: &http.Client{Timeout: timeout},
	}
}

const modelsQuery = `PREFIX v: <%s>
SELECT ?model ?fileId ?assetId ?version ?state ?mimetype ?artifactName ?updated
WHERE {
  ?model a v:Model ;
         v:fileId ?fileId ;
         v:mimetype ?mimetype ;
         v:name ?artifactName ;
         v:updated ?updated .
  OPTIONAL { ?model v:customAttribute ?attr . ?attr v:key "assetID" ; v:value ?assetId . }
  OPTIONAL { ?model v:version ?version . }
  OPTIONAL { ?model v:state ?state . }
  %s
}
ORDER BY ?model`

const importsQuery = `PREFIX v: <%s>
SELECT DISTINCT ?fromModel ?toModel
WHERE {
  ?fromModel v:imports ?toModel .
}
ORDER BY ?fromModel ?toModel`

// PublishedModels implements Querier.
func (q *SPARQLQuerier) PublishedModels(ctx context.Context) ([]ModelRow, error) {
	query := fmt.Sprintf(modelsQuery, q.ontology, `FILTER(BOUND(?version))`)
	rows, err := q.selectModels(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("published models: %w", err)
	}
	return rows, nil
}

// AllModels implements Querier.
func (q *SPARQLQuerier) AllModels(ctx context.Context) ([]ModelRow, error) {
	rows, err := q.selectModels(ctx, fmt.Sprintf(modelsQuery, q.ontology, ""))
	if err != nil {
		return nil, fmt.Errorf("all models: %w", err)
	}
	return rows, nil
}

// ImportEdges implements Querier.
func (q *SPARQLQuerier) ImportEdges(ctx context.Context) ([]ImportEdge, error) {
	bindings, err := q.execute(ctx, fmt.Sprintf(importsQuery, q.ontology))
	if err != nil {
		return nil, fmt.Errorf("import edges: %w", err)
	}
	edges := make([]ImportEdge, 0, len(bindings))
	for _, b := range bindings {
		from, to := b.value("fromModel"), b.value("toModel")
		if from == "" || to == "" {
			continue
		}
		edges = append(edges, ImportEdge{From: from, To: to})
	}
	return edges, nil
}

func (q *SPARQLQuerier) selectModels(ctx context.Context, query string) ([]ModelRow, error) {
	bindings, err := q.execute(ctx, query)
	if err != nil {
		return nil, err
	}
	rows := make([]ModelRow, 0, len(bindings))
	for _, b := range bindings {
		row := ModelRow{
			Model:    b.value("model"),
			FileID:   b.value("fileId"),
			AssetID:  b.value("assetId"),
			Version:  b.value("version"),
			State:    ParseState(b.value("state")),
			MimeType: b.value("mimetype"),
			Name:     b.value("artifactName"),
		}
		if row.Model == "" {
			continue
		}
		if raw := b.value("updated"); raw != "" {
			ts, err := parseTimestamp(raw)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", row.Model, err)
			}
			row.Updated = ts
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sparqlResults is the SPARQL 1.1 JSON results format.
type sparqlResults struct {
	Results struct {
		Bindings []binding `json:"bindings"`
	} `json:"results"`
}

type binding map[string]struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (b binding) value(name string) string {
	return strings.TrimSpace(b[name].Value)
}

func (q *SPARQLQuerier) execute(ctx context.Context, query string) ([]binding, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("graph endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var result sparqlResults
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Results.Bindings, nil
}

// parseTimestamp accepts xsd:dateTime values with or without a zone.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
