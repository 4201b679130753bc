package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/c360studio/semweave/concept"
	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/repository"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/snapshot"
)

// ErrNoGraphSource is returned when neither a snapshot nor live graph and
// repository endpoints are configured.
var ErrNoGraphSource = errors.New("no graph source configured")

// ConceptResolver builds the concept resolver: the catalog first, then the
// terminology endpoint, behind an LRU cache.
func (c *Config) ConceptResolver() (concept.Resolver, error) {
	var chain concept.Chain
	if c.Concepts.Catalog != "" {
		catalog, err := concept.LoadCatalog(c.Concepts.Catalog)
		if err != nil {
			return nil, err
		}
		chain = append(chain, catalog)
	}
	if c.Concepts.Endpoint != "" {
		chain = append(chain, concept.NewHTTPResolver(c.Concepts.Endpoint, c.Concepts.Timeout))
	}
	if len(chain) == 0 {
		return nil, errors.New("concepts.catalog or concepts.endpoint is required")
	}

	var next concept.Resolver = chain
	if len(chain) == 1 {
		next = chain[0]
	}
	return concept.NewCachingResolver(next, c.Concepts.CacheSize)
}

// GraphSources opens the graph querier and version history source. A
// configured snapshot serves both. The returned closer must be closed
// when the sources are no longer needed.
func (c *Config) GraphSources() (graphquery.Querier, resolver.HistorySource, io.Closer, error) {
	if c.Graph.Snapshot != "" {
		store, err := snapshot.Open(c.Graph.Snapshot)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store, nil
	}
	if c.Graph.Endpoint == "" || c.Repository.Endpoint == "" {
		return nil, nil, nil, fmt.Errorf("%w: set graph.snapshot or graph.endpoint and repository.endpoint", ErrNoGraphSource)
	}
	querier := graphquery.NewSPARQLQuerier(c.Graph.Endpoint, c.Graph.Ontology, c.Graph.Timeout)
	history := repository.NewClient(c.Repository.Endpoint, c.Repository.Timeout)
	return querier, history, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
