// Package resolver maps vendor model identifiers to stable asset identifiers
// and reconstructs the dependency versions of historical artifact versions.
//
// All queries run inside a Session. A session materializes each graph query
// shape at most once, indexes it by model URI and never shares it with other
// sessions.
package resolver

import (
	"context"
	"log/slog"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
)

// HistorySource returns the published versions of a model in ascending
// timestamp order.
type HistorySource interface {
	VersionHistory(ctx context.Context, modelURI string) ([]identifier.ArtifactRef, error)
}

// HistoryFunc adapts a function to the HistorySource interface.
type HistoryFunc func(ctx context.Context, modelURI string) ([]identifier.ArtifactRef, error)

// VersionHistory calls f.
func (f HistoryFunc) VersionHistory(ctx context.Context, modelURI string) ([]identifier.ArtifactRef, error) {
	return f(ctx, modelURI)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records resolution activity in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// Resolver creates resolution sessions over a graph and a history source.
type Resolver struct {
	graph   graphquery.Querier
	history HistorySource
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a Resolver.
func New(graph graphquery.Querier, history HistorySource, opts ...Option) *Resolver {
	r := &Resolver{
		graph:   graph,
		history: history,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewSession starts a resolution pass with empty caches.
func (r *Resolver) NewSession() *Session {
	return &Session{
		r:         r,
		histories: make(map[string][]identifier.ArtifactRef),
	}
}
