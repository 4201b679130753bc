package modelweaver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/c360studio/semweave/config"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/ingest"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/storage"
	"github.com/c360studio/semweave/weaver"
)

// Pipeline weaves a model document and resolves the identity bundle of the
// artifact version it was exported from. Every run uses its own resolution
// session.
type Pipeline struct {
	weaver   *weaver.Weaver
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// NewPipeline creates a pipeline. A nil resolver skips identity resolution.
func NewPipeline(w *weaver.Weaver, r *resolver.Resolver, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{weaver: w, resolver: r, logger: logger}
}

// Metrics groups the collectors a built pipeline records into.
type Metrics struct {
	Weaver   *weaver.Metrics
	Resolver *resolver.Metrics
}

// BuildPipeline wires a pipeline from configuration. Resolution is enabled
// when a graph source is configured; the returned closer releases it.
func BuildPipeline(cfg *config.Config, logger *slog.Logger, metrics Metrics) (*Pipeline, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	concepts, err := cfg.ConceptResolver()
	if err != nil {
		return nil, nil, err
	}
	w, err := weaver.New(cfg.Weave, concepts,
		weaver.WithLogger(logger),
		weaver.WithMetrics(metrics.Weaver))
	if err != nil {
		return nil, nil, err
	}

	if !cfg.CanResolve() {
		logger.Info("No graph source configured, identity resolution disabled")
		return NewPipeline(w, nil, logger), io.NopCloser(nil), nil
	}

	querier, history, closer, err := cfg.GraphSources()
	if err != nil {
		return nil, nil, err
	}
	r := resolver.New(querier, history,
		resolver.WithLogger(logger),
		resolver.WithMetrics(metrics.Resolver))
	return NewPipeline(w, r, logger), closer, nil
}

// Resolves reports whether the pipeline resolves identity bundles.
func (p *Pipeline) Resolves() bool {
	return p.resolver != nil
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	Result  *weaver.Result
	Content []byte
	Woven   graph.Woven
	// ResolveErr records why identity resolution failed. The woven
	// document is valid regardless.
	ResolveErr error
}

// Run weaves req and resolves its identity bundle. Only weaving errors fail
// the run.
func (p *Pipeline) Run(ctx context.Context, req *ingest.ModelRequest) (*Outcome, error) {
	res, err := p.weaver.Weave(ctx, []byte(req.Content))
	if err != nil {
		return nil, fmt.Errorf("weave %s: %w", req.Manifest.ModelURI, err)
	}
	content, err := res.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", req.Manifest.ModelURI, err)
	}

	out := &Outcome{
		Result:  res,
		Content: content,
		Woven: graph.Woven{
			Artifact:    req.Manifest.Artifact(),
			Name:        req.Manifest.Name,
			State:       req.Manifest.State,
			Notation:    res.Notation,
			Annotations: res.Annotations,
		},
	}

	if p.resolver == nil {
		return out, nil
	}
	if req.Manifest.Version == "" {
		out.ResolveErr = errors.New("manifest has no version")
		return out, nil
	}

	bundle, err := p.resolver.NewSession().ResolveBundle(ctx, req.Manifest)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("Identity resolution failed",
			"model", req.Manifest.ModelURI,
			"version", req.Manifest.Version,
			"error", err)
		out.ResolveErr = err
		return out, nil
	}
	out.Woven.Bundle = bundle
	return out, nil
}

// Document returns the storage record of the woven document.
func (o *Outcome) Document(wovenAt time.Time) *storage.Document {
	return &storage.Document{
		Artifact:    o.Woven.Artifact,
		Name:        o.Woven.Name,
		Notation:    o.Woven.Notation,
		Content:     string(o.Content),
		Annotations: o.Woven.Annotations,
		Diagnostics: o.Result.Diagnostics,
		WovenAt:     wovenAt,
	}
}

// StoredBundle returns the storage record of the identity bundle, or nil
// when resolution did not produce one.
func (o *Outcome) StoredBundle(resolvedAt time.Time) *storage.Bundle {
	if o.Woven.Bundle == nil {
		return nil
	}
	return &storage.Bundle{Bundle: *o.Woven.Bundle, ResolvedAt: resolvedAt}
}
