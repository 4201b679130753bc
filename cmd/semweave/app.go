package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/semweave/config"
	"github.com/c360studio/semweave/export"
	"github.com/c360studio/semweave/ingest"
	modelweaver "github.com/c360studio/semweave/processor/model-weaver"
	"github.com/c360studio/semweave/resolver"
	"golang.org/x/sync/errgroup"
)

// App wires configuration, the weave pipeline and output for the CLI
// commands.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pipeline *modelweaver.Pipeline
	closer   io.Closer
}

// loadConfig runs the layered config loader.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.NewLoader(slog.Default()).Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// NewApp builds the weave pipeline described by cfg.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pipeline, closer, err := modelweaver.BuildPipeline(cfg, logger, modelweaver.Metrics{})
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, logger: logger, pipeline: pipeline, closer: closer}, nil
}

// Close releases the graph sources.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// wovenFile is the outcome of weaving one file.
type wovenFile struct {
	Path    string
	Outcome *modelweaver.Outcome
	Err     error
}

// WeaveFiles weaves files with at most jobs running concurrently. Results
// keep the order of files; a failing file does not stop the others.
func (a *App) WeaveFiles(ctx context.Context, files []string, jobs int) []wovenFile {
	results := make([]wovenFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range files {
		g.Go(func() error {
			results[i] = a.weaveFile(gctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *App) weaveFile(ctx context.Context, path string) wovenFile {
	res := wovenFile{Path: path}
	req, err := ingest.FromFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	out, err := a.pipeline.Run(ctx, req)
	if err != nil {
		res.Err = err
		return res
	}
	res.Outcome = out

	a.logger.Info("Woven",
		"file", filepath.Base(path),
		"model", req.Manifest.ModelURI,
		"notation", out.Woven.Notation,
		"annotations", len(out.Woven.Annotations),
		"diagnostics", len(out.Result.Diagnostics),
		"bundle", out.Woven.Bundle != nil)
	for _, d := range out.Result.Diagnostics {
		a.logger.Debug("Diagnostic", "file", filepath.Base(path), "code", d.Code, "element", d.Element, "message", d.Message)
	}
	return res
}

// WriteDocument writes the canonical document of out into dir under the
// source file's name.
func WriteDocument(dir, srcPath string, out *modelweaver.Outcome) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(srcPath))
	if err := os.WriteFile(target, out.Content, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

// ExportRDF serializes the annotations and identity bundles of the woven
// files.
func ExportRDF(w io.Writer, results []wovenFile, format export.Format, profile export.Profile) error {
	exporter := export.NewRDFExporter(profile)
	now := time.Now()
	for _, r := range results {
		if r.Outcome != nil {
			exporter.AddWoven(r.Outcome.Woven, now)
		}
	}
	return exporter.Write(w, format)
}

// openResolver builds a resolver over the configured graph source.
func openResolver(cfg *config.Config, logger *slog.Logger) (*resolver.Resolver, io.Closer, error) {
	querier, history, closer, err := cfg.GraphSources()
	if err != nil {
		return nil, nil, err
	}
	return resolver.New(querier, history, resolver.WithLogger(logger)), closer, nil
}
