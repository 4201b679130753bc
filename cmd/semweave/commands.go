package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/c360studio/semweave/config"
	"github.com/c360studio/semweave/export"
	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/ingest"
	"github.com/c360studio/semweave/repository"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/snapshot"
	"github.com/c360studio/semweave/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func weaveCmd(flags *globalFlags) *cobra.Command {
	var (
		outDir  string
		jobs    int
		rdf     string
		profile string
		rdfOut  string
	)

	cmd := &cobra.Command{
		Use:   "weave <file|glob>...",
		Short: "Weave model files into canonical documents",
		Long: `Weave rewrites each vendor model file into a canonical document.

A file's artifact manifest is read from "<file>.manifest.yaml" when present.
When a graph source is configured, the identity bundle of each artifact
version is resolved as well; resolution failures are reported but never
fail the weave.

With a single input and no --out the document is written to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			files, err := ingest.ResolveFiles(args, cfg.Watch.Extensions)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no model files matched")
			}
			if outDir == "" && (len(files) > 1 || rdf != "" && (rdfOut == "" || rdfOut == "-")) {
				return errors.New("--out is required when weaving more than one file or when documents and RDF would share stdout")
			}

			app, err := NewApp(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			results := app.WeaveFiles(cmd.Context(), files, jobs)
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					slog.Error("Weave failed", "file", r.Path, "error", r.Err)
					continue
				}
				if outDir == "" {
					if _, err := cmd.OutOrStdout().Write(r.Outcome.Content); err != nil {
						return err
					}
					continue
				}
				if _, err := WriteDocument(outDir, r.Path, r.Outcome); err != nil {
					return err
				}
			}

			if rdf != "" {
				if err := writeRDF(cmd, cfg, results, rdf, profile, outDir, rdfOut); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for canonical documents")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Files woven concurrently")
	cmd.Flags().StringVar(&rdf, "rdf", "", "Also export annotations and identity as RDF (turtle, ntriples, jsonld)")
	cmd.Flags().StringVar(&profile, "profile", "", "RDF ontology profile (minimal, bfo, cco); defaults to export.profile")
	cmd.Flags().StringVar(&rdfOut, "rdf-out", "", "RDF output file; defaults to <out>/semweave.<ext>")

	return cmd
}

func writeRDF(cmd *cobra.Command, cfg *config.Config, results []wovenFile, formatName, profileName, outDir, rdfOut string) error {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if profileName == "" {
		profileName = cfg.Export.Profile
	}
	profile, err := export.ParseProfile(profileName)
	if err != nil {
		return err
	}

	if rdfOut == "" {
		info, _ := export.GetFormatInfo(format)
		rdfOut = filepath.Join(outDir, "semweave"+info.Extension)
	}
	if rdfOut == "-" {
		return ExportRDF(cmd.OutOrStdout(), results, format, profile)
	}

	if err := os.MkdirAll(filepath.Dir(rdfOut), 0755); err != nil {
		return fmt.Errorf("create RDF directory: %w", err)
	}
	f, err := os.Create(rdfOut)
	if err != nil {
		return fmt.Errorf("create RDF file: %w", err)
	}
	if err := ExportRDF(f, results, format, profile); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("RDF exported", "file", rdfOut, "format", format, "profile", profile)
	return nil
}

func resolveCmd(flags *globalFlags) *cobra.Command {
	var (
		version string
		asset   string
	)

	cmd := &cobra.Command{
		Use:   "resolve [model-uri]",
		Short: "Resolve the identity bundle of an artifact version",
		Long: `Resolve prints the identity bundle of a model artifact version as JSON:
its asset identifier, its dependencies' artifacts and asset identifiers, and
whether the dependencies were inferred from version histories.

Without --version the latest published version is resolved. --asset looks
the model up by asset tag instead of model URI.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (asset != "") {
				return errors.New("give either a model URI or --asset")
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if !cfg.CanResolve() {
				return config.ErrNoGraphSource
			}
			r, closer, err := openResolver(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer closer.Close()

			var modelURI string
			if len(args) == 1 {
				modelURI = args[0]
			}
			bundle, err := resolveBundle(cmd.Context(), r, modelURI, asset, version)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), bundle)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Artifact version; defaults to the latest published version")
	cmd.Flags().StringVar(&asset, "asset", "", "Asset tag (UUID) to resolve instead of a model URI")

	return cmd
}

// resolveBundle resolves the bundle of modelURI, or of the model carrying
// assetTag, at version or at its latest published version.
func resolveBundle(ctx context.Context, r *resolver.Resolver, modelURI, assetTag, version string) (*resolver.Bundle, error) {
	session := r.NewSession()
	if err := session.Prefetch(ctx); err != nil {
		return nil, err
	}

	if assetTag != "" {
		tag, err := uuid.Parse(assetTag)
		if err != nil {
			return nil, fmt.Errorf("invalid asset tag: %w", err)
		}
		ref, err := session.ResolveAssetToModelID(ctx, tag, false)
		if err != nil {
			return nil, err
		}
		modelURI = ref.URI
	}

	if version != "" {
		return session.ResolveBundle(ctx, resolver.Manifest{ModelURI: modelURI, Version: version})
	}
	row, err := session.Model(ctx, modelURI, false)
	if err != nil {
		return nil, err
	}
	return session.ResolveBundle(ctx, manifestFromRow(row))
}

func manifestFromRow(row graphquery.ModelRow) resolver.Manifest {
	return resolver.Manifest{
		ModelURI: row.Model,
		Version:  row.Version,
		Updated:  row.Updated,
		State:    row.State,
	}
}

func snapshotCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and inspect offline graph snapshots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "capture <file>",
		Short: "Capture the vendor graph and version histories into a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Graph.Endpoint == "" || cfg.Repository.Endpoint == "" {
				return errors.New("graph.endpoint and repository.endpoint are required to capture a snapshot")
			}

			store, err := snapshot.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			querier := graphquery.NewSPARQLQuerier(cfg.Graph.Endpoint, cfg.Graph.Ontology, cfg.Graph.Timeout)
			history := repository.NewClient(cfg.Repository.Endpoint, cfg.Repository.Timeout)
			info, err := snapshot.Capture(cmd.Context(), querier, history, store, slog.Default())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info <file>",
		Short: "Describe a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}
			store, err := snapshot.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Info(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	})

	return cmd
}

func watchCmd(flags *globalFlags) *cobra.Command {
	var (
		outDir  string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir|glob>...",
		Short: "Re-weave model files as they change",
		Long: `Watch weaves every model file below each matched directory, then re-weaves
files as they are created or modified and removes the output of deleted files.

With --publish, changed files are sent to NATS as model ingest requests
for a running "semweave serve" instead of being woven locally, and the
stored document of a deleted file is removed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (outDir == "") == !publish {
				return errors.New("give exactly one of --out or --publish")
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			roots, err := watchRoots(args)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var sink modelSink
			if publish {
				nc, err := connectToNATS(ctx, natsURL(cfg, nil), slog.Default())
				if err != nil {
					return err
				}
				defer nc.Close(context.Background())
				js, err := nc.JetStream()
				if err != nil {
					return fmt.Errorf("get jetstream: %w", err)
				}
				store, err := storage.NewStore(ctx, js)
				if err != nil {
					return err
				}
				sink = newPublishSink(nc, store)
			} else {
				app, err := NewApp(cfg, slog.Default())
				if err != nil {
					return err
				}
				defer app.Close()
				sink = &localSink{app: app, outDir: outDir}
			}

			g, ctx := errgroup.WithContext(ctx)
			for _, root := range roots {
				g.Go(func() error {
					return watch(ctx, cfg.Watch, root, sink, slog.Default())
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for canonical documents")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish model ingest requests to NATS")

	return cmd
}

// watchRoots expands watch arguments to distinct directories. Nested
// matches are dropped since a watcher covers its whole tree.
func watchRoots(args []string) ([]string, error) {
	dirs, err := ingest.ResolveDirs(args)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, errors.New("no directories matched")
	}
	sort.Strings(dirs)
	roots := dirs[:0]
	for _, d := range dirs {
		if n := len(roots); n > 0 && within(roots[n-1], d) {
			continue
		}
		roots = append(roots, d)
	}
	return roots, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// modelSink receives model changes seen by watch.
type modelSink interface {
	Changed(ctx context.Context, path string) error
	Removed(ctx context.Context, path string) error
}

// localSink weaves changed files into an output directory.
type localSink struct {
	app    *App
	outDir string
}

func (s *localSink) Changed(ctx context.Context, path string) error {
	r := s.app.weaveFile(ctx, path)
	if r.Err != nil {
		return r.Err
	}
	_, err := WriteDocument(s.outDir, path, r.Outcome)
	return err
}

func (s *localSink) Removed(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(s.outDir, filepath.Base(path)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// watch weaves the existing files below root and then follows changes
// until ctx is done.
func watch(ctx context.Context, wc ingest.WatchConfig, root string, sink modelSink, logger *slog.Logger) error {
	w, err := ingest.NewWatcher(wc, root, logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()

	files, err := ingest.ResolveFiles([]string{root}, wc.Extensions)
	if err != nil {
		return err
	}
	for _, path := range files {
		if excluded(root, path, wc.ExcludeDirs) {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable model", "file", path, "error", err)
			continue
		}
		if rel, err := filepath.Rel(root, path); err == nil {
			w.Seed(rel, content)
		}
		if err := sink.Changed(ctx, path); err != nil {
			logger.Error("Initial weave failed", "file", path, "error", err)
		}
	}
	logger.Info("Initial weave complete", "files", len(files))

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() {
		if n := w.DroppedEvents(); n > 0 {
			logger.Warn("Watcher dropped events", "dir", root, "dropped", n)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			var err error
			switch ev.Op {
			case ingest.OpDelete:
				err = sink.Removed(ctx, ev.AbsPath)
			default:
				err = sink.Changed(ctx, ev.AbsPath)
			}
			if err != nil {
				logger.Error("Model update failed", "file", ev.Path, "op", ev.Op, "error", err)
			}
		}
	}
}

func excluded(root, path string, dirs []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		for _, d := range dirs {
			if part == d {
				return true
			}
		}
	}
	return false
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
