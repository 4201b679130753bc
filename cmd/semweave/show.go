package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/c360studio/semweave/config"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// documentStore is the read side of the woven document store.
type documentStore interface {
	GetDocument(ctx context.Context, id storage.EntityID) (*storage.Document, error)
	ListDocuments(ctx context.Context) ([]*storage.Document, error)
	GetBundle(ctx context.Context, ref identifier.ArtifactRef) (*storage.Bundle, error)
}

// storedModel is a woven document with the bundle resolved alongside it.
type storedModel struct {
	Document *storage.Document `json:"document"`
	Bundle   *storage.Bundle   `json:"bundle"`
}

// documentSummary is one line of the stored document listing.
type documentSummary struct {
	ID          string                 `json:"id"`
	Artifact    identifier.ArtifactRef `json:"artifact"`
	Name        string                 `json:"name,omitempty"`
	Notation    identifier.Notation    `json:"notation,omitempty"`
	Annotations int                    `json:"annotations"`
	Diagnostics int                    `json:"diagnostics"`
	WovenAt     time.Time              `json:"woven_at"`
}

func showCmd(flags *globalFlags) *cobra.Command {
	var (
		version string
		content bool
	)

	cmd := &cobra.Command{
		Use:   "show [model-uri]",
		Short: "Show documents stored by a running semweave serve",
		Long: `Show reads the woven documents and identity bundles that the model-weaver
processor stored in NATS KV.

Without a model URI every stored document is listed. With one, the document
of --version (or the most recently woven version) is printed together with
its identity bundle; --content prints only the canonical XML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := slog.Default()

			nc, err := connectToNATS(ctx, natsURL(cfg, nil), logger)
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

			if len(args) == 0 {
				return listDocuments(ctx, store, cmd.OutOrStdout())
			}
			return showModel(ctx, store, cmd.OutOrStdout(), args[0], version, content)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Artifact version; defaults to the most recently woven one")
	cmd.Flags().BoolVar(&content, "content", false, "Print only the canonical document")

	return cmd
}

func listDocuments(ctx context.Context, store documentStore, w io.Writer) error {
	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentSummary{
			ID:          d.ID,
			Artifact:    d.Artifact,
			Name:        d.Name,
			Notation:    d.Notation,
			Annotations: len(d.Annotations),
			Diagnostics: len(d.Diagnostics),
			WovenAt:     d.WovenAt,
		})
	}
	return writeJSON(w, out)
}

func showModel(ctx context.Context, store documentStore, w io.Writer, modelURI, version string, content bool) error {
	doc, err := findDocument(ctx, store, modelURI, version)
	if err != nil {
		return err
	}
	if content {
		_, err := io.WriteString(w, doc.Content)
		return err
	}

	bundle, err := store.GetBundle(ctx, doc.Artifact)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return writeJSON(w, storedModel{Document: doc, Bundle: bundle})
}

// findDocument returns the stored document of modelURI at version, or the
// most recently woven one when version is empty.
func findDocument(ctx context.Context, store documentStore, modelURI, version string) (*storage.Document, error) {
	if version != "" {
		id := storage.NewEntityID(storage.EntityTypeDocument, identifier.ArtifactRef{ModelURI: modelURI, Version: version})
		doc, err := store.GetDocument(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no stored document for %s@%s", modelURI, version)
		}
		return doc, err
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	var latest *storage.Document
	for _, d := range docs {
		if d.Artifact.ModelURI != modelURI {
			continue
		}
		if latest == nil || d.WovenAt.After(latest.WovenAt) {
			latest = d
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no stored document for %s", modelURI)
	}
	return latest, nil
}

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage semweave configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config with defaults if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(slog.Default()).EnsureUserConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}
