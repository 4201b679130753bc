package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/resolver"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryConcurrency bounds concurrent history requests during Capture.
const DefaultHistoryConcurrency = 8

// Capture records the current graph and the version history of every model
// into store, replacing the previous snapshot.
func Capture(ctx context.Context, graph graphquery.Querier, history resolver.HistorySource, store *Store, logger *slog.Logger) (Info, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data := Data{
		CapturedAt: time.Now().UTC(),
		Histories:  make(map[string][]identifier.ArtifactRef),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Published, err = graph.PublishedModels(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.All, err = graph.AllModels(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Imports, err = graph.ImportEdges(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Info{}, fmt.Errorf("query graph: %w", err)
	}

	models := make(map[string]bool, len(data.All)+len(data.Published))
	for _, rows := range [][]graphquery.ModelRow{data.All, data.Published} {
		for _, r := range rows {
			models[r.Model] = true
		}
	}

	var mu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(DefaultHistoryConcurrency)
	for model := range models {
		g.Go(func() error {
			h, err := history.VersionHistory(gctx, model)
			if err != nil {
				return fmt.Errorf("history of %s: %w", model, err)
			}
			mu.Lock()
			data.Histories[model] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Info{}, err
	}

	info, err := store.Replace(ctx, data)
	if err != nil {
		return Info{}, err
	}
	logger.Info("Snapshot captured",
		"id", info.ID,
		"models", info.Models,
		"published", info.Published,
		"imports", info.Imports,
		"versions", info.Versions)
	return info, nil
}
