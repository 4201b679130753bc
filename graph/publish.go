// Package graph builds knowledge graph entities for woven artifacts and
// publishes them for graph ingestion.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
)

// Subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// Publish builds the entities of a woven artifact and publishes each one to
// the graph ingestion stream.
func Publish(ctx context.Context, nc *natsclient.Client, w Woven) error {
	if nc == nil {
		return nil // Skip publishing if no NATS client (graceful degradation)
	}

	for _, entity := range BuildEntities(w, time.Now()) {
		if err := entity.Validate(); err != nil {
			return fmt.Errorf("invalid entity: %w", err)
		}
		msg := message.NewBaseMessage(entity.Schema(), entity, "semweave")
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal entity %s: %w", entity.EntityID(), err)
		}
		if err := nc.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
			return fmt.Errorf("publish entity %s: %w", entity.EntityID(), err)
		}
	}
	return nil
}
