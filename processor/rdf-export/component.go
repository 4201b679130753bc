// Package rdfexport provides a streaming output component that subscribes
// to graph entity ingestion messages and serializes woven entities to RDF.
// Entities that are not semweave assets, artifacts or concepts are skipped.
package rdfexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	ssgraph "github.com/c360studio/semstreams/graph"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	ssexport "github.com/c360studio/semstreams/vocabulary/export"
	"github.com/c360studio/semweave/export"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/processor/lifecycle"
	"github.com/nats-io/nats.go/jetstream"
)

// OutputSubject is the default subject RDF documents are published on.
const OutputSubject = "graph.export.rdf"

// Component implements the rdf-export output processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	format  ssexport.Format
	profile export.Profile
	baseIRI string

	inputSubject  string
	inputStream   string
	outputSubject string

	run lifecycle.Runner

	exported        atomic.Int64
	skipped         atomic.Int64
	serializeErrors atomic.Int64
	publishErrors   atomic.Int64
}

// NewComponent creates a new rdf-export output component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if config.Ports == nil {
		config = DefaultConfig()
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config with defaults: %w", err)
		}
	}

	c, err := newComponent(config, deps.NATSClient, deps.GetLogger())
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newComponent(config Config, nc *natsclient.Client, logger *slog.Logger) (*Component, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Component{
		name:          "rdf-export",
		config:        config,
		natsClient:    nc,
		logger:        logger,
		format:        config.GetFormat(),
		profile:       config.GetProfile(),
		baseIRI:       config.GetBaseIRI(),
		inputSubject:  graph.GraphIngestSubject,
		inputStream:   "GRAPH",
		outputSubject: OutputSubject,
	}
	if config.Ports != nil {
		c.inputSubject, c.inputStream = lifecycle.Endpoint(config.Ports.Inputs, c.inputSubject, c.inputStream)
		c.outputSubject, _ = lifecycle.Endpoint(config.Ports.Outputs, c.outputSubject, "")
	}
	return c, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start consumes woven entities from the graph ingest stream. Only
// messages published after start are exported.
func (c *Component) Start(ctx context.Context) error {
	if c.natsClient == nil {
		return errors.New("NATS client required")
	}
	consumeCtx, err := c.run.Begin(ctx)
	if err != nil {
		return err
	}

	err = c.natsClient.ConsumeStreamWithConfig(consumeCtx, natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  c.name,
		FilterSubject: c.inputSubject,
		DeliverPolicy: "new",
		AckPolicy:     "explicit",
		MaxDeliver:    3,
		AckWait:       10 * time.Second,
	}, c.handleMessage)
	if err != nil {
		c.run.End()
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("rdf-export started",
		"format", c.config.Format,
		"profile", c.config.Profile,
		"input", c.inputSubject,
		"output", c.outputSubject)
	return nil
}

// handleMessage processes a single entity ingest message.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msg.Data(), &baseMsg); err != nil {
		c.logger.Warn("Failed to unmarshal base message",
			"error", err,
			"subject", msg.Subject())
		_ = msg.Term()
		return
	}

	graphable, ok := baseMsg.Payload().(ssgraph.Graphable)
	if !ok {
		c.logger.Debug("Skipping payload that is not Graphable",
			"type", baseMsg.Type(),
			"subject", msg.Subject())
		c.skipped.Add(1)
		_ = msg.Ack()
		return
	}

	payload, err := c.render(graphable)
	if err != nil {
		c.logger.Warn("Failed to serialize RDF",
			"entity_id", graphable.EntityID(),
			"format", c.config.Format,
			"error", err)
		c.serializeErrors.Add(1)
		_ = msg.Term()
		return
	}
	if payload == nil {
		c.skipped.Add(1)
		_ = msg.Ack()
		return
	}

	data, err := json.Marshal(message.NewBaseMessage(payload.Schema(), payload, "rdf-export"))
	if err != nil {
		c.serializeErrors.Add(1)
		_ = msg.Term()
		return
	}
	if err := c.natsClient.PublishToStream(ctx, c.outputSubject, data); err != nil {
		c.logger.Warn("Failed to publish RDF output",
			"entity_id", payload.EntityID,
			"subject", c.outputSubject,
			"error", err)
		c.publishErrors.Add(1)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	c.exported.Add(1)
	c.run.Touch()

	c.logger.Debug("Exported entity to RDF",
		"entity_id", payload.EntityID,
		"entity_type", payload.EntityType,
		"format", payload.Format,
		"output_bytes", len(payload.Content))
}

// render serializes a woven entity with its rdf:type triples. It returns
// nil for entities that are not woven.
func (c *Component) render(entity ssgraph.Graphable) (*Payload, error) {
	entityID := entity.EntityID()
	entityType := export.InferEntityType(entityID)
	if entityType == "" {
		return nil, nil
	}

	triples := export.TypeTriples(entityID, entityType, c.profile)
	triples = append(triples, entity.Triples()...)

	output, err := ssexport.SerializeToString(triples, c.format,
		ssexport.WithBaseIRI(c.baseIRI))
	if err != nil {
		return nil, err
	}
	return &Payload{
		EntityID:   entityID,
		EntityType: string(entityType),
		Format:     c.config.GetFormatName(),
		Profile:    string(c.profile),
		Triples:    len(triples),
		Content:    output,
	}, nil
}

// Stop cancels the consumer.
func (c *Component) Stop(_ time.Duration) error {
	if !c.run.End() {
		return nil
	}
	c.logger.Info("rdf-export stopped",
		"exported", c.exported.Load(),
		"skipped", c.skipped.Load(),
		"serialize_errors", c.serializeErrors.Load(),
		"publish_errors", c.publishErrors.Load())
	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "rdf-export",
		Type:        "output",
		Description: "Serializes woven graph entities to RDF (Turtle, N-Triples, JSON-LD)",
		Version:     "1.0.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	return lifecycle.InputPorts(c.config.Ports)
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	return lifecycle.OutputPorts(c.config.Ports)
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return rdfExportSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	return c.run.Health(c.serializeErrors.Load() + c.publishErrors.Load())
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return c.run.Flow(c.exported.Load(), c.serializeErrors.Load()+c.publishErrors.Load())
}
