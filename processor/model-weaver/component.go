// Package modelweaver provides a processor component that consumes vendor
// model documents from JetStream, weaves them into canonical form, resolves
// their identity bundles, stores the result and publishes graph entities.
package modelweaver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/c360studio/semweave/config"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/ingest"
	"github.com/c360studio/semweave/processor/lifecycle"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/storage"
	"github.com/c360studio/semweave/weaver"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce   sync.Once
	sharedMetrics Metrics
)

// defaultMetrics registers the weaver and resolver collectors with the
// default prometheus registry once per process.
func defaultMetrics() Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = Metrics{
			Weaver:   weaver.NewMetrics(prometheus.DefaultRegisterer),
			Resolver: resolver.NewMetrics(prometheus.DefaultRegisterer),
		}
	})
	return sharedMetrics
}

// Component implements the model-weaver processor.
type Component struct {
	name       string
	config     Config
	weave      *config.Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	mu       sync.RWMutex
	pipeline *Pipeline
	closer   io.Closer
	store    *storage.Store

	inputSubject string
	inputStream  string

	run lifecycle.Runner

	modelsWoven     atomic.Int64
	bundlesResolved atomic.Int64
	rejected        atomic.Int64
	weaveErrors     atomic.Int64
	storeErrors     atomic.Int64
	publishErrors   atomic.Int64
}

// NewComponent creates a new model-weaver processor component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if cfg.Ports == nil {
		cfg.Ports = DefaultConfig().Ports
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()
	weaveCfg, err := config.NewLoader(logger).Load(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load semweave config: %w", err)
	}

	return newComponent(cfg, weaveCfg, deps.NATSClient, logger), nil
}

func newComponent(cfg Config, weaveCfg *config.Config, nc *natsclient.Client, logger *slog.Logger) *Component {
	if logger == nil {
		logger = slog.Default()
	}

	// Resolve subjects from port definitions
	inputSubject := ingest.Subject
	inputStream := ingest.StreamName
	if cfg.Ports != nil && len(cfg.Ports.Inputs) > 0 {
		inputSubject = cfg.Ports.Inputs[0].Subject
		inputStream = cfg.Ports.Inputs[0].StreamName
	}

	return &Component{
		name:         "model-weaver",
		config:       cfg,
		weave:        weaveCfg,
		natsClient:   nc,
		logger:       logger,
		inputSubject: inputSubject,
		inputStream:  inputStream,
	}
}

// Initialize builds the weave pipeline.
func (c *Component) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipeline != nil {
		return nil
	}
	pipeline, closer, err := BuildPipeline(c.weave, c.logger, defaultMetrics())
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	c.pipeline = pipeline
	c.closer = closer
	return nil
}

// Start begins consuming model ingest messages.
func (c *Component) Start(ctx context.Context) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	if c.natsClient == nil {
		return errors.New("NATS client required")
	}
	if err := c.openStore(ctx); err != nil {
		return err
	}

	consumeCtx, err := c.run.Begin(ctx)
	if err != nil {
		return err
	}

	err = c.natsClient.ConsumeStreamWithConfig(consumeCtx, natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  c.name,
		FilterSubject: c.inputSubject,
		DeliverPolicy: "all",
		AckPolicy:     "explicit",
		MaxDeliver:    c.config.GetMaxDeliver(),
		AckWait:       c.config.GetAckWait(),
	}, c.handleMessage)
	if err != nil {
		c.run.End()
		return fmt.Errorf("start consumer: %w", err)
	}

	c.mu.RLock()
	resolves := c.pipeline.Resolves()
	c.mu.RUnlock()
	c.logger.Info("model-weaver started",
		"input", c.inputSubject,
		"stream", c.inputStream,
		"resolve", resolves,
		"store", c.config.Store,
		"publish", c.config.Publish)

	return nil
}

// openStore opens the document store on first start when storing is enabled.
func (c *Component) openStore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.config.Store || c.store != nil {
		return nil
	}
	js, err := c.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}
	store, err := storage.NewStore(ctx, js)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	c.store = store
	return nil
}

// handleMessage processes a single model ingest message.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msg.Data(), &baseMsg); err != nil {
		c.logger.Warn("Failed to unmarshal base message",
			"error", err,
			"subject", msg.Subject())
		c.reject(msg)
		return
	}

	req, ok := baseMsg.Payload().(*ingest.ModelRequest)
	if !ok {
		c.logger.Warn("Unexpected payload type",
			"type", baseMsg.Type(),
			"subject", msg.Subject())
		c.reject(msg)
		return
	}
	if err := req.Validate(); err != nil {
		c.logger.Warn("Invalid model request", "path", req.Path, "error", err)
		c.reject(msg)
		return
	}

	if err := c.process(ctx, req); err != nil {
		if errors.Is(err, weaver.ErrMalformedDocument) || errors.Is(err, weaver.ErrConfig) {
			c.logger.Error("Model cannot be woven",
				"model", req.Manifest.ModelURI,
				"error", err)
			c.reject(msg)
			return
		}
		c.logger.Warn("Failed to process model, will retry",
			"model", req.Manifest.ModelURI,
			"error", err)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	c.run.Touch()
}

// reject terminates a message that can never succeed.
func (c *Component) reject(msg jetstream.Msg) {
	c.rejected.Add(1)
	_ = msg.Term()
}

// process weaves, stores and publishes one model request.
func (c *Component) process(ctx context.Context, req *ingest.ModelRequest) error {
	c.mu.RLock()
	pipeline, store := c.pipeline, c.store
	c.mu.RUnlock()
	if pipeline == nil {
		return errors.New("pipeline not initialized")
	}

	out, err := pipeline.Run(ctx, req)
	if err != nil {
		c.weaveErrors.Add(1)
		return err
	}
	c.modelsWoven.Add(1)
	if out.Woven.Bundle != nil {
		c.bundlesResolved.Add(1)
	}

	now := time.Now()
	if store != nil {
		if _, err := store.PutDocument(ctx, out.Document(now)); err != nil {
			c.storeErrors.Add(1)
			return err
		}
		if b := out.StoredBundle(now); b != nil {
			if _, err := store.PutBundle(ctx, b); err != nil {
				c.storeErrors.Add(1)
				return err
			}
		}
	}

	if c.config.Publish {
		if err := graph.Publish(ctx, c.natsClient, out.Woven); err != nil {
			c.publishErrors.Add(1)
			return err
		}
	}

	c.logger.Debug("Model woven",
		"model", req.Manifest.ModelURI,
		"version", req.Manifest.Version,
		"notation", out.Woven.Notation,
		"annotations", len(out.Woven.Annotations),
		"diagnostics", len(out.Result.Diagnostics),
		"bundle", out.Woven.Bundle != nil)
	return nil
}

// Stop cancels the consumer and releases the graph sources.
func (c *Component) Stop(_ time.Duration) error {
	if !c.run.End() {
		return nil
	}

	c.mu.Lock()
	if c.closer != nil {
		if err := c.closer.Close(); err != nil {
			c.logger.Warn("Failed to close graph sources", "error", err)
		}
		c.closer = nil
		c.pipeline = nil
	}
	c.mu.Unlock()

	c.logger.Info("model-weaver stopped",
		"models_woven", c.modelsWoven.Load(),
		"bundles_resolved", c.bundlesResolved.Load(),
		"rejected", c.rejected.Load(),
		"weave_errors", c.weaveErrors.Load(),
		"store_errors", c.storeErrors.Load(),
		"publish_errors", c.publishErrors.Load())
	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "model-weaver",
		Type:        "processor",
		Description: "Weaves vendor model documents into canonical form and resolves their identity bundles",
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
	return modelWeaverSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	return c.run.Health(c.weaveErrors.Load() + c.storeErrors.Load() + c.publishErrors.Load())
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return c.run.Flow(c.modelsWoven.Load(), c.weaveErrors.Load())
}
