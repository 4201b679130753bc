package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/componentregistry"
	ssconfig "github.com/c360studio/semstreams/config"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/c360studio/semstreams/service"
	"github.com/c360studio/semstreams/types"
	"github.com/c360studio/semweave/config"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/ingest"
	modelweaver "github.com/c360studio/semweave/processor/model-weaver"
	rdfexport "github.com/c360studio/semweave/processor/rdf-export"
	"github.com/c360studio/semweave/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		platformConfig string
		metricsAddr    string
		httpPort       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the weave pipeline as NATS components",
		Long: `Serve runs the model-weaver and rdf-export components on NATS JetStream.

Model ingest requests published on "` + ingest.Subject + `" are woven,
resolved, stored in KV and published as graph entities; rdf-export
serializes those entities on "` + rdfexport.OutputSubject + `".

The platform configuration is built from the semweave config unless
--platform-config names a semstreams JSON file. NATS_URL overrides the
NATS server address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			var platform *ssconfig.Config
			if platformConfig != "" {
				platform, err = loadPlatformConfig(platformConfig)
			} else {
				platform, err = buildPlatformConfig(cfg, flags.configPath, httpPort)
			}
			if err != nil {
				return fmt.Errorf("platform config: %w", err)
			}
			return serve(cmd.Context(), cfg, platform, metricsAddr, slog.Default())
		},
	}

	cmd.Flags().StringVar(&platformConfig, "platform-config", "", "Semstreams platform config (JSON, ${VAR:-default} expanded)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus metrics listen address (empty to disable)")
	cmd.Flags().IntVar(&httpPort, "http-port", 8080, "Service manager HTTP port")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, platform *ssconfig.Config, metricsAddr string, logger *slog.Logger) error {
	nc, err := connectToNATS(ctx, natsURL(cfg, platform), logger)
	if err != nil {
		return err
	}
	defer nc.Close(ctx)

	logger.Debug("Creating JetStream streams")
	if err := ssconfig.NewStreamsManager(nc, logger).EnsureStreams(ctx, platform); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	configManager, err := ssconfig.NewConfigManager(platform, nc, logger)
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := configManager.Start(ctx); err != nil {
		return fmt.Errorf("start config manager: %w", err)
	}
	defer configManager.Stop(5 * time.Second)

	componentRegistry := component.NewRegistry()
	if err := registerComponents(componentRegistry); err != nil {
		return err
	}
	slog.Info("Component factories registered", "count", len(componentRegistry.ListFactories()))

	serviceRegistry := service.NewServiceRegistry()
	if err := service.RegisterAll(serviceRegistry); err != nil {
		return fmt.Errorf("register services: %w", err)
	}
	manager := service.NewServiceManager(serviceRegistry)

	svcDeps := &service.Dependencies{
		NATSClient:        nc,
		MetricsRegistry:   metric.NewMetricsRegistry(),
		Logger:            logger,
		Platform:          platformMeta(platform),
		Manager:           configManager,
		ComponentRegistry: componentRegistry,
	}
	if err := configureAndCreateServices(platform, manager, svcDeps); err != nil {
		return err
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "addr", metricsAddr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("Metrics endpoint started", "addr", metricsAddr)
	}

	logger.Info("Starting all services")
	if err := manager.StartAll(signalCtx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	logger.Info("Semweave ready", "version", Version)

	<-signalCtx.Done()
	logger.Info("Received shutdown signal")

	if err := manager.StopAll(30 * time.Second); err != nil {
		logger.Error("Error stopping services", "error", err)
	}
	logger.Info("Semweave shutdown complete")
	return nil
}

// registerComponents registers the semstreams components and the semweave
// processors.
func registerComponents(registry *component.Registry) error {
	if err := componentregistry.Register(registry); err != nil {
		return fmt.Errorf("register semstreams components: %w", err)
	}
	if err := modelweaver.Register(registry); err != nil {
		return fmt.Errorf("register model-weaver: %w", err)
	}
	if err := rdfexport.Register(registry); err != nil {
		return fmt.Errorf("register rdf-export: %w", err)
	}
	return nil
}

// loadPlatformConfig reads a semstreams config file, expanding environment
// variables before parsing.
func loadPlatformConfig(path string) (*ssconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := ssconfig.ExpandEnvWithDefaults(string(data))
	return ssconfig.NewLoader().LoadFromBytes([]byte(expanded))
}

// buildPlatformConfig builds the platform config for the weave pipeline.
// configPath is handed to model-weaver so it loads the same layered config.
func buildPlatformConfig(cfg *config.Config, configPath string, httpPort int) (*ssconfig.Config, error) {
	weaverCfg := modelweaver.DefaultConfig()
	weaverCfg.ConfigPath = configPath
	weaverJSON, err := json.Marshal(weaverCfg)
	if err != nil {
		return nil, fmt.Errorf("marshal model-weaver config: %w", err)
	}

	exportCfg := rdfexport.DefaultConfig()
	exportCfg.Format = cfg.Export.Format
	exportCfg.Profile = cfg.Export.Profile
	exportJSON, err := json.Marshal(exportCfg)
	if err != nil {
		return nil, fmt.Errorf("marshal rdf-export config: %w", err)
	}

	managerJSON, err := json.Marshal(map[string]any{
		"http_port":  httpPort,
		"swagger_ui": false,
		"server_info": map[string]string{
			"title":       "Semweave API",
			"description": "canonical weaving and identity resolution of vendor models",
			"version":     Version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal service-manager config: %w", err)
	}

	return &ssconfig.Config{
		Version: "1.0.0",
		Platform: ssconfig.PlatformConfig{
			Org:         "semweave",
			ID:          "semweave-local",
			Environment: "dev",
		},
		NATS: ssconfig.NATSConfig{
			URLs:          []string{cfg.NATS.URL},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			JetStream: ssconfig.JetStreamConfig{
				Enabled: true,
			},
		},
		Services: types.ServiceConfigs{
			"service-manager": types.ServiceConfig{
				Name:    "service-manager",
				Enabled: true,
				Config:  managerJSON,
			},
		},
		Components: ssconfig.ComponentConfigs{
			"model-weaver": types.ComponentConfig{
				Name:    "model-weaver",
				Type:    types.ComponentTypeProcessor,
				Enabled: true,
				Config:  weaverJSON,
			},
			"rdf-export": types.ComponentConfig{
				Name:    "rdf-export",
				Type:    types.ComponentTypeProcessor,
				Enabled: true,
				Config:  exportJSON,
			},
		},
		Streams: ssconfig.StreamConfigs{
			ingest.StreamName: ssconfig.StreamConfig{
				Subjects: []string{ingest.Subject},
				MaxAge:   "168h",
				Storage:  "file",
				Replicas: 1,
			},
			"GRAPH": ssconfig.StreamConfig{
				Subjects: []string{
					graph.GraphIngestSubject,
					"graph.export.>",
				},
				MaxAge:   "24h",
				Storage:  "memory",
				Replicas: 1,
			},
		},
	}, nil
}

// natsURL picks the NATS address: NATS_URL, then SEMWEAVE_NATS_URL, then the
// platform config, then the semweave config.
func natsURL(cfg *config.Config, platform *ssconfig.Config) string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if envURL := os.Getenv("SEMWEAVE_NATS_URL"); envURL != "" {
		return envURL
	}
	if platform != nil && len(platform.NATS.URLs) > 0 {
		return strings.Join(platform.NATS.URLs, ",")
	}
	if cfg != nil && cfg.NATS.URL != "" {
		return cfg.NATS.URL
	}
	return "nats://localhost:4222"
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError adds guidance for the common connection failures.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func platformMeta(cfg *ssconfig.Config) types.PlatformMeta {
	platformID := cfg.Platform.InstanceID
	if platformID == "" {
		platformID = cfg.Platform.ID
	}
	return types.PlatformMeta{
		Org:      cfg.Platform.Org,
		Platform: platformID,
	}
}

// configureAndCreateServices configures the manager and creates the enabled
// services.
func configureAndCreateServices(cfg *ssconfig.Config, manager *service.Manager, svcDeps *service.Dependencies) error {
	if err := manager.ConfigureFromServices(cfg.Services, svcDeps); err != nil {
		return fmt.Errorf("configure service manager: %w", err)
	}

	for name, svcConfig := range cfg.Services {
		if name == "service-manager" {
			continue
		}
		if !svcConfig.Enabled {
			slog.Info("Service disabled in config", "name", name)
			continue
		}
		if !manager.HasConstructor(name) {
			slog.Warn("Service configured but not registered", "key", name, "available_constructors", manager.ListConstructors())
			continue
		}
		if _, err := manager.CreateService(name, svcConfig.Config, svcDeps); err != nil {
			return fmt.Errorf("create service %s: %w", name, err)
		}
		slog.Info("Created service", "name", name)
	}
	return nil
}

// streamPublisher publishes to a JetStream subject.
type streamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// documentDeleter removes stored documents.
type documentDeleter interface {
	DeleteDocument(ctx context.Context, id storage.EntityID) error
}

// publishSink sends changed model files to NATS as ingest requests and
// removes the stored document of a deleted file.
type publishSink struct {
	nc   streamPublisher
	docs documentDeleter

	mu        sync.Mutex
	artifacts map[string]identifier.ArtifactRef
}

func newPublishSink(nc streamPublisher, docs documentDeleter) *publishSink {
	return &publishSink{nc: nc, docs: docs, artifacts: make(map[string]identifier.ArtifactRef)}
}

func (s *publishSink) Changed(ctx context.Context, path string) error {
	req, err := ingest.FromFile(path)
	if err != nil {
		return err
	}
	msg := message.NewBaseMessage(req.Schema(), req, appName)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := s.nc.PublishToStream(ctx, ingest.Subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", path, err)
	}

	s.mu.Lock()
	s.artifacts[path] = req.Manifest.Artifact()
	s.mu.Unlock()

	slog.Info("Model published", "file", path, "model", req.Manifest.ModelURI, "version", req.Manifest.Version)
	return nil
}

// Removed deletes the stored document last published from path. Files
// never published by this sink are ignored.
func (s *publishSink) Removed(ctx context.Context, path string) error {
	s.mu.Lock()
	ref, ok := s.artifacts[path]
	delete(s.artifacts, path)
	s.mu.Unlock()
	if !ok {
		slog.Debug("Removed file was never published", "file", path)
		return nil
	}

	err := s.docs.DeleteDocument(ctx, storage.NewEntityID(storage.EntityTypeDocument, ref))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete document of %s: %w", path, err)
	}
	slog.Info("Stored document deleted", "file", path, "model", ref.ModelURI, "version", ref.Version)
	return nil
}
