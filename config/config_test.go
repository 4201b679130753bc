package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/snapshot"
	"github.com/c360studio/semweave/weaver"
)

// validConfig returns the defaults completed with vendor settings.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Weave.VendorNamespaces = []string{"http://vendor.example.com/modeling"}
	cfg.Weave.VendorBaseURI = "http://vendor.example.com/definitions/"
	cfg.Weave.SchemaLocations = map[identifier.Notation]string{
		identifier.NotationDecision: "https://schemas.example.com/dmn.xsd",
		identifier.NotationCase:     "https://schemas.example.com/cmmn.xsd",
		identifier.NotationProcess:  "https://schemas.example.com/bpmn.xsd",
	}
	cfg.Concepts.Catalog = "concepts.yaml"
	return cfg
}

const projectYAML = `
weave:
  vendor_namespaces:
    - http://vendor.example.com/modeling
  vendor_base_uri: http://vendor.example.com/definitions/
  schema_locations:
    decision: https://schemas.example.com/dmn.xsd
    case: https://schemas.example.com/cmmn.xsd
    process: https://schemas.example.com/bpmn.xsd
graph:
  snapshot: graph.db
  timeout: 45s
concepts:
  catalog: concepts.yaml
export:
  format: jsonld
  profile: cco
`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Weave.CanonicalBaseURI == "" {
		t.Error("expected a default canonical base URI")
	}
	if cfg.Graph.Timeout != 30*time.Second {
		t.Errorf("expected graph timeout 30s, got %v", cfg.Graph.Timeout)
	}
	if cfg.Concepts.CacheSize != 4096 {
		t.Errorf("expected cache size 4096, got %d", cfg.Concepts.CacheSize)
	}
	if cfg.Watch.DebounceDelay() != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %v", cfg.Watch.DebounceDelay())
	}
	if err := cfg.Validate(); err == nil {
		t.Error("defaults lack vendor settings and should not validate")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		isCfg   bool
	}{
		{name: "valid config", modify: func(c *Config) {}},
		{
			name:    "missing vendor namespace",
			modify:  func(c *Config) { c.Weave.VendorNamespaces = nil },
			wantErr: true,
			isCfg:   true,
		},
		{
			name:    "missing schema location",
			modify:  func(c *Config) { delete(c.Weave.SchemaLocations, identifier.NotationCase) },
			wantErr: true,
			isCfg:   true,
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Graph.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative cache size",
			modify:  func(c *Config) { c.Concepts.CacheSize = -1 },
			wantErr: true,
		},
		{
			name:    "no concept source",
			modify:  func(c *Config) { c.Concepts.Catalog = "" },
			wantErr: true,
		},
		{
			name:    "unknown export format",
			modify:  func(c *Config) { c.Export.Format = "rdfxml" },
			wantErr: true,
		},
		{
			name:    "unknown export profile",
			modify:  func(c *Config) { c.Export.Profile = "owl" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.isCfg && !errors.Is(err, weaver.ErrConfig) {
				t.Errorf("expected weaver.ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "semweave.yaml")
	if err := os.WriteFile(configPath, []byte(projectYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Graph.Snapshot != "graph.db" {
		t.Errorf("expected snapshot graph.db, got %s", cfg.Graph.Snapshot)
	}
	if cfg.Graph.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Graph.Timeout)
	}
	if cfg.Weave.SchemaLocations[identifier.NotationCase] != "https://schemas.example.com/cmmn.xsd" {
		t.Errorf("unexpected case schema location %q", cfg.Weave.SchemaLocations[identifier.NotationCase])
	}
	if len(cfg.Weave.PruneNames) == 0 {
		t.Error("expected default prune names to survive the file")
	}
	if cfg.Export.Profile != "cco" {
		t.Errorf("expected profile cco, got %s", cfg.Export.Profile)
	}
	if !cfg.CanResolve() {
		t.Error("a snapshot should allow resolution")
	}
}

func TestConfigMerge(t *testing.T) {
	base := validConfig()
	override := &Config{
		Graph: GraphConfig{Endpoint: "http://graph.example.com/sparql"},
		Weave: weaver.Config{
			SchemaLocations: map[identifier.Notation]string{identifier.NotationCase: "case-v2.xsd"},
		},
		Watch: base.Watch,
	}
	override.Watch.Debounce = "2s"

	base.Merge(override)

	if base.Graph.Endpoint != "http://graph.example.com/sparql" {
		t.Errorf("expected endpoint override, got %s", base.Graph.Endpoint)
	}
	if base.Graph.Timeout != 30*time.Second {
		t.Errorf("expected timeout to remain default, got %v", base.Graph.Timeout)
	}
	if base.Weave.SchemaLocations[identifier.NotationCase] != "case-v2.xsd" {
		t.Errorf("expected case schema override, got %s", base.Weave.SchemaLocations[identifier.NotationCase])
	}
	if base.Weave.SchemaLocations[identifier.NotationDecision] == "" {
		t.Error("schema locations should merge per notation")
	}
	if base.Watch.DebounceDelay() != 2*time.Second {
		t.Errorf("expected 2s debounce, got %v", base.Watch.DebounceDelay())
	}
	if base.CanResolve() {
		t.Error("a graph endpoint without a repository endpoint cannot resolve")
	}

	base.Merge(nil)
}

func TestConfigSaveToFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subdir", "config.yaml")

	cfg := validConfig()
	cfg.NATS.URL = "nats://saved:4222"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.NATS.URL != "nats://saved:4222" {
		t.Errorf("expected saved NATS URL, got %s", loaded.NATS.URL)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("saved config should validate: %v", err)
	}
}

func TestLoaderLayers(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	nested := filepath.Join(project, "models", "decisions")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	userPath := filepath.Join(home, UserConfigDir, UserConfigFile)
	if err := os.MkdirAll(filepath.Dir(userPath), 0755); err != nil {
		t.Fatal(err)
	}
	userYAML := "graph:\n  timeout: 1m\nnats:\n  url: nats://user:4222\n"
	if err := os.WriteFile(userPath, []byte(userYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte(projectYAML), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(nil, WithHomeDir(home), WithSearchDir(nested))
	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.NATS.URL != "nats://user:4222" {
		t.Errorf("expected user NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Graph.Timeout != 45*time.Second {
		t.Errorf("project timeout should win over user timeout, got %v", cfg.Graph.Timeout)
	}

	explicit := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(explicit, []byte("export:\n  format: ntriples\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loader.Load(explicit)
	if err != nil {
		t.Fatalf("Load(explicit) error = %v", err)
	}
	if cfg.Export.Format != "ntriples" {
		t.Errorf("expected explicit format, got %s", cfg.Export.Format)
	}
	if cfg.Export.Profile != "cco" {
		t.Errorf("expected project profile to survive, got %s", cfg.Export.Profile)
	}
}

func TestLoaderFailsFast(t *testing.T) {
	loader := NewLoader(nil, WithHomeDir(t.TempDir()), WithSearchDir(t.TempDir()))
	if _, err := loader.Load(""); !errors.Is(err, weaver.ErrConfig) {
		t.Errorf("expected weaver.ErrConfig without vendor settings, got %v", err)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	loader := NewLoader(nil, WithHomeDir(home))
	if err := loader.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, UserConfigDir, UserConfigFile)); err != nil {
		t.Errorf("user config not created: %v", err)
	}
	if err := loader.EnsureUserConfig(); err != nil {
		t.Errorf("second EnsureUserConfig() error = %v", err)
	}
}

func TestConceptResolver(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "concepts.yaml")
	data := "namespace: https://terms.example.com/\nschemes:\n  - name: decision-types\n    concepts:\n      - tag: 5d8f6a2e-1a5b-4f1c-9a57-0c9c1f1d2a01\n        label: Eligibility\n"
	if err := os.WriteFile(catalog, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := validConfig()
	cfg.Concepts.Catalog = catalog
	r, err := cfg.ConceptResolver()
	if err != nil {
		t.Fatalf("ConceptResolver() error = %v", err)
	}
	if r == nil {
		t.Fatal("expected a resolver")
	}

	cfg.Concepts.Catalog = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.ConceptResolver(); err == nil {
		t.Error("expected error for a missing catalog")
	}
}

func TestGraphSources(t *testing.T) {
	cfg := validConfig()
	if _, _, _, err := cfg.GraphSources(); !errors.Is(err, ErrNoGraphSource) {
		t.Errorf("expected ErrNoGraphSource, got %v", err)
	}

	cfg.Graph.Endpoint = "http://graph.example.com/sparql"
	cfg.Repository.Endpoint = "http://repo.example.com/api"
	q, h, closer, err := cfg.GraphSources()
	if err != nil {
		t.Fatalf("GraphSources() error = %v", err)
	}
	if q == nil || h == nil {
		t.Error("expected live querier and history source")
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	cfg.Graph.Snapshot = filepath.Join(t.TempDir(), "graph.db")
	q, h, closer, err = cfg.GraphSources()
	if err != nil {
		t.Fatalf("GraphSources(snapshot) error = %v", err)
	}
	defer closer.Close()
	if _, ok := q.(*snapshot.Store); !ok {
		t.Errorf("expected snapshot querier, got %T", q)
	}
	if _, ok := h.(*snapshot.Store); !ok {
		t.Errorf("expected snapshot history source, got %T", h)
	}
}
