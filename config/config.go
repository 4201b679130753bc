// Package config provides configuration loading and management for Semweave.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/semweave/export"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/ingest"
	"github.com/c360studio/semweave/weaver"
	"gopkg.in/yaml.v3"
)

// Config represents the complete Semweave configuration
type Config struct {
	Weave      weaver.Config      `yaml:"weave"`
	Graph      GraphConfig        `yaml:"graph"`
	Repository RepositoryConfig   `yaml:"repository"`
	Concepts   ConceptsConfig     `yaml:"concepts"`
	NATS       NATSConfig         `yaml:"nats"`
	Watch      ingest.WatchConfig `yaml:"watch"`
	Export     ExportConfig       `yaml:"export"`
}

// GraphConfig configures access to the vendor model graph.
type GraphConfig struct {
	// Endpoint is the SPARQL query endpoint.
	Endpoint string `yaml:"endpoint"`
	// Ontology is the prefix of the vendor graph vocabulary.
	Ontology string `yaml:"ontology"`
	// Timeout bounds a single query.
	Timeout time.Duration `yaml:"timeout"`
	// Snapshot is a sqlite snapshot file. When set, graph queries and
	// version histories are served from it instead of the live services.
	Snapshot string `yaml:"snapshot"`
}

// RepositoryConfig configures the vendor repository history endpoint.
type RepositoryConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ConceptsConfig configures concept resolution.
type ConceptsConfig struct {
	// Catalog is a YAML concept catalog file.
	Catalog string `yaml:"catalog"`
	// Endpoint is a terminology service queried for concepts missing from
	// the catalog.
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	// CacheSize bounds the lookup cache.
	CacheSize int `yaml:"cache_size"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
}

// ExportConfig selects the RDF serialization.
type ExportConfig struct {
	Format  string `yaml:"format"`
	Profile string `yaml:"profile"`
}

// DefaultConfig returns a Config with sensible defaults. Vendor settings
// and schema locations have no defaults.
func DefaultConfig() *Config {
	return &Config{
		Weave: weaver.DefaultConfig(),
		Graph: GraphConfig{
			Timeout: 30 * time.Second,
		},
		Repository: RepositoryConfig{
			Timeout: 30 * time.Second,
		},
		Concepts: ConceptsConfig{
			Timeout:   10 * time.Second,
			CacheSize: 4096,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Watch: ingest.DefaultWatchConfig(),
		Export: ExportConfig{
			Format:  string(export.FormatTurtle),
			Profile: string(export.ProfileMinimal),
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Weave.Validate(); err != nil {
		return fmt.Errorf("weave: %w", err)
	}
	if c.Graph.Timeout < 0 || c.Repository.Timeout < 0 || c.Concepts.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Concepts.CacheSize < 0 {
		return errors.New("concepts.cache_size must not be negative")
	}
	if c.Concepts.Catalog == "" && c.Concepts.Endpoint == "" {
		return errors.New("concepts.catalog or concepts.endpoint is required")
	}
	if c.Export.Format != "" {
		if _, err := export.ParseFormat(c.Export.Format); err != nil {
			return fmt.Errorf("export.format: %w", err)
		}
	}
	if _, err := export.ParseProfile(c.Export.Profile); err != nil {
		return fmt.Errorf("export.profile: %w", err)
	}
	return nil
}

// CanResolve reports whether a graph source is configured.
func (c *Config) CanResolve() bool {
	return c.Graph.Snapshot != "" || (c.Graph.Endpoint != "" && c.Repository.Endpoint != "")
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	c.mergeWeave(&other.Weave)

	// Graph
	mergeString(&c.Graph.Endpoint, other.Graph.Endpoint)
	mergeString(&c.Graph.Ontology, other.Graph.Ontology)
	mergeString(&c.Graph.Snapshot, other.Graph.Snapshot)
	if other.Graph.Timeout != 0 {
		c.Graph.Timeout = other.Graph.Timeout
	}

	// Repository
	mergeString(&c.Repository.Endpoint, other.Repository.Endpoint)
	if other.Repository.Timeout != 0 {
		c.Repository.Timeout = other.Repository.Timeout
	}

	// Concepts
	mergeString(&c.Concepts.Catalog, other.Concepts.Catalog)
	mergeString(&c.Concepts.Endpoint, other.Concepts.Endpoint)
	if other.Concepts.Timeout != 0 {
		c.Concepts.Timeout = other.Concepts.Timeout
	}
	if other.Concepts.CacheSize != 0 {
		c.Concepts.CacheSize = other.Concepts.CacheSize
	}

	// NATS
	mergeString(&c.NATS.URL, other.NATS.URL)

	// Watch
	mergeString(&c.Watch.Debounce, other.Watch.Debounce)
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	// Export
	mergeString(&c.Export.Format, other.Export.Format)
	mergeString(&c.Export.Profile, other.Export.Profile)
}

func (c *Config) mergeWeave(o *weaver.Config) {
	w := &c.Weave
	if len(o.VendorNamespaces) > 0 {
		w.VendorNamespaces = o.VendorNamespaces
	}
	mergeString(&w.VendorBaseURI, o.VendorBaseURI)
	mergeString(&w.VendorDomain, o.VendorDomain)
	mergeString(&w.CanonicalBaseURI, o.CanonicalBaseURI)
	mergeString(&w.UnspecifiedDefinitionType, o.UnspecifiedDefinitionType)
	if len(o.NotationMarkers) > 0 {
		w.NotationMarkers = o.NotationMarkers
	}
	if len(o.SchemaLocations) > 0 {
		if w.SchemaLocations == nil {
			w.SchemaLocations = make(map[identifier.Notation]string, len(o.SchemaLocations))
		}
		for n, loc := range o.SchemaLocations {
			w.SchemaLocations[n] = loc
		}
	}
	if len(o.PruneNames) > 0 {
		w.PruneNames = o.PruneNames
	}
	if len(o.ReferenceElements) > 0 {
		w.ReferenceElements = o.ReferenceElements
	}
	if len(o.Classifier.CaptureSchemes) > 0 {
		w.Classifier.CaptureSchemes = o.Classifier.CaptureSchemes
	}
	if len(o.Classifier.CaptureConcepts) > 0 {
		w.Classifier.CaptureConcepts = o.Classifier.CaptureConcepts
	}
	if len(o.Classifier.DecisionElements) > 0 {
		w.Classifier.DecisionElements = o.Classifier.DecisionElements
	}
	if len(o.Classifier.InputElements) > 0 {
		w.Classifier.InputElements = o.Classifier.InputElements
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
