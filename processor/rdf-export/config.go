package rdfexport

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
	ssexport "github.com/c360studio/semstreams/vocabulary/export"
	"github.com/c360studio/semweave/export"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/vocabulary/weave"
)

// rdfExportSchema defines the configuration schema.
var rdfExportSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the rdf-export output component.
type Config struct {
	Ports   *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	Format  string                `json:"format" schema:"type:string,description:RDF serialization format (turtle/ntriples/jsonld),category:basic,default:turtle"`
	Profile string                `json:"profile" schema:"type:string,description:Ontology profile (minimal/bfo/cco),category:basic,default:minimal"`
	BaseIRI string                `json:"base_iri" schema:"type:string,description:Base IRI for entity URIs,category:basic,default:https://semweave.dev/entity/"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Format != "" {
		if _, err := export.ParseFormat(c.Format); err != nil {
			return fmt.Errorf("unsupported format: %s (valid: turtle, ntriples, jsonld)", c.Format)
		}
	}
	if _, err := export.ParseProfile(c.Profile); err != nil {
		return fmt.Errorf("unsupported profile: %s (valid: minimal, bfo, cco)", c.Profile)
	}
	return nil
}

// GetFormat returns the configured ssexport.Format.
func (c *Config) GetFormat() ssexport.Format {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return ssexport.Turtle
	}
	switch f {
	case export.FormatNTriples:
		return ssexport.NTriples
	case export.FormatJSONLD:
		return ssexport.JSONLD
	default:
		return ssexport.Turtle
	}
}

// GetFormatName returns the canonical name of the configured format.
func (c *Config) GetFormatName() string {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return string(export.FormatTurtle)
	}
	return string(f)
}

// GetProfile returns the configured export.Profile.
func (c *Config) GetProfile() export.Profile {
	p, err := export.ParseProfile(c.Profile)
	if err != nil {
		return export.ProfileMinimal
	}
	return p
}

// GetBaseIRI returns the configured base IRI with a default fallback.
func (c *Config) GetBaseIRI() string {
	if c.BaseIRI != "" {
		return c.BaseIRI
	}
	return weave.EntityNamespace
}

// DefaultConfig returns the default configuration for rdf-export.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "entities_in",
					Type:        "jetstream",
					Subject:     graph.GraphIngestSubject,
					StreamName:  "GRAPH",
					Required:    true,
					Description: "Graph entities of woven artifacts",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "rdf_out",
					Type:        "jetstream",
					Subject:     OutputSubject,
					Required:    true,
					Description: "Serialized RDF of woven entities",
				},
			},
		},
		Format:  string(export.FormatTurtle),
		Profile: string(export.ProfileMinimal),
		BaseIRI: weave.EntityNamespace,
	}
}
