package rdfexport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semweave/export"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "weave",
		Category:    "rdf",
		Version:     "v1",
		Description: "Serialized RDF of one woven entity",
		Factory:     func() any { return &Payload{} },
	})
	if err != nil {
		panic("failed to register Payload: " + err.Error())
	}
}

// RDFExportType is the message type for RDF export payloads.
var RDFExportType = message.Type{Domain: "weave", Category: "rdf", Version: "v1"}

// Payload carries the RDF serialization of one woven entity.
type Payload struct {
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"` // asset, artifact, concept
	Format     string `json:"format"`      // turtle, ntriples, jsonld
	Profile    string `json:"profile"`     // minimal, bfo, cco
	Triples    int    `json:"triples"`
	Content    string `json:"content"`
}

// Schema returns the message type for Payload interface.
func (p *Payload) Schema() message.Type { return RDFExportType }

// Validate requires a woven entity, a known format and serialized content
// of at least one triple.
func (p *Payload) Validate() error {
	if p.EntityID == "" {
		return errors.New("entity_id is required")
	}
	if export.InferEntityType(p.EntityID) == "" {
		return fmt.Errorf("entity %s is not woven", p.EntityID)
	}
	if _, err := export.ParseFormat(p.Format); err != nil {
		return err
	}
	if p.Triples == 0 || p.Content == "" {
		return fmt.Errorf("entity %s has no RDF content", p.EntityID)
	}
	return nil
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	type Alias Payload
	return json.Marshal((*Alias)(p))
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	type Alias Payload
	return json.Unmarshal(data, (*Alias)(p))
}
