// Package ingest discovers vendor model files and turns them into model
// ingest requests: glob expansion, directory watching, and the request
// payload consumed by the model weaver.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/resolver"
	"gopkg.in/yaml.v3"
)

// Subject on which model ingest requests are published.
const Subject = "weave.ingest.model"

// StreamName is the JetStream stream carrying model ingest requests.
const StreamName = "WEAVE"

// ManifestSuffix is appended to a model file name to locate its manifest.
const ManifestSuffix = ".manifest.yaml"

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "weave",
		Category:    "model",
		Version:     "v1",
		Description: "Vendor model document to weave and resolve",
		Factory:     func() any { return &ModelRequest{} },
	})
	if err != nil {
		panic("failed to register ModelRequest: " + err.Error())
	}
}

// ModelRequestType is the message type for model ingest requests.
var ModelRequestType = message.Type{Domain: "weave", Category: "model", Version: "v1"}

// ModelRequest carries one vendor model document and the manifest of the
// artifact version it was exported from.
type ModelRequest struct {
	Path     string            `json:"path,omitempty"`
	Manifest resolver.Manifest `json:"manifest"`
	Content  string            `json:"content"`
}

// Schema returns the message type for Payload interface.
func (r *ModelRequest) Schema() message.Type { return ModelRequestType }

// Validate validates the payload for Payload interface.
func (r *ModelRequest) Validate() error {
	if r.Content == "" {
		return errors.New("content is required")
	}
	if r.Manifest.ModelURI == "" {
		return errors.New("manifest model_uri is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r *ModelRequest) MarshalJSON() ([]byte, error) {
	type Alias ModelRequest
	return json.Marshal((*Alias)(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ModelRequest) UnmarshalJSON(data []byte) error {
	type Alias ModelRequest
	return json.Unmarshal(data, (*Alias)(r))
}

// fileManifest is the on-disk manifest shape.
type fileManifest struct {
	ModelURI string    `yaml:"model_uri"`
	Version  string    `yaml:"version"`
	Updated  time.Time `yaml:"updated"`
	State    string    `yaml:"state"`
	MimeType string    `yaml:"mime_type"`
	Name     string    `yaml:"name"`
}

// FromFile reads a model file and builds its ingest request. The manifest
// comes from a sibling "<file>.manifest.yaml" when one exists; fields it
// leaves empty are filled from the document root.
func FromFile(path string) (*ModelRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	m, err := LoadManifest(path + ManifestSuffix)
	if err != nil {
		return nil, err
	}
	if err := fillFromRoot(&m, content); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", filepath.Base(path), err)
	}

	req := &ModelRequest{Path: path, Manifest: m, Content: string(content)}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return req, nil
}

// LoadManifest reads a manifest file. A missing file yields an empty
// manifest.
func LoadManifest(path string) (resolver.Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return resolver.Manifest{}, nil
	}
	if err != nil {
		return resolver.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var fm fileManifest
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return resolver.Manifest{}, fmt.Errorf("parse manifest %s: %w", filepath.Base(path), err)
	}
	return resolver.Manifest{
		ModelURI: fm.ModelURI,
		Version:  fm.Version,
		Updated:  fm.Updated,
		State:    graphquery.ParseState(fm.State),
		MimeType: fm.MimeType,
		Name:     fm.Name,
	}, nil
}

// fillFromRoot takes the model URI from the root "namespace" attribute and
// the name from the root "name" attribute.
func fillFromRoot(m *resolver.Manifest, content []byte) error {
	if m.ModelURI != "" && m.Name != "" {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return errors.New("document has no root element")
	}
	if m.ModelURI == "" {
		m.ModelURI = root.SelectAttrValue("namespace", "")
	}
	if m.Name == "" {
		m.Name = root.SelectAttrValue("name", "")
	}
	return nil
}
