// Package storage persists woven artifacts and identity bundles in NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semweave/annotation"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/weaver"
	"github.com/nats-io/nats.go/jetstream"
)

// EntityType represents the type of entity stored in KV.
type EntityType string

const (
	EntityTypeDocument EntityType = "document"
	EntityTypeBundle   EntityType = "bundle"
)

// Bucket names for each entity type.
const (
	BucketDocuments = "SEMWEAVE_DOCUMENTS"
	BucketBundles   = "SEMWEAVE_BUNDLES"
)

// EntityID represents a typed entity identifier.
type EntityID struct {
	Type EntityType
	ID   string
}

// String returns the string representation of the entity ID.
func (e EntityID) String() string {
	return fmt.Sprintf("%s:%s", e.Type, e.ID)
}

// ParseEntityID parses an entity ID string into its components.
func ParseEntityID(s string) (EntityID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return EntityID{}, fmt.Errorf("invalid entity ID format: %s", s)
	}
	entityType := EntityType(parts[0])
	switch entityType {
	case EntityTypeDocument, EntityTypeBundle:
		return EntityID{Type: entityType, ID: parts[1]}, nil
	default:
		return EntityID{}, fmt.Errorf("%w: %s", ErrEntityType, parts[0])
	}
}

// ArtifactKey returns the deterministic KV key of an artifact version.
// Re-weaving the same version overwrites the same key.
func ArtifactKey(ref identifier.ArtifactRef) string {
	return ref.Key()
}

// NewEntityID returns the entity ID of an artifact version.
func NewEntityID(t EntityType, ref identifier.ArtifactRef) EntityID {
	return EntityID{Type: t, ID: ArtifactKey(ref)}
}

// Document is a woven canonical document.
type Document struct {
	ID          string                  `json:"id"`
	Artifact    identifier.ArtifactRef  `json:"artifact"`
	Name        string                  `json:"name,omitempty"`
	Notation    identifier.Notation     `json:"notation,omitempty"`
	Content     string                  `json:"content"`
	Annotations []annotation.Annotation `json:"annotations,omitempty"`
	Diagnostics []weaver.Diagnostic     `json:"diagnostics,omitempty"`
	WovenAt     time.Time               `json:"woven_at"`
}

// Bundle is a stored identity bundle.
type Bundle struct {
	ID         string          `json:"id"`
	Bundle     resolver.Bundle `json:"bundle"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

// Store provides entity storage operations backed by NATS KV.
type Store struct {
	documents jetstream.KeyValue
	bundles   jetstream.KeyValue
}

// NewStore creates a new Store with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	documents, err := getOrCreateBucket(ctx, js, BucketDocuments)
	if err != nil {
		return nil, fmt.Errorf("create documents bucket: %w", err)
	}

	bundles, err := getOrCreateBucket(ctx, js, BucketBundles)
	if err != nil {
		return nil, fmt.Errorf("create bundles bucket: %w", err)
	}

	return &Store{documents: documents, bundles: bundles}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semweave %s storage", strings.ToLower(name)),
		History:     5,
	})
}

// PutDocument stores a woven document, replacing any earlier weave of the
// same artifact version.
func (s *Store) PutDocument(ctx context.Context, d *Document) (EntityID, error) {
	id := NewEntityID(EntityTypeDocument, d.Artifact)
	d.ID = id.String()
	if d.WovenAt.IsZero() {
		d.WovenAt = time.Now()
	}

	data, err := json.Marshal(d)
	if err != nil {
		return EntityID{}, fmt.Errorf("marshal document: %w", err)
	}
	if _, err := s.documents.Put(ctx, id.ID, data); err != nil {
		return EntityID{}, fmt.Errorf("store document: %w", err)
	}
	return id, nil
}

// GetDocument retrieves a woven document by ID.
func (s *Store) GetDocument(ctx context.Context, id EntityID) (*Document, error) {
	if id.Type != EntityTypeDocument {
		return nil, fmt.Errorf("%w: expected document, got %s", ErrEntityType, id.Type)
	}
	var d Document
	if err := get(ctx, s.documents, id.ID, &d); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns every stored document.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	keys, err := s.documents.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list document keys: %w", err)
	}

	docs := make([]*Document, 0, len(keys))
	for _, key := range keys {
		var d Document
		if err := get(ctx, s.documents, key, &d); err != nil {
			continue // Skip entries that fail to load
		}
		docs = append(docs, &d)
	}
	return docs, nil
}

// DeleteDocument removes a woven document.
func (s *Store) DeleteDocument(ctx context.Context, id EntityID) error {
	if err := s.documents.Delete(ctx, id.ID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// PutBundle stores the identity bundle of an artifact version.
func (s *Store) PutBundle(ctx context.Context, b *Bundle) (EntityID, error) {
	id := NewEntityID(EntityTypeBundle, b.Bundle.Artifact)
	b.ID = id.String()
	if b.ResolvedAt.IsZero() {
		b.ResolvedAt = time.Now()
	}

	data, err := json.Marshal(b)
	if err != nil {
		return EntityID{}, fmt.Errorf("marshal bundle: %w", err)
	}
	if _, err := s.bundles.Put(ctx, id.ID, data); err != nil {
		return EntityID{}, fmt.Errorf("store bundle: %w", err)
	}
	return id, nil
}

// GetBundle retrieves the identity bundle of an artifact version.
func (s *Store) GetBundle(ctx context.Context, ref identifier.ArtifactRef) (*Bundle, error) {
	var b Bundle
	if err := get(ctx, s.bundles, ArtifactKey(ref), &b); err != nil {
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	return &b, nil
}

func get(ctx context.Context, kv jetstream.KeyValue, key string, v any) error {
	entry, err := kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(entry.Value(), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) ||
		(err != nil && strings.Contains(err.Error(), "key not found"))
}
