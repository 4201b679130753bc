package graph

import (
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semweave/annotation"
	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/resolver"
	"github.com/c360studio/semweave/vocabulary/weave"
	"github.com/google/uuid"
)

// Source recorded on every triple.
const tripleSource = "semweave.weave"

// Woven is the outcome of weaving and resolving one artifact version.
type Woven struct {
	Artifact    identifier.ArtifactRef
	Name        string
	State       graphquery.State
	Notation    identifier.Notation
	Annotations []annotation.Annotation
	// Bundle is nil when identity resolution was skipped or failed.
	Bundle *resolver.Bundle
}

// AssetEntityID returns the entity ID of an asset.
// Format: semweave.local.weave.asset.asset.<tag>
func AssetEntityID(tag uuid.UUID) string {
	return fmt.Sprintf("semweave.local.weave.asset.asset.%s", tag)
}

// ArtifactEntityID returns the entity ID of an artifact version.
// Format: semweave.local.weave.artifact.artifact.<key>
func ArtifactEntityID(ref identifier.ArtifactRef) string {
	return fmt.Sprintf("semweave.local.weave.artifact.artifact.%s", ref.Key())
}

// ConceptRef returns the object used for an annotation's concept.
func ConceptRef(a annotation.Annotation) string {
	if a.Ref.URI != "" {
		return a.Ref.URI
	}
	return a.Ref.Tag
}

type tripleBuilder struct {
	subject string
	now     time.Time
	triples []message.Triple
}

func (b *tripleBuilder) add(predicate string, object any) {
	if s, ok := object.(string); ok && s == "" {
		return
	}
	b.triples = append(b.triples, message.Triple{
		Subject:    b.subject,
		Predicate:  predicate,
		Object:     object,
		Source:     tripleSource,
		Timestamp:  b.now,
		Confidence: 1.0,
	})
}

func (b *tripleBuilder) payload() *EntityPayload {
	return &EntityPayload{EntityID_: b.subject, TripleData: b.triples, UpdatedAt: b.now}
}

// BuildEntities returns the artifact entity and, when the identity bundle
// is known, the asset entity it carries.
func BuildEntities(w Woven, now time.Time) []*EntityPayload {
	art := &tripleBuilder{subject: ArtifactEntityID(w.Artifact), now: now}
	art.add(weave.ArtifactModel, w.Artifact.ModelURI)
	art.add(weave.ArtifactVersion, w.Artifact.Version)
	if !w.Artifact.Updated.IsZero() {
		art.add(weave.ArtifactUpdated, w.Artifact.Updated.Format(time.RFC3339))
	}
	art.add(weave.ArtifactState, string(w.State))
	art.add(weave.ArtifactNotation, string(w.Notation))
	art.add(weave.ArtifactName, w.Name)

	if w.Bundle == nil {
		for _, a := range w.Annotations {
			art.add(a.Rel.Predicate(), ConceptRef(a))
		}
		return []*EntityPayload{art.payload()}
	}

	for _, dep := range w.Bundle.DependencyArtifacts {
		art.add(weave.ArtifactDependsOn, ArtifactEntityID(dep))
	}
	art.add(weave.ArtifactHistorical, w.Bundle.Historical)

	asset := &tripleBuilder{subject: AssetEntityID(w.Bundle.AssetID.Tag), now: now}
	asset.add(weave.AssetTag, w.Bundle.AssetID.Tag.String())
	asset.add(weave.AssetVersion, w.Bundle.AssetID.VersionTag)
	if !w.Bundle.AssetID.Timestamp.IsZero() {
		asset.add(weave.AssetTimestamp, w.Bundle.AssetID.Timestamp.Format(time.RFC3339))
	}
	asset.add(weave.AssetCarriedBy, art.subject)
	for _, a := range w.Annotations {
		asset.add(a.Rel.Predicate(), ConceptRef(a))
	}
	for _, dep := range w.Bundle.DependencyAssetIDs {
		asset.add(weave.AssetDependsOn, AssetEntityID(dep.Tag))
	}

	return []*EntityPayload{art.payload(), asset.payload()}
}
