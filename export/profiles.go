package export

import (
	"fmt"
	"strings"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
	"github.com/c360studio/semweave/vocabulary/weave"
)

// Profile determines which ontology type assertions are included in the export.
type Profile string

const (
	// ProfileMinimal includes only PROV-O, Dublin Core, and SKOS predicates.
	ProfileMinimal Profile = "minimal"

	// ProfileBFO includes BFO type assertions plus minimal profile.
	ProfileBFO Profile = "bfo"

	// ProfileCCO includes CCO type assertions plus BFO profile.
	ProfileCCO Profile = "cco"
)

// ProfileConfig contains configuration for an export profile.
type ProfileConfig struct {
	Name         Profile
	Description  string
	IncludeBFO   bool
	IncludeCCO   bool
	IncludePROV  bool
	// IncludeWeave adds the semweave class of each entity.
	IncludeWeave bool
}

// Profiles contains the configuration for all available export profiles.
var Profiles = map[Profile]ProfileConfig{
	ProfileMinimal: {
		Name:         ProfileMinimal,
		Description:  "PROV-O, Dublin Core, and SKOS predicates only",
		IncludePROV:  true,
		IncludeWeave: true,
	},
	ProfileBFO: {
		Name:         ProfileBFO,
		Description:  "BFO type assertions plus minimal profile",
		IncludeBFO:   true,
		IncludePROV:  true,
		IncludeWeave: true,
	},
	ProfileCCO: {
		Name:         ProfileCCO,
		Description:  "Full CCO/BFO/PROV-O alignment",
		IncludeBFO:   true,
		IncludeCCO:   true,
		IncludePROV:  true,
		IncludeWeave: true,
	},
}

// ParseProfile resolves a profile name. The empty string selects the
// minimal profile.
func ParseProfile(s string) (Profile, error) {
	if s == "" {
		return ProfileMinimal, nil
	}
	p := Profile(strings.ToLower(s))
	if _, ok := Profiles[p]; !ok {
		return "", fmt.Errorf("unknown profile: %s", s)
	}
	return p, nil
}

// GetProfileConfig returns the configuration for a profile.
func GetProfileConfig(profile Profile) ProfileConfig {
	if config, ok := Profiles[profile]; ok {
		return config
	}
	return Profiles[ProfileMinimal]
}

// TypeAsserter generates type assertions for entities based on profile.
type TypeAsserter struct {
	profile ProfileConfig
}

// NewTypeAsserter creates a new type asserter for the given profile.
func NewTypeAsserter(profile Profile) *TypeAsserter {
	return &TypeAsserter{profile: GetProfileConfig(profile)}
}

// GetTypeIRIs returns all type IRIs for an entity type based on the profile.
func (t *TypeAsserter) GetTypeIRIs(entityType weave.EntityType) []string {
	types := make([]string, 0, 4)
	add := func(enabled bool, m map[weave.EntityType]string) {
		if !enabled {
			return
		}
		if class, ok := m[entityType]; ok {
			types = append(types, class)
		}
	}
	add(t.profile.IncludeWeave, weave.WeaveClassMap)
	add(t.profile.IncludePROV, weave.PROVClassMap)
	add(t.profile.IncludeBFO, weave.BFOClassMap)
	add(t.profile.IncludeCCO, weave.CCOClassMap)
	return types
}

// TypeTriples returns rdf:type triples for an entity based on its type and
// the given profile.
func TypeTriples(entityID string, entityType weave.EntityType, profile Profile) []message.Triple {
	typeIRIs := NewTypeAsserter(profile).GetTypeIRIs(entityType)
	triples := make([]message.Triple, 0, len(typeIRIs))
	for _, typeIRI := range typeIRIs {
		triples = append(triples, message.Triple{
			Subject:    entityID,
			Predicate:  "rdf.syntax.type",
			Object:     typeIRI,
			Source:     "semweave.rdf-export",
			Confidence: 1.0,
		})
	}
	return triples
}

// ClassDescriptions provides human-readable descriptions of the classes
// woven entities are aligned to.
var ClassDescriptions = map[string]string{
	weave.ClassKnowledgeAsset:             "Stable identity of knowledge content",
	weave.ClassArtifact:                   "One version of a model document",
	weave.ClassConcept:                    "Terminology concept",
	bfo.GenericallyDependentContinuant:    "Information patterns that can be copied",
	cco.InformationContentEntity:          "Root class for information entities",
	cco.DirectiveInformationContentEntity: "Prescriptive information content",
	vocabulary.ProvEntity:                 "Thing with fixed aspects",
}

// InferEntityType infers the entity type from an entity ID.
// Asset and artifact IDs follow semweave.local.weave.<type>.<type>.<id>;
// anything else that looks like an IRI is taken to be a concept.
func InferEntityType(entityID string) weave.EntityType {
	if isIRI(entityID) {
		return weave.EntityTypeConcept
	}
	parts := strings.Split(entityID, ".")
	if len(parts) < 6 || parts[0]+"." != entityIDPrefix || parts[2] != "weave" {
		return ""
	}
	switch weave.EntityType(parts[3]) {
	case weave.EntityTypeAsset:
		return weave.EntityTypeAsset
	case weave.EntityTypeArtifact:
		return weave.EntityTypeArtifact
	}
	return ""
}
