package weave

import (
	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
)

// EntityType represents the type of a semweave entity for mapping purposes.
type EntityType string

// Entity type constants.
const (
	EntityTypeAsset    EntityType = "asset"
	EntityTypeArtifact EntityType = "artifact"
	EntityTypeConcept  EntityType = "concept"
)

// BFOClassMap maps entity types to BFO class IRIs.
var BFOClassMap = map[EntityType]string{
	EntityTypeAsset:    bfo.GenericallyDependentContinuant,
	EntityTypeArtifact: bfo.GenericallyDependentContinuant,
	EntityTypeConcept:  bfo.GenericallyDependentContinuant,
}

// CCOClassMap maps entity types to CCO class IRIs.
var CCOClassMap = map[EntityType]string{
	EntityTypeAsset:    cco.InformationContentEntity,
	EntityTypeArtifact: cco.DirectiveInformationContentEntity,
	EntityTypeConcept:  cco.InformationContentEntity,
}

// PROVClassMap maps entity types to PROV-O class IRIs.
var PROVClassMap = map[EntityType]string{
	EntityTypeAsset:    vocabulary.ProvEntity,
	EntityTypeArtifact: vocabulary.ProvEntity,
	EntityTypeConcept:  vocabulary.ProvEntity,
}

// WeaveClassMap maps entity types to semweave class IRIs.
var WeaveClassMap = map[EntityType]string{
	EntityTypeAsset:    ClassKnowledgeAsset,
	EntityTypeArtifact: ClassArtifact,
	EntityTypeConcept:  ClassConcept,
}

// PredicateIRIMap maps internal predicates to standard IRIs.
var PredicateIRIMap = map[string]string{
	AnnotationCaptures:          IRICaptures,
	AnnotationDefines:           IRIDefines,
	AnnotationHasPrimarySubject: IRIHasPrimarySubject,
	AnnotationHasFocus:          IRIHasFocus,
	AnnotationInTermsOf:         IRIInTermsOf,

	AssetDependsOn:    vocabulary.ProvWasDerivedFrom,
	AssetCarriedBy:    cco.IsAbout,
	ArtifactDependsOn: vocabulary.ProvUsed,
	ArtifactUpdated:   vocabulary.ProvGeneratedAtTime,
	ArtifactName:      vocabulary.DcTitle,
	AssetTag:          vocabulary.DcIdentifier,
	ConceptLabel:      vocabulary.SkosPrefLabel,
}

// GetTypesForEntity returns all type IRIs for a given entity type and profile.
//   - "minimal": PROV-O + semweave types
//   - "bfo": BFO + PROV-O + semweave types
//   - "cco": CCO + BFO + PROV-O + semweave types
func GetTypesForEntity(entityType EntityType, profile string) []string {
	types := make([]string, 0, 4)

	if class, ok := WeaveClassMap[entityType]; ok {
		types = append(types, class)
	}
	if provClass, ok := PROVClassMap[entityType]; ok {
		types = append(types, provClass)
	}
	if profile == "bfo" || profile == "cco" {
		if bfoClass, ok := BFOClassMap[entityType]; ok {
			types = append(types, bfoClass)
		}
	}
	if profile == "cco" {
		if ccoClass, ok := CCOClassMap[entityType]; ok {
			types = append(types, ccoClass)
		}
	}

	return types
}

// GetPredicateIRI returns the standard IRI for a predicate, falling back to
// the semweave namespace for unmapped predicates.
func GetPredicateIRI(predicate string) string {
	if iri, ok := PredicateIRIMap[predicate]; ok {
		return iri
	}
	return Namespace + predicate
}
