// Package weave provides vocabulary predicates for woven knowledge artifacts.
//
// The vocabulary covers two concerns:
//   - Annotation: semantic relationships between an asset and terminology
//     concepts (weave.annotation.*)
//   - Identity: asset and artifact identity, versions and dependency lineage
//     (weave.asset.*, weave.artifact.*)
//
// # Semstreams Integration
//
// Predicates use three-level dotted notation (domain.category.property) and
// are registered in init() with vocabulary.Register, carrying IRI mappings for
// RDF export:
//
//	import "github.com/c360studio/semweave/vocabulary/weave"
//
//	triples := []message.Triple{
//	    {Subject: assetEntityID, Predicate: weave.AnnotationDefines, Object: conceptURI},
//	    {Subject: assetEntityID, Predicate: weave.AssetDependsOn, Object: depAssetURI},
//	}
//
// # Ontology Alignment
//
//	Entity Type → BFO Class                        → CCO Class
//	Asset       → GenericallyDependentContinuant   → InformationContentEntity
//	Artifact    → GenericallyDependentContinuant   → DirectiveInformationContentEntity
//	Concept     → GenericallyDependentContinuant   → InformationContentEntity
package weave
