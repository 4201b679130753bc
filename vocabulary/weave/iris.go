package weave

// Namespace is the base IRI prefix for all semweave ontology terms.
const Namespace = "https://semweave.dev/ontology/"

// EntityNamespace is the base IRI for semweave entity instances.
const EntityNamespace = "https://semweave.dev/entity/"

// AnnotationNamespace is the XML namespace of canonical annotation elements
// written into woven documents.
const AnnotationNamespace = Namespace + "annotation/"

// AnnotationPrefix is the XML prefix bound to AnnotationNamespace.
const AnnotationPrefix = "ann"

// AssetsNamespace is the default canonical base URI for assets.
const AssetsNamespace = "https://semweave.dev/assets/"

// AssetsPrefix is the XML prefix bound to the canonical assets namespace.
const AssetsPrefix = "assets"

// Class IRIs.
const (
	// ClassKnowledgeAsset is the stable identity of knowledge content.
	// Extends: bfo:GenericallyDependentContinuant, cco:InformationContentEntity, prov:Entity
	ClassKnowledgeAsset = Namespace + "KnowledgeAsset"

	// ClassArtifact is one version of a model document.
	// Extends: bfo:GenericallyDependentContinuant, cco:DirectiveInformationContentEntity, prov:Entity
	ClassArtifact = Namespace + "Artifact"

	// ClassConcept is a terminology concept referenced by an annotation.
	ClassConcept = Namespace + "Concept"
)

// Annotation relationship IRIs.
const (
	IRICaptures          = Namespace + "captures"
	IRIDefines           = Namespace + "defines"
	IRIHasPrimarySubject = Namespace + "hasPrimarySubject"
	IRIHasFocus          = Namespace + "hasFocus"
	IRIInTermsOf         = Namespace + "inTermsOf"
)
