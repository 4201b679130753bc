package weave

import "github.com/c360studio/semstreams/vocabulary"

// Annotation predicates relate an asset to the concepts its content is about.
const (
	// AnnotationCaptures links an asset to the decision type or task it captures.
	AnnotationCaptures = "weave.annotation.captures"

	// AnnotationDefines links an asset to a concept one of its decisions defines.
	AnnotationDefines = "weave.annotation.defines"

	// AnnotationHasPrimarySubject links an asset to its primary subject concept.
	AnnotationHasPrimarySubject = "weave.annotation.has_primary_subject"

	// AnnotationHasFocus links an asset to a concept it focuses on.
	AnnotationHasFocus = "weave.annotation.has_focus"

	// AnnotationInTermsOf links an asset to a concept its inputs are expressed in.
	AnnotationInTermsOf = "weave.annotation.in_terms_of"
)

// Asset predicates describe the stable identity of knowledge content.
const (
	// AssetTag is the stable asset UUID.
	AssetTag = "weave.asset.tag"

	// AssetVersion is the asset version tag.
	AssetVersion = "weave.asset.version"

	// AssetTimestamp is the RFC3339 timestamp of the asset version.
	AssetTimestamp = "weave.asset.timestamp"

	// AssetCarriedBy links an asset to the artifact carrying it.
	AssetCarriedBy = "weave.asset.carried_by"

	// AssetDependsOn links an asset to a dependency asset version.
	AssetDependsOn = "weave.asset.depends_on"
)

// Artifact predicates describe one version of a vendor model document.
const (
	// ArtifactModel is the stable internal model URI.
	ArtifactModel = "weave.artifact.model"

	// ArtifactVersion is the artifact's semantic version.
	ArtifactVersion = "weave.artifact.version"

	// ArtifactUpdated is the RFC3339 creation timestamp of the version.
	ArtifactUpdated = "weave.artifact.updated"

	// ArtifactState is the publication state.
	// Values: published, draft, pending_approval
	ArtifactState = "weave.artifact.state"

	// ArtifactNotation is the modeling notation.
	// Values: decision, case, process, lexicon
	ArtifactNotation = "weave.artifact.notation"

	// ArtifactName is the model name.
	ArtifactName = "weave.artifact.name"

	// ArtifactDependsOn links an artifact to a dependency artifact version.
	ArtifactDependsOn = "weave.artifact.depends_on"

	// ArtifactHistorical marks bundles resolved through historical inference.
	ArtifactHistorical = "weave.artifact.historical"
)

// Concept predicates describe the terminology concepts annotations point at.
const (
	// ConceptLabel is the preferred label of a concept.
	ConceptLabel = "weave.concept.label"

	// ConceptScheme names the vocabulary a concept belongs to.
	ConceptScheme = "weave.concept.scheme"
)

func init() {
	registerConceptPredicates()
	registerAnnotationPredicates()
	registerAssetPredicates()
	registerArtifactPredicates()
}

func registerConceptPredicates() {
	vocabulary.Register(ConceptLabel,
		vocabulary.WithDescription("Preferred concept label"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.SkosPrefLabel))

	vocabulary.Register(ConceptScheme,
		vocabulary.WithDescription("Vocabulary the concept belongs to"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"scheme"))
}

func registerAnnotationPredicates() {
	vocabulary.Register(AnnotationCaptures,
		vocabulary.WithDescription("Decision type or task the asset captures"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithRange(ClassConcept),
		vocabulary.WithIRI(IRICaptures))

	vocabulary.Register(AnnotationDefines,
		vocabulary.WithDescription("Concept defined by a decision of the asset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(IRIDefines))

	vocabulary.Register(AnnotationHasPrimarySubject,
		vocabulary.WithDescription("Primary subject concept of the asset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(IRIHasPrimarySubject))

	vocabulary.Register(AnnotationHasFocus,
		vocabulary.WithDescription("Concept the asset focuses on"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(IRIHasFocus))

	vocabulary.Register(AnnotationInTermsOf,
		vocabulary.WithDescription("Concept the asset inputs are expressed in"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(IRIInTermsOf))
}

func registerAssetPredicates() {
	vocabulary.Register(AssetTag,
		vocabulary.WithDescription("Stable asset UUID"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"assetTag"))

	vocabulary.Register(AssetVersion,
		vocabulary.WithDescription("Asset version tag"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"assetVersion"))

	vocabulary.Register(AssetTimestamp,
		vocabulary.WithDescription("Asset version timestamp"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(Namespace+"assetTimestamp"))

	vocabulary.Register(AssetCarriedBy,
		vocabulary.WithDescription("Artifact version carrying the asset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"carriedBy"))

	vocabulary.Register(AssetDependsOn,
		vocabulary.WithDescription("Dependency asset version"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"dependsOn"))
}

func registerArtifactPredicates() {
	vocabulary.Register(ArtifactModel,
		vocabulary.WithDescription("Internal model URI"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"model"))

	vocabulary.Register(ArtifactVersion,
		vocabulary.WithDescription("Artifact semantic version"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"artifactVersion"))

	vocabulary.Register(ArtifactUpdated,
		vocabulary.WithDescription("Artifact version creation timestamp"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(Namespace+"updated"))

	vocabulary.Register(ArtifactState,
		vocabulary.WithDescription("Publication state"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"state"))

	vocabulary.Register(ArtifactNotation,
		vocabulary.WithDescription("Modeling notation"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"notation"))

	vocabulary.Register(ArtifactName,
		vocabulary.WithDescription("Model name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"name"))

	vocabulary.Register(ArtifactDependsOn,
		vocabulary.WithDescription("Dependency artifact version"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"artifactDependsOn"))

	vocabulary.Register(ArtifactHistorical,
		vocabulary.WithDescription("Dependencies inferred from version history"),
		vocabulary.WithDataType("bool"),
		vocabulary.WithIRI(Namespace+"historical"))
}
