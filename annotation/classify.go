package annotation

import "github.com/c360studio/semweave/concept"

// Lineage carries the local names of the parent and grandparent of the
// element a concept was attached to.
type Lineage struct {
	Parent      string
	Grandparent string
}

// Classifier decides the relationship of a resolved concept.
type Classifier interface {
	Classify(d concept.Descriptor, lineage Lineage) Relation
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(d concept.Descriptor, lineage Lineage) Relation

// Classify calls f.
func (f ClassifierFunc) Classify(d concept.Descriptor, lineage Lineage) Relation {
	return f(d, lineage)
}

// ClassifierConfig configures a VocabularyClassifier.
type ClassifierConfig struct {
	// CaptureSchemes names vocabularies (decision types, clinical tasks)
	// whose concepts are captured by the asset.
	CaptureSchemes []string `yaml:"capture_schemes" json:"capture_schemes"`
	// CaptureConcepts lists individual concept tags treated as captured.
	CaptureConcepts []string `yaml:"capture_concepts" json:"capture_concepts"`
	// DecisionElements are local names of decision-shaped nodes.
	DecisionElements []string `yaml:"decision_elements" json:"decision_elements"`
	// InputElements are local names of input-shaped nodes.
	InputElements []string `yaml:"input_elements" json:"input_elements"`
}

// DefaultClassifierConfig returns the standard vocabularies and node shapes.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		CaptureSchemes:   []string{"decision-types", "clinical-tasks"},
		DecisionElements: []string{"decision"},
		InputElements:    []string{"inputData"},
	}
}

// VocabularyClassifier classifies by vocabulary membership first, then by
// the lineage of the annotated element.
type VocabularyClassifier struct {
	captureSchemes  map[string]bool
	captureConcepts map[string]bool
	decisionShapes  map[string]bool
	inputShapes     map[string]bool
}

// NewVocabularyClassifier builds a classifier from configuration.
func NewVocabularyClassifier(cfg ClassifierConfig) *VocabularyClassifier {
	tags := make([]string, 0, len(cfg.CaptureConcepts))
	for _, t := range cfg.CaptureConcepts {
		tags = append(tags, concept.NormalizeKey(t))
	}
	return &VocabularyClassifier{
		captureSchemes:  toSet(cfg.CaptureSchemes),
		captureConcepts: toSet(tags),
		decisionShapes:  toSet(cfg.DecisionElements),
		inputShapes:     toSet(cfg.InputElements),
	}
}

// Classify implements Classifier.
func (c *VocabularyClassifier) Classify(d concept.Descriptor, lineage Lineage) Relation {
	if c.captureSchemes[d.Scheme] || c.captureConcepts[concept.NormalizeKey(d.Tag)] {
		return Captures
	}
	for _, name := range []string{lineage.Parent, lineage.Grandparent} {
		if c.decisionShapes[name] {
			return Defines
		}
		if c.inputShapes[name] {
			return InTermsOf
		}
	}
	return Unclassified
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
