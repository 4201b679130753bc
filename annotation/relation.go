// Package annotation models the semantic annotations woven into canonical
// documents: the closed set of relationship kinds, the reduction applied to
// extracted annotations, and the classification of resolved concepts.
package annotation

import (
	"fmt"

	"github.com/c360studio/semweave/vocabulary/weave"
)

// Relation is the relationship between an asset and a concept.
type Relation uint8

// Unclassified marks a concept with no recognized relationship; annotations
// carrying it are dropped.
const (
	Unclassified Relation = iota
	Captures
	Defines
	HasPrimarySubject
	HasFocus
	InTermsOf
)

type relationInfo struct {
	tag       string
	predicate string
	iri       string
}

var relationTable = map[Relation]relationInfo{
	Captures:          {"captures", weave.AnnotationCaptures, weave.IRICaptures},
	Defines:           {"defines", weave.AnnotationDefines, weave.IRIDefines},
	HasPrimarySubject: {"has-primary-subject", weave.AnnotationHasPrimarySubject, weave.IRIHasPrimarySubject},
	HasFocus:          {"has-focus", weave.AnnotationHasFocus, weave.IRIHasFocus},
	InTermsOf:         {"in-terms-of", weave.AnnotationInTermsOf, weave.IRIInTermsOf},
}

// Relations returns the recognized relationship kinds in tag order.
func Relations() []Relation {
	return []Relation{Captures, Defines, HasFocus, HasPrimarySubject, InTermsOf}
}

// Recognized reports whether r is one of the five relationship kinds.
func (r Relation) Recognized() bool {
	_, ok := relationTable[r]
	return ok
}

// Tag returns the short relationship tag, empty for Unclassified.
func (r Relation) Tag() string {
	return relationTable[r].tag
}

// Predicate returns the vocabulary predicate for the relationship.
func (r Relation) Predicate() string {
	return relationTable[r].predicate
}

// IRI returns the ontology IRI for the relationship.
func (r Relation) IRI() string {
	return relationTable[r].iri
}

func (r Relation) String() string {
	if !r.Recognized() {
		return "unclassified"
	}
	return r.Tag()
}

// ParseRelation accepts a tag, predicate or IRI. Unknown values yield Unclassified.
func ParseRelation(s string) Relation {
	for rel, info := range relationTable {
		if s == info.tag || s == info.predicate || s == info.iri {
			return rel
		}
	}
	return Unclassified
}

// MarshalText implements encoding.TextMarshaler.
func (r Relation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Relation) UnmarshalText(text []byte) error {
	s := string(text)
	rel := ParseRelation(s)
	if rel == Unclassified && s != "unclassified" && s != "" {
		return fmt.Errorf("unknown relation %q", s)
	}
	*r = rel
	return nil
}
