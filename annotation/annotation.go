package annotation

import (
	"sort"

	"github.com/c360studio/semweave/concept"
)

// Annotation links a woven document to a resolved concept.
type Annotation struct {
	Rel Relation           `json:"rel"`
	Ref concept.Descriptor `json:"ref"`
}

// RefTag returns the concept reference used for identity and ordering.
func (a Annotation) RefTag() string {
	if a.Ref.Tag != "" {
		return a.Ref.Tag
	}
	return a.Ref.URI
}

type reductionKey struct {
	rel Relation
	ref string
}

// Reduce keeps annotations with a recognized relationship, removes duplicate
// (relationship, concept) pairs keeping the first occurrence, and sorts the
// result by relationship tag then concept tag.
func Reduce(in []Annotation) []Annotation {
	seen := make(map[reductionKey]bool, len(in))
	out := make([]Annotation, 0, len(in))
	for _, a := range in {
		if !a.Rel.Recognized() {
			continue
		}
		key := reductionKey{rel: a.Rel, ref: a.RefTag()}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Rel.Tag(), out[j].Rel.Tag()
		if ti != tj {
			return ti < tj
		}
		return out[i].RefTag() < out[j].RefTag()
	})
	return out
}
