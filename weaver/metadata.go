package weaver

import (
	"github.com/beevik/etree"
	"github.com/c360studio/semweave/annotation"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/vocabulary/weave"
)

// Canonical annotation element and attribute names.
const (
	annotationElement = "annotation"
	attrRel           = "rel"
	attrRef           = "ref"
	attrTag           = "tag"
	attrLabel         = "label"
	attrScheme        = "scheme"
)

// isMetadata reports whether el is a vendor metadata element.
func (p *pass) isMetadata(el *etree.Element) bool {
	return p.w.isVendor(elementNamespace(el)) &&
		el.SelectAttr("uri") != nil &&
		el.SelectAttr("modelURI") != nil
}

// weaveMetadata replaces each vendor metadata element with a canonical
// annotation, or drops it when its concept does not resolve or classify.
func (p *pass) weaveMetadata() error {
	var found []*etree.Element
	for _, el := range walk(p.root) {
		if el != p.root && p.isMetadata(el) {
			found = append(found, el)
		}
	}

	for _, el := range found {
		if !p.attached(el) {
			continue
		}
		for i := range el.Attr {
			if v, ok := p.w.rewriter.Rewrite(el.Attr[i].Value); ok {
				el.Attr[i].Value = v
			}
		}

		uri := el.SelectAttrValue("uri", "")
		key := identifier.Fragment(uri)
		if key == "" {
			p.report(CodeMalformedMetadata, el, "metadata element has no concept identifier in uri %q", uri)
			detach(el)
			continue
		}

		d, err := p.w.concepts.Lookup(p.ctx, key)
		if err != nil {
			if ctxErr := p.ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.report(CodeUnresolvedConcept, el, "concept %q: %v", key, err)
			detach(el)
			continue
		}

		parent := el.Parent()
		lineage := annotation.Lineage{Parent: localName(parent)}
		if parent != nil {
			lineage.Grandparent = localName(parent.Parent())
		}
		rel := p.w.classifier.Classify(d, lineage)
		if !rel.Recognized() {
			p.report(CodeUnclassifiedConcept, el, "concept %q has no relationship under %s/%s",
				key, lineage.Grandparent, lineage.Parent)
			detach(el)
			continue
		}

		ann := newAnnotationElement(annotation.Annotation{Rel: rel, Ref: d})
		parent.InsertChildAt(el.Index(), ann)
		parent.RemoveChild(el)
		p.w.logger.Debug("Metadata woven", "concept", key, "rel", rel.Tag())
	}
	return nil
}

func newAnnotationElement(a annotation.Annotation) *etree.Element {
	el := etree.NewElement(weave.AnnotationPrefix + ":" + annotationElement)
	el.CreateAttr(attrRel, a.Rel.Tag())
	if a.Ref.URI != "" {
		el.CreateAttr(attrRef, a.Ref.URI)
	}
	if a.Ref.Tag != "" {
		el.CreateAttr(attrTag, a.Ref.Tag)
	}
	if a.Ref.Label != "" {
		el.CreateAttr(attrLabel, a.Ref.Label)
	}
	if a.Ref.Scheme != "" {
		el.CreateAttr(attrScheme, a.Ref.Scheme)
	}
	return el
}

// ExtractAnnotations reads the canonical annotations of a woven document and
// reduces them to a deduplicated, ordered list.
func ExtractAnnotations(doc *etree.Document) []annotation.Annotation {
	var out []annotation.Annotation
	for _, el := range walk(doc.Root()) {
		if el.Tag != annotationElement || elementNamespace(el) != weave.AnnotationNamespace {
			continue
		}
		a := annotation.Annotation{Rel: annotation.ParseRelation(el.SelectAttrValue(attrRel, ""))}
		a.Ref.URI = el.SelectAttrValue(attrRef, "")
		a.Ref.Tag = el.SelectAttrValue(attrTag, "")
		a.Ref.Label = el.SelectAttrValue(attrLabel, "")
		a.Ref.Scheme = el.SelectAttrValue(attrScheme, "")
		out = append(out, a)
	}
	return annotation.Reduce(out)
}
