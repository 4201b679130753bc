package weaver

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// ErrLeak is returned by Verify when vendor content survives weaving.
var ErrLeak = errors.New("vendor content in canonical document")

// prune removes vendor structures that never survive into canonical form:
// listed elements and attributes, and metadata elements missing a uri.
func (p *pass) prune() {
	for _, el := range walk(p.root) {
		if el == p.root || !p.attached(el) {
			continue
		}
		if !p.w.isVendor(elementNamespace(el)) {
			continue
		}
		switch {
		case p.w.pruneNames[el.Tag]:
			p.report(CodePrunedElement, el, "removed %s", el.FullTag())
			detach(el)
		case el.SelectAttr("modelURI") != nil:
			p.report(CodeMalformedMetadata, el, "metadata element %s has no uri", el.FullTag())
			detach(el)
		}
	}

	for _, el := range walk(p.root) {
		kept := el.Attr[:0]
		for _, a := range el.Attr {
			if p.w.pruneNames[a.Key] && p.w.isVendor(attrNamespace(el, a)) {
				p.report(CodePrunedAttribute, el, "removed attribute %s", a.FullKey())
				continue
			}
			kept = append(kept, a)
		}
		el.Attr = kept
	}
}

// sweep removes any vendor-bound element or attribute left after the
// targeted passes, rewrites residual vendor base URIs, then drops vendor
// namespace declarations.
func (p *pass) sweep() {
	for _, el := range walk(p.root) {
		if el == p.root || !p.attached(el) {
			continue
		}
		if p.w.isVendor(elementNamespace(el)) {
			p.report(CodeVendorElement, el, "removed %s", el.FullTag())
			detach(el)
		}
	}

	for _, el := range walk(p.root) {
		kept := make([]etree.Attr, 0, len(el.Attr))
		for _, a := range el.Attr {
			if isDeclaration(a) {
				kept = append(kept, a)
				continue
			}
			if p.w.isVendor(attrNamespace(el, a)) {
				p.report(CodeVendorAttribute, el, "removed attribute %s", a.FullKey())
				continue
			}
			if v, ok := p.w.rewriter.Rewrite(a.Value); ok {
				a.Value = v
			}
			if p.w.leaks(a.Value) {
				p.report(CodeVendorAttribute, el, "removed attribute %s referencing a vendor namespace", a.FullKey())
				continue
			}
			kept = append(kept, a)
		}
		el.Attr = kept
	}

	for _, el := range walk(p.root) {
		kept := el.Attr[:0]
		for _, a := range el.Attr {
			if isDeclaration(a) && p.w.leaks(a.Value) {
				continue
			}
			kept = append(kept, a)
		}
		el.Attr = kept
	}
}

// Verify checks that doc carries no vendor namespace or vendor base URI in
// any element namespace or attribute.
func (w *Weaver) Verify(doc *etree.Document) error {
	for _, el := range walk(doc.Root()) {
		if w.isVendor(elementNamespace(el)) {
			return fmt.Errorf("%w: element %s", ErrLeak, el.GetPath())
		}
		for _, a := range el.Attr {
			if w.isVendor(attrNamespace(el, a)) || w.leaks(a.Value) || w.rewriter.Matches(a.Value) {
				return fmt.Errorf("%w: attribute %s on %s", ErrLeak, a.FullKey(), el.GetPath())
			}
		}
	}
	return nil
}
