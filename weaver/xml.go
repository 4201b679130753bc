package weaver

import "github.com/beevik/etree"

// namespaceOf resolves a prefix against the xmlns declarations in scope at el.
// The empty prefix resolves the default namespace.
func namespaceOf(el *etree.Element, prefix string) string {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// elementNamespace returns the namespace URI of el.
func elementNamespace(el *etree.Element) string {
	return namespaceOf(el, el.Space)
}

// attrNamespace returns the namespace URI of an attribute on el. Unprefixed
// attributes and namespace declarations have none.
func attrNamespace(el *etree.Element, a etree.Attr) string {
	if a.Space == "" || a.Space == "xmlns" {
		return ""
	}
	return namespaceOf(el, a.Space)
}

// isDeclaration reports whether the attribute declares a namespace.
func isDeclaration(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// walk returns root and all its descendant elements in document order.
func walk(root *etree.Element) []*etree.Element {
	if root == nil {
		return nil
	}
	out := []*etree.Element{root}
	for _, child := range root.ChildElements() {
		out = append(out, walk(child)...)
	}
	return out
}

// detach removes el from its parent, if any.
func detach(el *etree.Element) {
	if parent := el.Parent(); parent != nil {
		parent.RemoveChild(el)
	}
}

// localName returns the tag of el, or "" when el is nil or the document node.
func localName(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.Tag
}
