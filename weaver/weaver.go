// Package weaver rewrites vendor model documents (DMN, CMMN, BPMN) into
// canonical form. Proprietary metadata elements become canonical semantic
// annotations, vendor-only structures are pruned and every identifier under
// the vendor base URI is rewritten into the canonical base.
package weaver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/c360studio/semweave/annotation"
	"github.com/c360studio/semweave/concept"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/vocabulary/weave"
)

// XSINamespace is the XML Schema instance namespace.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// ErrMalformedDocument is returned when the input is not a well-formed XML document.
var ErrMalformedDocument = errors.New("malformed model document")

// Result is the outcome of weaving one document.
type Result struct {
	// Document is the canonical document. It must not be modified afterwards.
	Document    *etree.Document
	Notation    identifier.Notation
	Annotations []annotation.Annotation
	Diagnostics []Diagnostic
}

// Bytes serializes the canonical document.
func (r *Result) Bytes() ([]byte, error) {
	return r.Document.WriteToBytes()
}

// Option configures a Weaver.
type Option func(*Weaver)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Weaver) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics records weaving outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(w *Weaver) { w.metrics = m }
}

// WithClassifier replaces the vocabulary classifier built from the config.
func WithClassifier(c annotation.Classifier) Option {
	return func(w *Weaver) {
		if c != nil {
			w.classifier = c
		}
	}
}

// Weaver normalizes vendor documents. It is safe for concurrent use; each
// call to Weave works on its own document.
type Weaver struct {
	cfg        Config
	concepts   concept.Resolver
	classifier annotation.Classifier
	rewriter   *identifier.Rewriter
	logger     *slog.Logger
	metrics    *Metrics

	vendorNS      map[string]bool
	pruneNames    map[string]bool
	refElements   map[string]bool
	vendorDomain  string
	unspecifiedDT string
}

// New validates cfg and creates a Weaver. Configuration problems are
// reported as ErrConfig.
func New(cfg Config, concepts concept.Resolver, opts ...Option) (*Weaver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if concepts == nil {
		return nil, fmt.Errorf("%w: concept resolver is required", ErrConfig)
	}
	rw, err := identifier.NewRewriter(cfg.VendorBaseURI, cfg.CanonicalBaseURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	for _, ns := range cfg.VendorNamespaces {
		if strings.Contains(cfg.CanonicalBaseURI, ns) || strings.Contains(weave.AnnotationNamespace, ns) {
			return nil, fmt.Errorf("%w: canonical namespaces must not contain vendor namespace %q", ErrConfig, ns)
		}
	}

	w := &Weaver{
		cfg:           cfg,
		concepts:      concepts,
		classifier:    annotation.NewVocabularyClassifier(cfg.Classifier),
		rewriter:      rw,
		logger:        slog.Default(),
		vendorNS:      make(map[string]bool, len(cfg.VendorNamespaces)),
		pruneNames:    make(map[string]bool, len(cfg.PruneNames)),
		refElements:   make(map[string]bool, len(cfg.ReferenceElements)),
		vendorDomain:  cfg.VendorDomain,
		unspecifiedDT: cfg.UnspecifiedDefinitionType,
	}
	for _, ns := range cfg.VendorNamespaces {
		w.vendorNS[ns] = true
	}
	for _, n := range cfg.PruneNames {
		w.pruneNames[n] = true
	}
	for _, n := range cfg.ReferenceElements {
		w.refElements[n] = true
	}
	if w.vendorDomain == "" {
		if u, err := url.Parse(cfg.VendorBaseURI); err == nil {
			w.vendorDomain = u.Host
		}
	}
	if w.unspecifiedDT == "" {
		w.unspecifiedDT = UnspecifiedDefinitionType
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Weave parses raw and normalizes it.
func (w *Weaver) Weave(ctx context.Context, raw []byte) (*Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return w.WeaveDocument(ctx, doc)
}

// WeaveDocument normalizes doc in place. Per-element problems are reported as
// diagnostics; only configuration errors, cancellation and empty documents
// fail the call.
func (w *Weaver) WeaveDocument(ctx context.Context, doc *etree.Document) (*Result, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}

	p := &pass{w: w, ctx: ctx, root: root}
	notation, err := p.rewriteSchema()
	if err != nil {
		return nil, err
	}
	if err := p.weaveMetadata(); err != nil {
		return nil, err
	}
	p.prune()
	p.rewriteRootAttributes()
	p.rewriteReferences()
	p.repairDefinitionTypes()
	p.sweep()

	res := &Result{
		Document:    doc,
		Notation:    notation,
		Annotations: ExtractAnnotations(doc),
		Diagnostics: p.diags,
	}
	w.metrics.observe(res)
	w.logger.Debug("Document woven",
		"notation", notation,
		"annotations", len(res.Annotations),
		"diagnostics", len(res.Diagnostics))
	return res, nil
}

// isVendor reports whether ns is one of the proprietary namespaces.
func (w *Weaver) isVendor(ns string) bool {
	return ns != "" && w.vendorNS[ns]
}

// leaks reports whether a value mentions a proprietary namespace.
func (w *Weaver) leaks(value string) bool {
	for ns := range w.vendorNS {
		if strings.Contains(value, ns) {
			return true
		}
	}
	return false
}

// pass holds the state of one WeaveDocument call.
type pass struct {
	w     *Weaver
	ctx   context.Context
	root  *etree.Element
	diags []Diagnostic
}

func (p *pass) report(code Code, el *etree.Element, format string, args ...any) {
	d := Diagnostic{Code: code, Element: el.GetPath(), Message: fmt.Sprintf(format, args...)}
	p.diags = append(p.diags, d)
	p.w.logger.Warn("Model element dropped or repaired",
		"code", d.Code,
		"element", d.Element,
		"detail", d.Message)
}

// attached reports whether el is still part of the document tree.
func (p *pass) attached(el *etree.Element) bool {
	for e := el; e != nil; e = e.Parent() {
		if e == p.root {
			return true
		}
	}
	return false
}

// rewriteSchema detects the notation from the root namespace and declares
// the schema location and canonical annotation namespace.
func (p *pass) rewriteSchema() (identifier.Notation, error) {
	rootNS := elementNamespace(p.root)
	notation := p.w.cfg.notationFor(rootNS)
	if notation == identifier.NotationUnknown {
		p.report(CodeUnknownNotation, p.root, "no notation marker matches root namespace %q", rootNS)
	} else {
		loc := p.w.cfg.SchemaLocations[notation]
		if loc == "" {
			return notation, fmt.Errorf("%w: no schema location for notation %q", ErrConfig, notation)
		}
		p.root.CreateAttr("xmlns:xsi", XSINamespace)
		p.root.CreateAttr("xsi:schemaLocation", rootNS+" "+loc)
	}
	p.root.CreateAttr("xmlns:"+weave.AnnotationPrefix, weave.AnnotationNamespace)
	return notation, nil
}

// rewriteAttr rewrites the named attribute on el when it references the
// vendor base URI.
func (p *pass) rewriteAttr(el *etree.Element, key string) {
	a := el.SelectAttr(key)
	if a == nil {
		return
	}
	if v, ok := p.w.rewriter.Rewrite(a.Value); ok {
		a.Value = v
	}
}

// rewriteRootAttributes rewrites namespace-bearing attributes on the root
// and declares the canonical assets namespace.
func (p *pass) rewriteRootAttributes() {
	for i := range p.root.Attr {
		a := &p.root.Attr[i]
		if !namespaceBearing(*a) {
			continue
		}
		if v, ok := p.w.rewriter.Rewrite(a.Value); ok {
			a.Value = v
		}
	}
	p.root.CreateAttr("xmlns:"+weave.AssetsPrefix, p.w.cfg.CanonicalBaseURI)
}

func namespaceBearing(a etree.Attr) bool {
	switch {
	case isDeclaration(a):
		return true
	case a.Key == "namespace", a.Key == "targetNamespace":
		return true
	case strings.Contains(a.Key, "include"), strings.Contains(a.Key, "ns"):
		return true
	}
	return false
}

// rewriteReferences rewrites import namespaces and the href of input and
// requirement references.
func (p *pass) rewriteReferences() {
	for _, el := range walk(p.root) {
		switch {
		case el.Tag == "import":
			p.rewriteAttr(el, "namespace")
		case p.w.refElements[el.Tag]:
			p.rewriteAttr(el, "href")
		}
	}
}

// repairDefinitionTypes resets case file item definition types that still
// point at vendor content.
func (p *pass) repairDefinitionTypes() {
	if p.w.vendorDomain == "" {
		return
	}
	for _, el := range walk(p.root) {
		if el.Tag != "caseFileItemDefinition" {
			continue
		}
		a := el.SelectAttr("definitionType")
		if a == nil || !strings.Contains(a.Value, p.w.vendorDomain) {
			continue
		}
		p.report(CodeRepairedDefinitionType, el, "definitionType %q reset to %q", a.Value, p.w.unspecifiedDT)
		a.Value = p.w.unspecifiedDT
	}
}
