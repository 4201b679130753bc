// Package export serializes woven assets and artifacts to RDF with
// BFO/CCO/PROV-O alignment.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semweave/graph"
	"github.com/c360studio/semweave/vocabulary/weave"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

const entityIDPrefix = "semweave."

// Entity is an exportable entity with its type and triples.
type Entity struct {
	ID         string
	EntityType weave.EntityType
	Triples    []message.Triple
}

// RDFExporter exports entities to RDF with configurable ontology profiles.
type RDFExporter struct {
	profile  Profile
	entities []Entity
	index    map[string]int
	prefixes map[string]string
}

// NewRDFExporter creates a new RDF exporter with the specified profile.
func NewRDFExporter(profile Profile) *RDFExporter {
	return &RDFExporter{
		profile:  profile,
		index:    make(map[string]int),
		prefixes: defaultPrefixes(),
	}
}

func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":   "http://www.w3.org/2000/01/rdf-schema#",
		"xsd":    "http://www.w3.org/2001/XMLSchema#",
		"dc":     "http://purl.org/dc/terms/",
		"skos":   "http://www.w3.org/2004/02/skos/core#",
		"prov":   "http://www.w3.org/ns/prov#",
		"bfo":    "http://purl.obolibrary.org/obo/",
		"cco":    "http://www.ontologyrepository.com/CommonCoreOntologies/",
		"weave":  weave.Namespace,
		"entity": weave.EntityNamespace,
		"assets": weave.AssetsNamespace,
	}
}

// SetPrefix binds a namespace prefix, replacing any earlier binding.
func (e *RDFExporter) SetPrefix(prefix, iri string) {
	e.prefixes[prefix] = iri
}

// AddEntity adds an entity to be exported. Entities sharing an ID are merged.
func (e *RDFExporter) AddEntity(entity Entity) {
	if i, ok := e.index[entity.ID]; ok {
		e.entities[i].Triples = append(e.entities[i].Triples, entity.Triples...)
		if e.entities[i].EntityType == "" {
			e.entities[i].EntityType = entity.EntityType
		}
		return
	}
	e.index[entity.ID] = len(e.entities)
	e.entities = append(e.entities, entity)
}

// AddPayloads adds graph entity payloads, inferring each entity type from
// its ID.
func (e *RDFExporter) AddPayloads(payloads ...*graph.EntityPayload) {
	for _, p := range payloads {
		e.AddEntity(Entity{
			ID:         p.EntityID(),
			EntityType: InferEntityType(p.EntityID()),
			Triples:    p.Triples(),
		})
	}
}

// AddWoven adds the asset and artifact entities of a woven artifact together
// with a concept node for every annotation that carries a label or scheme.
func (e *RDFExporter) AddWoven(w graph.Woven, now time.Time) {
	e.AddPayloads(graph.BuildEntities(w, now)...)

	for _, a := range w.Annotations {
		ref := graph.ConceptRef(a)
		if ref == "" || (a.Ref.Label == "" && a.Ref.Scheme == "") {
			continue
		}
		var triples []message.Triple
		if a.Ref.Label != "" {
			triples = append(triples, message.Triple{Subject: ref, Predicate: weave.ConceptLabel, Object: a.Ref.Label})
		}
		if a.Ref.Scheme != "" {
			triples = append(triples, message.Triple{Subject: ref, Predicate: weave.ConceptScheme, Object: a.Ref.Scheme})
		}
		e.AddEntity(Entity{ID: ref, EntityType: weave.EntityTypeConcept, Triples: triples})
	}
}

// Len returns the number of entities queued for export.
func (e *RDFExporter) Len() int {
	return len(e.entities)
}

// Export serializes all entities to the specified format.
func (e *RDFExporter) Export(format Format) (string, error) {
	var sb strings.Builder
	if err := e.Write(&sb, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write serializes all entities to w in the specified format.
func (e *RDFExporter) Write(w io.Writer, format Format) error {
	var out string
	switch format {
	case FormatTurtle:
		out = e.toTurtle()
	case FormatNTriples:
		out = e.toNTriples()
	case FormatJSONLD:
		out = e.toJSONLD()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

func (e *RDFExporter) toTurtle() string {
	tw := NewTurtleWriter()
	for prefix, iri := range e.prefixes {
		tw.SetPrefix(prefix, iri)
	}
	tw.WritePrefixes()

	for _, entity := range e.entities {
		types := weave.GetTypesForEntity(entity.EntityType, string(e.profile))
		if len(types) == 0 && len(entity.Triples) == 0 {
			continue
		}
		tw.WriteSubject(entityIDToIRI(entity.ID))
		for i, typeIRI := range types {
			tw.WriteType(typeIRI, i == len(types)-1 && len(entity.Triples) == 0)
		}
		for i, t := range entity.Triples {
			tw.WritePredicate(weave.GetPredicateIRI(t.Predicate), t.Object, i == len(entity.Triples)-1)
		}
		tw.WriteBlank()
	}
	return tw.String()
}

func (e *RDFExporter) toNTriples() string {
	nw := NewNTriplesWriter()
	for _, entity := range e.entities {
		iri := entityIDToIRI(entity.ID)
		for _, typeIRI := range weave.GetTypesForEntity(entity.EntityType, string(e.profile)) {
			nw.WriteTypeTriple(iri, typeIRI)
		}
		for _, t := range entity.Triples {
			nw.WriteTriple(iri, weave.GetPredicateIRI(t.Predicate), t.Object)
		}
	}
	return nw.String()
}

func (e *RDFExporter) toJSONLD() string {
	jw := NewJSONLDWriter()
	jw.SetContext(e.prefixes)
	for _, entity := range e.entities {
		props := make(map[string]any, len(entity.Triples))
		for _, t := range entity.Triples {
			key := weave.GetPredicateIRI(t.Predicate)
			value := formatObjectJSONLD(t.Object)
			switch existing := props[key].(type) {
			case nil:
				props[key] = value
			case []any:
				props[key] = append(existing, value)
			default:
				props[key] = []any{existing, value}
			}
		}
		jw.AddNode(entityIDToIRI(entity.ID), weave.GetTypesForEntity(entity.EntityType, string(e.profile)), props)
	}
	return jw.String()
}

// entityIDToIRI converts a dotted entity ID to an IRI. IRIs pass through.
// Example: "semweave.local.weave.asset.asset.<tag>"
//
//	-> "https://semweave.dev/entity/asset/<tag>"
func entityIDToIRI(entityID string) string {
	if isIRI(entityID) {
		return entityID
	}
	parts := strings.Split(entityID, ".")
	if len(parts) < 6 || !strings.HasPrefix(entityID, entityIDPrefix) {
		return weave.EntityNamespace + entityID
	}
	// org(0) platform(1) domain(2) system(3) type(4) instance(5+)
	return fmt.Sprintf("%s%s/%s", weave.EntityNamespace, parts[4], strings.Join(parts[5:], "."))
}

func isIRI(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "urn:")
}

func isEntityRef(s string) bool {
	return strings.HasPrefix(s, entityIDPrefix) && !strings.ContainsAny(s, " \t\n") && len(strings.Split(s, ".")) >= 6
}

func formatObject(obj any) string {
	switch v := obj.(type) {
	case string:
		if isIRI(v) || isEntityRef(v) {
			return fmt.Sprintf("<%s>", entityIDToIRI(v))
		}
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return fmt.Sprintf("\"%s\"^^xsd:dateTime", v)
		}
		return fmt.Sprintf("\"%s\"", escapeString(v))
	case int, int32, int64:
		return fmt.Sprintf("\"%d\"^^xsd:integer", v)
	case float32, float64:
		return fmt.Sprintf("\"%g\"^^xsd:decimal", v)
	case bool:
		return fmt.Sprintf("\"%t\"^^xsd:boolean", v)
	default:
		return fmt.Sprintf("\"%s\"", escapeString(fmt.Sprint(v)))
	}
}

func formatObjectNTriples(obj any) string {
	const xsd = "http://www.w3.org/2001/XMLSchema#"
	switch v := obj.(type) {
	case string:
		if isIRI(v) || isEntityRef(v) {
			return fmt.Sprintf("<%s>", entityIDToIRI(v))
		}
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return fmt.Sprintf("\"%s\"^^<%sdateTime>", v, xsd)
		}
		return fmt.Sprintf("\"%s\"", escapeString(v))
	case int, int32, int64:
		return fmt.Sprintf("\"%d\"^^<%sinteger>", v, xsd)
	case float32, float64:
		return fmt.Sprintf("\"%g\"^^<%sdecimal>", v, xsd)
	case bool:
		return fmt.Sprintf("\"%t\"^^<%sboolean>", v, xsd)
	default:
		return fmt.Sprintf("\"%s\"", escapeString(fmt.Sprint(v)))
	}
}

func formatObjectJSONLD(obj any) any {
	switch v := obj.(type) {
	case string:
		if isIRI(v) || isEntityRef(v) {
			return map[string]string{"@id": entityIDToIRI(v)}
		}
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return map[string]string{"@value": v, "@type": "xsd:dateTime"}
		}
		return v
	case int, int32, int64, float32, float64, bool:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func escapeString(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
		"\r", "\\r",
		"\t", "\\t",
	)
	return r.Replace(s)
}
