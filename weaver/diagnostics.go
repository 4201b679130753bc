package weaver

// Code classifies a per-element diagnostic.
type Code string

// Diagnostic codes.
const (
	CodeUnknownNotation        Code = "unknown_notation"
	CodeUnresolvedConcept      Code = "unresolved_concept"
	CodeUnclassifiedConcept    Code = "unclassified_concept"
	CodePrunedElement          Code = "pruned_element"
	CodePrunedAttribute        Code = "pruned_attribute"
	CodeMalformedMetadata      Code = "malformed_metadata"
	CodeVendorElement          Code = "vendor_element"
	CodeVendorAttribute        Code = "vendor_attribute"
	CodeRepairedDefinitionType Code = "repaired_definition_type"
)

// Diagnostic reports an element that was dropped or repaired. Diagnostics
// never fail a document.
type Diagnostic struct {
	Code    Code   `json:"code"`
	Element string `json:"element"`
	Message string `json:"message"`
}
