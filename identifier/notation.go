package identifier

import "strings"

// Notation is the modeling notation of an artifact.
type Notation string

// Notation values.
const (
	NotationUnknown  Notation = ""
	NotationDecision Notation = "decision"
	NotationCase     Notation = "case"
	NotationProcess  Notation = "process"
	NotationLexicon  Notation = "lexicon"
)

// NotationFromMimeType maps a vendor mimetype to its notation.
func NotationFromMimeType(mimeType string) Notation {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "cmmn"):
		return NotationCase
	case strings.Contains(m, "bpmn"):
		return NotationProcess
	case strings.Contains(m, "dmn"):
		return NotationDecision
	case strings.Contains(m, "skos"), strings.Contains(m, "owl"), strings.Contains(m, "lexicon"):
		return NotationLexicon
	default:
		return NotationUnknown
	}
}
