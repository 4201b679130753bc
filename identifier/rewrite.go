package identifier

import (
	"errors"
	"strings"
)

// Rewriter maps values under the vendor base URI into the canonical base URI.
// Only the trailing identifier segment survives, with leading underscores
// stripped from each fragment-separated part.
type Rewriter struct {
	vendorBase    string
	canonicalBase string
}

// NewRewriter creates a Rewriter. Both bases are required and the canonical
// base must not itself fall under the vendor base.
func NewRewriter(vendorBase, canonicalBase string) (*Rewriter, error) {
	if vendorBase == "" {
		return nil, errors.New("vendor base URI is required")
	}
	if canonicalBase == "" {
		return nil, errors.New("canonical base URI is required")
	}
	if strings.Contains(canonicalBase, vendorBase) {
		return nil, errors.New("canonical base URI must not contain the vendor base URI")
	}
	return &Rewriter{vendorBase: vendorBase, canonicalBase: canonicalBase}, nil
}

// VendorBase returns the vendor base URI.
func (r *Rewriter) VendorBase() string { return r.vendorBase }

// CanonicalBase returns the canonical base URI.
func (r *Rewriter) CanonicalBase() string { return r.canonicalBase }

// Matches reports whether the value references the vendor base URI.
func (r *Rewriter) Matches(value string) bool {
	return strings.Contains(value, r.vendorBase)
}

// Rewrite returns the canonical form of value and whether it changed.
func (r *Rewriter) Rewrite(value string) (string, bool) {
	idx := strings.Index(value, r.vendorBase)
	if idx < 0 {
		return value, false
	}
	rest := value[idx+len(r.vendorBase):]
	return r.canonicalBase + TrailingSegment(rest), true
}

// TrailingSegment returns the last path segment of s with leading
// underscores removed from every '#'-separated part.
//
//	TrailingSegment("models/_a1#_b2") == "a1#b2"
func TrailingSegment(s string) string {
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	parts := strings.Split(s, "#")
	for i, p := range parts {
		parts[i] = strings.TrimLeft(p, "_")
	}
	return strings.Join(parts, "#")
}

// Fragment returns the identifying fragment of a concept URI: the part after
// '#' when present, otherwise the last path segment, without leading underscores.
func Fragment(uri string) string {
	if idx := strings.LastIndex(uri, "#"); idx >= 0 {
		return strings.TrimLeft(uri[idx+1:], "_")
	}
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return strings.TrimLeft(uri[idx+1:], "_")
	}
	return strings.TrimLeft(uri, "_")
}
