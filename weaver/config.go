package weaver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/semweave/annotation"
	"github.com/c360studio/semweave/identifier"
	"github.com/c360studio/semweave/vocabulary/weave"
)

// ErrConfig marks configuration errors. They are fatal and never retried.
var ErrConfig = errors.New("weaver configuration error")

// UnspecifiedDefinitionType replaces invalid case file item definition types.
const UnspecifiedDefinitionType = "http://www.omg.org/spec/CMMN/DefinitionType/Unspecified"

// Config configures a Weaver.
type Config struct {
	// VendorNamespaces are the proprietary XML namespaces to remove.
	VendorNamespaces []string `yaml:"vendor_namespaces" json:"vendor_namespaces"`
	// VendorBaseURI is the prefix of vendor-minted identifiers.
	VendorBaseURI string `yaml:"vendor_base_uri" json:"vendor_base_uri"`
	// VendorDomain identifies vendor content inside definition types.
	VendorDomain string `yaml:"vendor_domain" json:"vendor_domain"`
	// CanonicalBaseURI replaces VendorBaseURI.
	CanonicalBaseURI string `yaml:"canonical_base_uri" json:"canonical_base_uri"`
	// NotationMarkers maps root-namespace substrings to notations.
	NotationMarkers map[string]identifier.Notation `yaml:"notation_markers" json:"notation_markers"`
	// SchemaLocations maps notations to validation schema locations.
	SchemaLocations map[identifier.Notation]string `yaml:"schema_locations" json:"schema_locations"`
	// PruneNames are vendor element or attribute local names that never survive.
	PruneNames []string `yaml:"prune_names" json:"prune_names"`
	// ReferenceElements are local names of elements whose href is rewritten.
	ReferenceElements []string `yaml:"reference_elements" json:"reference_elements"`
	// UnspecifiedDefinitionType replaces vendor case file item definition types.
	UnspecifiedDefinitionType string `yaml:"unspecified_definition_type" json:"unspecified_definition_type"`
	// Classifier configures the default relationship classifier.
	Classifier annotation.ClassifierConfig `yaml:"classifier" json:"classifier"`
}

// DefaultConfig returns a configuration with canonical defaults. Vendor
// settings and schema locations must still be supplied.
func DefaultConfig() Config {
	return Config{
		CanonicalBaseURI: weave.AssetsNamespace,
		NotationMarkers: map[string]identifier.Notation{
			"dmn":  identifier.NotationDecision,
			"cmmn": identifier.NotationCase,
			"bpmn": identifier.NotationProcess,
		},
		SchemaLocations: map[identifier.Notation]string{},
		PruneNames: []string{
			"dynamicDecisionService",
			"attachment",
			"itemAttachment",
			"relationship",
			"interrelationship",
		},
		ReferenceElements: []string{
			"inputData",
			"requiredInput",
			"requiredKnowledge",
			"encapsulatedDecision",
			"inputDecision",
			"requiredDecision",
		},
		UnspecifiedDefinitionType: UnspecifiedDefinitionType,
		Classifier:                annotation.DefaultClassifierConfig(),
	}
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if len(c.VendorNamespaces) == 0 {
		return fmt.Errorf("%w: vendor_namespaces is required", ErrConfig)
	}
	for _, ns := range c.VendorNamespaces {
		if ns == "" {
			return fmt.Errorf("%w: empty vendor namespace", ErrConfig)
		}
	}
	if c.VendorBaseURI == "" {
		return fmt.Errorf("%w: vendor_base_uri is required", ErrConfig)
	}
	if c.CanonicalBaseURI == "" {
		return fmt.Errorf("%w: canonical_base_uri is required", ErrConfig)
	}
	if len(c.NotationMarkers) == 0 {
		return fmt.Errorf("%w: notation_markers is required", ErrConfig)
	}
	for marker, notation := range c.NotationMarkers {
		if c.SchemaLocations[notation] == "" {
			return fmt.Errorf("%w: no schema location for notation %q (marker %q)", ErrConfig, notation, marker)
		}
	}
	return nil
}

// markers returns notation markers in a deterministic order, longest first.
func (c *Config) markers() []string {
	keys := make([]string, 0, len(c.NotationMarkers))
	for k := range c.NotationMarkers {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// notationFor returns the notation whose marker appears in the namespace.
func (c *Config) notationFor(namespace string) identifier.Notation {
	ns := strings.ToLower(namespace)
	for _, marker := range c.markers() {
		if strings.Contains(ns, marker) {
			for k, v := range c.NotationMarkers {
				if strings.ToLower(k) == marker {
					return v
				}
			}
		}
	}
	return identifier.NotationUnknown
}
