package concept

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the on-disk YAML layout of a concept catalog.
type CatalogFile struct {
	// Namespace prefixes tags that have no explicit URI.
	Namespace string          `yaml:"namespace"`
	Schemes   []CatalogScheme `yaml:"schemes"`
}

// CatalogScheme groups the concepts of one vocabulary.
type CatalogScheme struct {
	Name     string       `yaml:"name"`
	Concepts []Descriptor `yaml:"concepts"`
}

// Catalog is an in-memory Resolver indexed by tag and URI.
type Catalog struct {
	index map[string]Descriptor
}

// NewCatalog builds a catalog from descriptors.
func NewCatalog(descriptors ...Descriptor) *Catalog {
	c := &Catalog{index: make(map[string]Descriptor, len(descriptors)*2)}
	for _, d := range descriptors {
		c.Add(d)
	}
	return c
}

// Add indexes a descriptor under its tag and URI.
func (c *Catalog) Add(d Descriptor) {
	if d.Tag != "" {
		c.index[NormalizeKey(d.Tag)] = d
	}
	if d.URI != "" {
		c.index[d.URI] = d
	}
}

// Len returns the number of index entries.
func (c *Catalog) Len() int {
	return len(c.index)
}

// Lookup implements Resolver.
func (c *Catalog) Lookup(_ context.Context, key string) (Descriptor, error) {
	if d, ok := c.index[key]; ok {
		return d, nil
	}
	if d, ok := c.index[NormalizeKey(key)]; ok {
		return d, nil
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse concept catalog: %w", err)
	}

	c := NewCatalog()
	for _, scheme := range file.Schemes {
		for _, d := range scheme.Concepts {
			if d.Tag == "" {
				return nil, fmt.Errorf("concept in scheme %q has no tag", scheme.Name)
			}
			d.Tag = NormalizeKey(d.Tag)
			if d.Scheme == "" {
				d.Scheme = scheme.Name
			}
			if d.URI == "" {
				d.URI = file.Namespace + d.Tag
			}
			c.Add(d)
		}
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept catalog: %w", err)
	}
	return ParseCatalog(data)
}
