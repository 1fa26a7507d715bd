package schema

import (
	"sort"
	"strings"

	"github.com/sha1n/flea-db/internal/dberrors"
)

// FieldType is the scalar type of an index field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInteger
	FieldNumber
	// FieldBoolean is never stored in a catalog, booleans are indexed as strings.
	FieldBoolean
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "STRING"
	case FieldInteger:
		return "INTEGER"
	case FieldNumber:
		return "NUMBER"
	case FieldBoolean:
		return "BOOLEAN"
	}
	return "UNKNOWN"
}

// IndexField is a catalog entry.
type IndexField struct {
	Name string    `json:"name"`
	Type FieldType `json:"-"`
}

// FacetField is a facet catalog entry.
type FacetField struct {
	Name        string `json:"name"`
	Multivalued bool   `json:"multivalued"`
}

// Catalog holds the index and facet fields derived from a schema.
// It is immutable and safe for concurrent use.
type Catalog struct {
	index      map[string]FieldType
	facets     map[string]bool
	names      []string
	facetNames []string
}

func newCatalog(index map[string]FieldType, facets map[string]bool) *Catalog {
	c := &Catalog{index: index, facets: facets}
	for n := range index {
		c.names = append(c.names, n)
	}
	for n := range facets {
		c.facetNames = append(c.facetNames, n)
	}
	sort.Strings(c.names)
	sort.Strings(c.facetNames)
	return c
}

// Fields returns all index fields sorted by name.
func (c *Catalog) Fields() []IndexField {
	out := make([]IndexField, len(c.names))
	for i, n := range c.names {
		out[i] = IndexField{Name: n, Type: c.index[n]}
	}
	return out
}

// FieldNames returns the index field names in sorted order.
func (c *Catalog) FieldNames() []string {
	return append([]string(nil), c.names...)
}

// Facets returns all facet fields sorted by name.
func (c *Catalog) Facets() []FacetField {
	out := make([]FacetField, len(c.facetNames))
	for i, n := range c.facetNames {
		out[i] = FacetField{Name: n, Multivalued: c.facets[n]}
	}
	return out
}

// FacetNames returns the facet names in sorted order.
func (c *Catalog) FacetNames() []string {
	return append([]string(nil), c.facetNames...)
}

// FieldType returns the declared type of an index field.
func (c *Catalog) FieldType(name string) (FieldType, bool) {
	t, ok := c.index[name]
	return t, ok
}

// Facet reports whether name is a facet and whether it is multivalued.
func (c *Catalog) Facet(name string) (multivalued, ok bool) {
	multivalued, ok = c.facets[name]
	return multivalued, ok
}

// Validate checks that field is declared with type t.
func (c *Catalog) Validate(field string, t FieldType) error {
	declared, ok := c.index[field]
	if !ok {
		return dberrors.UnknownField(field, c.FieldNames())
	}
	if declared != t {
		return dberrors.TypeMismatch(field, declared, t)
	}
	return nil
}

// ValidateFacet checks that name is a declared facet.
func (c *Catalog) ValidateFacet(name string) error {
	if _, ok := c.facets[name]; !ok {
		return dberrors.UnknownField(name, c.FacetNames())
	}
	return nil
}

func containsWildcard(name string) bool {
	return strings.Contains(name, "[*]") || strings.Contains(name, "[#]")
}
