// Package mapper turns JSON documents into the index and facet terms of a
// catalog.
package mapper

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/expression"
	"github.com/sha1n/flea-db/internal/jsonnode"
	"github.com/sha1n/flea-db/internal/schema"
)

// DefaultCacheSize is the number of compiled expressions kept by a Mapper.
const DefaultCacheSize = 256

// TermKind is the kind of a searchable term.
type TermKind int

const (
	StringTerm TermKind = iota
	IntTerm
	FloatTerm
)

// Term is a searchable value of an index field.
type Term struct {
	Field string
	Kind  TermKind
	Str   string
	Int   int64
	Float float64
}

// FacetTerm is a categorical value of a facet field.
type FacetTerm struct {
	Facet       string
	Value       string
	Multivalued bool
}

// Terms holds everything extracted from one document.
type Terms struct {
	Index  []Term
	Facets []FacetTerm
}

// Mapper extracts terms for the fields of a catalog. It is safe for
// concurrent use.
type Mapper struct {
	catalog *schema.Catalog
	cache   *lru.Cache[string, *expression.Expression]
}

// New creates a mapper for the catalog.
func New(c *schema.Catalog, cacheSize int) (*Mapper, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *expression.Expression](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression cache: %w", err)
	}
	return &Mapper{catalog: c, cache: cache}, nil
}

// Catalog returns the catalog the mapper was built for.
func (m *Mapper) Catalog() *schema.Catalog {
	return m.catalog
}

// Expression returns the compiled expression for a field name.
func (m *Mapper) Expression(field string) (*expression.Expression, error) {
	if e, ok := m.cache.Get(field); ok {
		return e, nil
	}
	e, err := expression.Compile(field)
	if err != nil {
		return nil, err
	}
	m.cache.Add(field, e)
	return e, nil
}

// Map extracts the terms of doc. Fields absent from the document produce no
// terms.
func (m *Mapper) Map(doc *jsonnode.Node) (*Terms, error) {
	terms := &Terms{}

	for _, f := range m.catalog.Fields() {
		v, err := m.project(f.Name, doc)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		err = expand(v, func(leaf *jsonnode.Node, key string, isKey bool) error {
			t, err := indexTerm(f, leaf, key, isKey)
			if err != nil {
				return err
			}
			terms.Index = append(terms.Index, t)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, f := range m.catalog.Facets() {
		v, err := m.project(f.Name, doc)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		err = expand(v, func(leaf *jsonnode.Node, key string, isKey bool) error {
			value, err := facetValue(f.Name, leaf, key, isKey)
			if err != nil {
				return err
			}
			terms.Facets = append(terms.Facets, FacetTerm{Facet: f.Name, Value: value, Multivalued: f.Multivalued})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return terms, nil
}

func (m *Mapper) project(field string, doc *jsonnode.Node) (*jsonnode.Node, error) {
	e, err := m.Expression(field)
	if err != nil {
		return nil, err
	}
	v, err := e.Project(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to project %s: %w", field, err)
	}
	return v, nil
}

// expand calls fn for every scalar of v. Arrays are flattened, objects
// contribute their keys and nulls are skipped.
func expand(v *jsonnode.Node, fn func(leaf *jsonnode.Node, key string, isKey bool) error) error {
	switch v.Kind() {
	case jsonnode.Null:
		return nil
	case jsonnode.Array:
		for _, el := range v.Elems() {
			if err := expand(el, fn); err != nil {
				return err
			}
		}
		return nil
	case jsonnode.Object:
		for _, k := range v.Keys() {
			if err := fn(nil, k, true); err != nil {
				return err
			}
		}
		return nil
	}
	return fn(v, "", false)
}

func indexTerm(f schema.IndexField, leaf *jsonnode.Node, key string, isKey bool) (Term, error) {
	if isKey {
		if f.Type != schema.FieldString {
			return Term{}, dberrors.TypeMismatch(f.Name, f.Type, schema.FieldString)
		}
		return Term{Field: f.Name, Kind: StringTerm, Str: key}, nil
	}

	switch f.Type {
	case schema.FieldString:
		switch leaf.Kind() {
		case jsonnode.String, jsonnode.Boolean:
			return Term{Field: f.Name, Kind: StringTerm, Str: leaf.Text()}, nil
		}
	case schema.FieldInteger:
		switch leaf.Kind() {
		case jsonnode.Integer:
			i, err := leaf.Int64()
			if err != nil {
				return Term{}, err
			}
			return Term{Field: f.Name, Kind: IntTerm, Int: i}, nil
		case jsonnode.Number:
			// 1.0 and 1e2 are integers to JSON Schema
			if i, ok := integral(leaf); ok {
				return Term{Field: f.Name, Kind: IntTerm, Int: i}, nil
			}
		}
	case schema.FieldNumber:
		switch leaf.Kind() {
		case jsonnode.Integer, jsonnode.Number:
			x, err := leaf.Float64()
			if err != nil {
				return Term{}, err
			}
			return Term{Field: f.Name, Kind: FloatTerm, Float: x}, nil
		}
	}
	return Term{}, dberrors.TypeMismatch(f.Name, f.Type, leaf.Kind())
}

// integral converts a Number literal that holds a whole value in int64 range.
func integral(leaf *jsonnode.Node) (int64, bool) {
	x, err := leaf.Float64()
	if err != nil || x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
		return 0, false
	}
	return int64(x), true
}

func facetValue(name string, leaf *jsonnode.Node, key string, isKey bool) (string, error) {
	if isKey {
		return key, nil
	}
	switch leaf.Kind() {
	case jsonnode.String, jsonnode.Boolean:
		return leaf.Text(), nil
	}
	return "", &dberrors.Error{
		Kind:    dberrors.KindTypeMismatch,
		Field:   name,
		Message: fmt.Sprintf("facet %q only accepts strings, booleans and object keys, got %s", name, leaf.Kind()),
	}
}
