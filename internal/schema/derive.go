package schema

import (
	"strings"

	"github.com/sha1n/flea-db/internal/dberrors"
)

const root = "$"

type deriver struct {
	index  map[string]FieldType
	facets map[string]bool
}

// Derive builds the field catalog of a schema. Fields are named by the path
// expression that reaches them: properties are joined with ".", map values
// with "[*]" and array elements with "[#]".
func Derive(s *Schema) (*Catalog, error) {
	d := &deriver{
		index:  map[string]FieldType{},
		facets: map[string]bool{},
	}
	if err := d.visit(root, s); err != nil {
		return nil, err
	}
	d.registerMapPrefixes()
	return newCatalog(d.index, d.facets), nil
}

func (d *deriver) visit(name string, s *Schema) error {
	if s == nil {
		return nil
	}
	if s.Index != IntentNone {
		if err := d.register(name, s); err != nil {
			return err
		}
	}
	for _, p := range s.PropertyNames() {
		if err := d.visit(name+"."+p, s.Properties[p]); err != nil {
			return err
		}
	}
	if s.AdditionalProperties != nil {
		if err := d.visit(name+"[*]", s.AdditionalProperties); err != nil {
			return err
		}
	}
	if s.Items != nil {
		if err := d.visit(name+"[#]", s.Items); err != nil {
			return err
		}
	}
	return nil
}

func (d *deriver) register(name string, s *Schema) error {
	facet := s.Index == IntentFacet

	switch s.Type {
	case TypeObject:
		// only maps are registered, the key set is a multivalued string field
		value := s.AdditionalProperties
		if value == nil || value.Type == "" {
			return nil
		}
		d.add(name, FieldString, facet, true)
		if value.Type == TypeObject {
			return nil
		}
		t, err := scalarOf(name+"[*]", value)
		if err != nil {
			return err
		}
		d.add(name+"[*]", t, facet, true)
	case TypeArray:
		if s.Items == nil || s.Items.Type == "" {
			return nil
		}
		t, err := scalarOf(name+"[#]", s.Items)
		if err != nil {
			return err
		}
		d.add(name+"[#]", t, facet, true)
	default:
		t, err := scalarOf(name, s)
		if err != nil {
			return err
		}
		d.add(name, t, facet, containsWildcard(name))
	}
	return nil
}

func (d *deriver) add(name string, t FieldType, facet, multivalued bool) {
	d.index[name] = t
	if facet {
		d.facets[name] = multivalued
	}
}

// registerMapPrefixes makes every map on the path of a "[*]" field queryable
// by its key set. Array prefixes are not registered.
func (d *deriver) registerMapPrefixes() {
	var names []string
	for n := range d.index {
		if strings.Contains(n, "[*]") {
			names = append(names, n)
		}
	}
	for _, n := range names {
		parts := strings.Split(n, "[*]")
		prefix := parts[0]
		for i, p := range parts {
			if i > 0 {
				prefix += "[*]" + p
			}
			if _, ok := d.index[prefix]; !ok {
				d.index[prefix] = FieldString
			}
		}
	}
}

func scalarOf(name string, s *Schema) (FieldType, error) {
	switch s.Type {
	case TypeString, TypeBoolean, TypeObject:
		return FieldString, nil
	case TypeInteger:
		return FieldInteger, nil
	case TypeNumber:
		return FieldNumber, nil
	case TypeArray:
		if s.Items == nil || s.Items.Type == "" {
			return 0, dberrors.Schema("field %q is an array without an item type", name)
		}
		return scalarOf(name, s.Items)
	case "":
		return 0, dberrors.Schema("field %q has an index intent but no type", name)
	}
	return 0, dberrors.Schema("field %q has unsupported type %q", name, s.Type)
}
