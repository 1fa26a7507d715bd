// Package schema parses the JSON Schema subset used to declare indexed and
// faceted fields, and derives the field catalog from it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sha1n/flea-db/internal/dberrors"
)

// Type is a JSON Schema type name.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
)

// Intent is the value of the "index" keyword.
type Intent string

const (
	IntentNone  Intent = ""
	IntentIndex Intent = "index"
	IntentFacet Intent = "facet"
)

// Schema is a node of a JSON Schema document.
type Schema struct {
	Type       Type
	Properties map[string]*Schema
	// AdditionalProperties is set when additionalProperties is a schema.
	AdditionalProperties *Schema
	// AdditionalAllowed is set when additionalProperties is a boolean.
	AdditionalAllowed *bool
	Items             *Schema
	Index             Intent

	raw json.RawMessage
}

type rawSchema struct {
	Type                 json.RawMessage            `json:"type"`
	Properties           map[string]json.RawMessage `json:"properties"`
	AdditionalProperties json.RawMessage            `json:"additionalProperties"`
	Items                json.RawMessage            `json:"items"`
	Index                string                     `json:"index"`
}

// Parse parses a JSON Schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a JSON Schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", path, err)
	}
	return s, nil
}

// UnmarshalJSON decodes a schema node and keeps its raw bytes.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var r rawSchema
	if err := json.Unmarshal(data, &r); err != nil {
		return dberrors.Wrap(dberrors.KindSchema, err, "invalid schema")
	}

	out := Schema{raw: append(json.RawMessage(nil), data...)}

	t, err := parseType(r.Type)
	if err != nil {
		return err
	}
	out.Type = t

	switch Intent(r.Index) {
	case IntentNone, IntentIndex, IntentFacet:
		out.Index = Intent(r.Index)
	default:
		return dberrors.Schema("unsupported index intent %q, expected %q or %q", r.Index, IntentIndex, IntentFacet)
	}

	if r.Properties != nil {
		out.Properties = make(map[string]*Schema, len(r.Properties))
		for name, raw := range r.Properties {
			var child Schema
			if err := json.Unmarshal(raw, &child); err != nil {
				return err
			}
			out.Properties[name] = &child
		}
	}

	if ap := bytes.TrimSpace(r.AdditionalProperties); len(ap) > 0 {
		switch ap[0] {
		case 't', 'f':
			var b bool
			if err := json.Unmarshal(ap, &b); err != nil {
				return dberrors.Wrap(dberrors.KindSchema, err, "invalid additionalProperties")
			}
			out.AdditionalAllowed = &b
		default:
			var child Schema
			if err := json.Unmarshal(ap, &child); err != nil {
				return err
			}
			out.AdditionalProperties = &child
		}
	}

	// tuple form of items is not supported and is ignored
	if it := bytes.TrimSpace(r.Items); len(it) > 0 && it[0] == '{' {
		var child Schema
		if err := json.Unmarshal(it, &child); err != nil {
			return err
		}
		out.Items = &child
	}

	*s = out
	return nil
}

func parseType(raw json.RawMessage) (Type, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	if raw[0] == '[' {
		var names []Type
		if err := json.Unmarshal(raw, &names); err != nil {
			return "", dberrors.Wrap(dberrors.KindSchema, err, "invalid type")
		}
		for _, n := range names {
			if n != TypeNull {
				return n, nil
			}
		}
		return TypeNull, nil
	}
	var t Type
	if err := json.Unmarshal(raw, &t); err != nil {
		return "", dberrors.Wrap(dberrors.KindSchema, err, "invalid type")
	}
	return t, nil
}

// MarshalJSON returns the original document for parsed schemas.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	m := map[string]any{}
	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Properties != nil {
		m["properties"] = s.Properties
	}
	if s.AdditionalProperties != nil {
		m["additionalProperties"] = s.AdditionalProperties
	} else if s.AdditionalAllowed != nil {
		m["additionalProperties"] = *s.AdditionalAllowed
	}
	if s.Items != nil {
		m["items"] = s.Items
	}
	if s.Index != IntentNone {
		m["index"] = s.Index
	}
	return json.Marshal(m)
}

// Raw returns the JSON encoding of the schema.
func (s *Schema) Raw() []byte {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil
	}
	return b
}

// HasProperties reports whether the schema declares at least one property.
func (s *Schema) HasProperties() bool {
	return len(s.Properties) > 0
}

// PropertyNames returns the declared property names in sorted order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for n := range s.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both schemas have the same JSON content.
func Equal(a, b *Schema) bool {
	if a == nil || b == nil {
		return a == b
	}
	var x, y any
	if json.Unmarshal(a.Raw(), &x) != nil || json.Unmarshal(b.Raw(), &y) != nil {
		return false
	}
	xb, _ := json.Marshal(x)
	yb, _ := json.Marshal(y)
	return bytes.Equal(xb, yb)
}
