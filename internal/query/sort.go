package query

import (
	"strings"

	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/schema"
)

// SortField orders results by one catalog field.
type SortField struct {
	Field   string `json:"field"`
	Reverse bool   `json:"reverse,omitempty"`
}

// Sort is an ordered list of sort fields. The zero value keeps the engine
// document order.
type Sort []SortField

// By returns a sort on a single field.
func By(field string, reverse bool) Sort {
	return Sort{{Field: field, Reverse: reverse}}
}

// ThenBy returns a copy of s with a tie-breaking field appended.
func (s Sort) ThenBy(field string, reverse bool) Sort {
	out := append(Sort(nil), s...)
	return append(out, SortField{Field: field, Reverse: reverse})
}

// Comparator is how values of a sort field are compared.
type Comparator int

const (
	Lexicographic Comparator = iota
	Float
	Integer
)

func (c Comparator) String() string {
	switch c {
	case Lexicographic:
		return "lexicographic"
	case Float:
		return "float"
	case Integer:
		return "integer"
	}
	return "unknown"
}

// ComparatorFor maps a field type to its comparator.
func ComparatorFor(t schema.FieldType) Comparator {
	switch t {
	case schema.FieldNumber:
		return Float
	case schema.FieldInteger:
		return Integer
	}
	return Lexicographic
}

// ResolvedField is a sort field with its comparator.
type ResolvedField struct {
	SortField
	Comparator Comparator
}

// Resolve checks every sort field against the catalog.
func (s Sort) Resolve(c *schema.Catalog) ([]ResolvedField, error) {
	out := make([]ResolvedField, 0, len(s))
	for _, f := range s {
		t, ok := c.FieldType(f.Field)
		if !ok {
			return nil, dberrors.UnknownField(f.Field, c.FieldNames())
		}
		out = append(out, ResolvedField{SortField: f, Comparator: ComparatorFor(t)})
	}
	return out, nil
}

// String renders the sort in the form accepted by ParseSort.
func (s Sort) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		if f.Reverse {
			parts[i] = f.Field + ":desc"
		} else {
			parts[i] = f.Field
		}
	}
	return strings.Join(parts, ",")
}

// ParseSort parses a comma separated list of fields, each optionally
// suffixed with ":asc" or ":desc".
func ParseSort(text string) Sort {
	var s Sort
	for _, part := range splitFields(text) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := SortField{Field: part}
		switch {
		case strings.HasSuffix(part, ":desc"):
			f = SortField{Field: strings.TrimSuffix(part, ":desc"), Reverse: true}
		case strings.HasSuffix(part, ":asc"):
			f = SortField{Field: strings.TrimSuffix(part, ":asc")}
		}
		s = append(s, f)
	}
	return s
}

// splitFields splits on commas outside single or double quoted runs, so
// quoted map keys may contain commas.
func splitFields(text string) []string {
	var (
		parts []string
		quote byte
		start int
	)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '"' || c == '\'':
			if quote == 0 {
				quote = c
			} else if quote == c {
				quote = 0
			}
		case c == ',' && quote == 0:
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}
