package query

import (
	"encoding/json"
	"fmt"

	"github.com/sha1n/flea-db/internal/dberrors"
)

// Spec is the JSON form of a query. Exactly one member is set.
//
//	{"all": true}
//	{"term": {"field": "$.id", "value": "0"}}
//	{"intRange": {"field": "$.age", "min": 1, "max": 19}}
//	{"numRange": {"field": "$.score", "min": 0.5, "maxInclusive": false}}
//	{"bool": {"must": [...], "should": [...], "mustNot": [...]}}
type Spec struct {
	All      bool          `json:"all,omitempty"`
	Term     *TermSpec     `json:"term,omitempty"`
	IntRange *IntRangeSpec `json:"intRange,omitempty"`
	NumRange *NumRangeSpec `json:"numRange,omitempty"`
	Bool     *BoolSpec     `json:"bool,omitempty"`
}

type TermSpec struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// IntRangeSpec bounds are inclusive unless stated otherwise.
type IntRangeSpec struct {
	Field        string `json:"field"`
	Min          *int64 `json:"min,omitempty"`
	Max          *int64 `json:"max,omitempty"`
	MinInclusive *bool  `json:"minInclusive,omitempty"`
	MaxInclusive *bool  `json:"maxInclusive,omitempty"`
}

// NumRangeSpec bounds are inclusive unless stated otherwise.
type NumRangeSpec struct {
	Field        string   `json:"field"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	MinInclusive *bool    `json:"minInclusive,omitempty"`
	MaxInclusive *bool    `json:"maxInclusive,omitempty"`
}

type BoolSpec struct {
	Must    []Spec `json:"must,omitempty"`
	Should  []Spec `json:"should,omitempty"`
	MustNot []Spec `json:"mustNot,omitempty"`
}

// Parse decodes a JSON query. Empty input yields MatchAll.
func Parse(data []byte) (Query, error) {
	if len(data) == 0 {
		return All(), nil
	}
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, dberrors.Wrap(dberrors.KindSyntax, err, "malformed query")
	}
	return s.Build()
}

// Build converts the spec into a query.
func (s Spec) Build() (Query, error) {
	set := 0
	for _, ok := range []bool{s.All, s.Term != nil, s.IntRange != nil, s.NumRange != nil, s.Bool != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, dberrors.New(dberrors.KindSyntax, "query must have exactly one of all, term, intRange, numRange or bool, got %d", set)
	}

	switch {
	case s.All:
		return All(), nil
	case s.Term != nil:
		return NewTerm(s.Term.Field, s.Term.Value), nil
	case s.IntRange != nil:
		r := s.IntRange
		return &IntRange{Field: r.Field, Min: r.Min, Max: r.Max, MinInclusive: orTrue(r.MinInclusive), MaxInclusive: orTrue(r.MaxInclusive)}, nil
	case s.NumRange != nil:
		r := s.NumRange
		return &NumRange{Field: r.Field, Min: r.Min, Max: r.Max, MinInclusive: orTrue(r.MinInclusive), MaxInclusive: orTrue(r.MaxInclusive)}, nil
	}

	b := NewBoolean()
	for _, group := range []struct {
		occur Occur
		specs []Spec
	}{{Must, s.Bool.Must}, {Should, s.Bool.Should}, {MustNot, s.Bool.MustNot}} {
		for _, child := range group.specs {
			q, err := child.Build()
			if err != nil {
				return nil, err
			}
			b.add(group.occur, []Query{q})
		}
	}
	return b, nil
}

// ToSpec converts a query into its JSON form.
func ToSpec(q Query) (Spec, error) {
	switch v := q.(type) {
	case MatchAll, *MatchAll:
		return Spec{All: true}, nil
	case *Term:
		return Spec{Term: &TermSpec{Field: v.Field, Value: v.Value}}, nil
	case *IntRange:
		return Spec{IntRange: &IntRangeSpec{Field: v.Field, Min: v.Min, Max: v.Max, MinInclusive: &v.MinInclusive, MaxInclusive: &v.MaxInclusive}}, nil
	case *NumRange:
		return Spec{NumRange: &NumRangeSpec{Field: v.Field, Min: v.Min, Max: v.Max, MinInclusive: &v.MinInclusive, MaxInclusive: &v.MaxInclusive}}, nil
	case *Boolean:
		bs := &BoolSpec{}
		for _, cl := range v.Clauses {
			child, err := ToSpec(cl.Query)
			if err != nil {
				return Spec{}, err
			}
			switch cl.Occur {
			case Must:
				bs.Must = append(bs.Must, child)
			case Should:
				bs.Should = append(bs.Should, child)
			case MustNot:
				bs.MustNot = append(bs.MustNot, child)
			}
		}
		return Spec{Bool: bs}, nil
	}
	return Spec{}, fmt.Errorf("unsupported query type %T", q)
}

// Encode returns the JSON form of a query.
func Encode(q Query) ([]byte, error) {
	s, err := ToSpec(q)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

func orTrue(b *bool) bool {
	return b == nil || *b
}
