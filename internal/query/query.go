// Package query defines the engine independent query and sort model. Field
// references are checked against the catalog when a query is evaluated.
package query

import (
	"github.com/sha1n/flea-db/internal/schema"
)

// Query is a search condition over catalog fields.
type Query interface {
	// Validate checks every field reference against the catalog.
	Validate(c *schema.Catalog) error
}

// MatchAll matches every document.
type MatchAll struct{}

func (MatchAll) Validate(*schema.Catalog) error { return nil }

// All returns a query matching every document.
func All() Query { return MatchAll{} }

// Term matches documents holding value in a STRING field.
type Term struct {
	Field string
	Value string
}

// NewTerm returns a term query.
func NewTerm(field, value string) *Term {
	return &Term{Field: field, Value: value}
}

func (q *Term) Validate(c *schema.Catalog) error {
	return c.Validate(q.Field, schema.FieldString)
}

// IntRange matches documents with an INTEGER field value in range. A nil
// bound leaves that end open.
type IntRange struct {
	Field        string
	Min, Max     *int64
	MinInclusive bool
	MaxInclusive bool
}

// NewIntRange returns an integer range query with both ends bounded.
func NewIntRange(field string, min, max int64, minInclusive, maxInclusive bool) *IntRange {
	return &IntRange{Field: field, Min: &min, Max: &max, MinInclusive: minInclusive, MaxInclusive: maxInclusive}
}

func (q *IntRange) Validate(c *schema.Catalog) error {
	return c.Validate(q.Field, schema.FieldInteger)
}

// NumRange matches documents with a NUMBER field value in range. A nil
// bound leaves that end open.
type NumRange struct {
	Field        string
	Min, Max     *float64
	MinInclusive bool
	MaxInclusive bool
}

// NewNumRange returns a floating point range query with both ends bounded.
func NewNumRange(field string, min, max float64, minInclusive, maxInclusive bool) *NumRange {
	return &NumRange{Field: field, Min: &min, Max: &max, MinInclusive: minInclusive, MaxInclusive: maxInclusive}
}

func (q *NumRange) Validate(c *schema.Catalog) error {
	return c.Validate(q.Field, schema.FieldNumber)
}

// Occur is the role of a boolean clause.
type Occur int

const (
	Must Occur = iota
	Should
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "must"
	case Should:
		return "should"
	case MustNot:
		return "mustNot"
	}
	return "unknown"
}

// Clause is one member of a boolean query.
type Clause struct {
	Occur Occur
	Query Query
}

// Boolean combines clauses. Documents must match every Must clause, no
// MustNot clause and, when there are no Must clauses, at least one Should
// clause. A boolean without clauses matches nothing.
type Boolean struct {
	Clauses []Clause
}

// NewBoolean returns an empty boolean query.
func NewBoolean() *Boolean {
	return &Boolean{}
}

// Must adds required clauses.
func (b *Boolean) Must(qs ...Query) *Boolean { return b.add(Must, qs) }

// Should adds optional clauses.
func (b *Boolean) Should(qs ...Query) *Boolean { return b.add(Should, qs) }

// MustNot adds excluding clauses.
func (b *Boolean) MustNot(qs ...Query) *Boolean { return b.add(MustNot, qs) }

func (b *Boolean) add(o Occur, qs []Query) *Boolean {
	for _, q := range qs {
		b.Clauses = append(b.Clauses, Clause{Occur: o, Query: q})
	}
	return b
}

func (b *Boolean) Validate(c *schema.Catalog) error {
	for _, cl := range b.Clauses {
		if err := cl.Query.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// And returns a query matching documents that match all of qs.
func And(qs ...Query) Query {
	return NewBoolean().Must(qs...)
}
