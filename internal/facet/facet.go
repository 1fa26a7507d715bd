// Package facet builds facet requests and shapes facet counts into
// responses.
package facet

import (
	"sort"
	"strings"

	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/schema"
)

// Request is an ordered set of facet names, each with the maximum number of
// values to return.
type Request struct {
	names []string
	max   map[string]int
}

// NewRequest returns a request for a single facet.
func NewRequest(name string, max int) (*Request, error) {
	r := &Request{max: map[string]int{}}
	return r.And(name, max)
}

// RequestFromMap builds a request from a name to max map, in name order.
func RequestFromMap(m map[string]int) (*Request, error) {
	if len(m) == 0 {
		return nil, dberrors.New(dberrors.KindInvalidMultiplicity, "facet request is empty")
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)

	r := &Request{max: map[string]int{}}
	for _, n := range names {
		if _, err := r.And(n, m[n]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// And adds a facet to the request.
func (r *Request) And(name string, max int) (*Request, error) {
	if _, dup := r.max[name]; dup {
		return nil, &dberrors.Error{Kind: dberrors.KindDuplicateFacet, Field: name, Message: "facet requested more than once"}
	}
	if max < 1 {
		return nil, &dberrors.Error{Kind: dberrors.KindInvalidMultiplicity, Field: name, Message: "max facet values must be at least 1"}
	}
	r.names = append(r.names, name)
	r.max[name] = max
	return r, nil
}

// Names returns the requested facets in request order.
func (r *Request) Names() []string {
	return append([]string(nil), r.names...)
}

// Max returns the maximum number of values requested for a facet.
func (r *Request) Max(name string) int {
	return r.max[name]
}

// Validate checks that every requested facet is declared.
func (r *Request) Validate(c *schema.Catalog) error {
	for _, n := range r.names {
		if err := c.ValidateFacet(n); err != nil {
			return err
		}
	}
	return nil
}

// Value is a facet value with the number of matching documents holding it.
type Value struct {
	Value        string `json:"value"`
	Multiplicity int    `json:"multiplicity"`
}

// Response holds the top values of one facet.
type Response struct {
	Name string `json:"name"`
	// NumValues is the number of distinct values before truncation.
	NumValues int     `json:"numValues"`
	Values    []Value `json:"values"`
}

// Shape orders values by descending multiplicity and keeps the first max.
// Values with equal multiplicity keep their input order.
func Shape(name string, values []Value, max int) Response {
	sorted := append([]Value(nil), values...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Multiplicity > sorted[j].Multiplicity
	})
	if max >= 0 && len(sorted) > max {
		sorted = sorted[:max]
	}
	return Response{Name: name, NumValues: len(values), Values: sorted}
}

// WithPrefix returns the values starting with prefix.
func WithPrefix(values []Value, prefix string) []Value {
	var out []Value
	for _, v := range values {
		if strings.HasPrefix(v.Value, prefix) {
			out = append(out, v)
		}
	}
	return out
}

// PinExact moves the exact value to the front of the response when its
// multiplicity is positive, keeping at most max values.
func PinExact(resp Response, exact string, multiplicity, max int) Response {
	if multiplicity <= 0 {
		return resp
	}
	values := make([]Value, 0, len(resp.Values)+1)
	values = append(values, Value{Value: exact, Multiplicity: multiplicity})
	for _, v := range resp.Values {
		if v.Value != exact {
			values = append(values, v)
		}
	}
	if max >= 0 && len(values) > max {
		values = values[:max]
	}
	resp.Values = values
	return resp
}
