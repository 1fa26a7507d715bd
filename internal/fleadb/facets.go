package fleadb

import (
	"context"
	"time"

	"github.com/sha1n/flea-db/internal/facet"
	"github.com/sha1n/flea-db/internal/query"
)

// FacetValues returns the top max values of every declared facet among the
// documents matching q. It returns nil when the schema declares no facets.
func (db *DB) FacetValues(ctx context.Context, q query.Query, max int) ([]facet.Response, error) {
	names := db.catalog.FacetNames()
	if len(names) == 0 {
		return nil, db.readCheck(ctx)
	}
	var (
		req *facet.Request
		err error
	)
	for _, n := range names {
		if req == nil {
			req, err = facet.NewRequest(n, max)
		} else {
			req, err = req.And(n, max)
		}
		if err != nil {
			return nil, err
		}
	}
	return db.FacetValuesFor(ctx, q, req)
}

// FacetValuesFor returns the requested facets, in request order.
func (db *DB) FacetValuesFor(ctx context.Context, q query.Query, req *facet.Request) (out []facet.Response, err error) {
	defer db.observe("facets", time.Now(), &err)

	if err := req.Validate(db.catalog); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	for _, name := range req.Names() {
		values, err := db.engine.TermCounts(ctx, q, name)
		if err != nil {
			return nil, err
		}
		out = append(out, facet.Shape(name, values, req.Max(name)))
	}
	return out, nil
}

// FacetValuesStartingWith returns the top max values of a facet that start
// with prefix. When prefix is itself a value it is listed first.
func (db *DB) FacetValuesStartingWith(ctx context.Context, facetName, prefix string, q query.Query, max int) (resp facet.Response, err error) {
	defer db.observe("facets", time.Now(), &err)

	req, err := facet.NewRequest(facetName, max)
	if err != nil {
		return facet.Response{}, err
	}
	if err := req.Validate(db.catalog); err != nil {
		return facet.Response{}, err
	}

	db.mu.RLock()
	values, err := db.termCounts(ctx, q, facetName)
	db.mu.RUnlock()
	if err != nil {
		return facet.Response{}, err
	}

	resp = facet.Shape(facetName, facet.WithPrefix(values, prefix), max)
	if prefix == "" {
		return resp, nil
	}

	exact, err := db.FacetValueMultiplicity(ctx, facetName, prefix, q)
	if err != nil {
		return facet.Response{}, err
	}
	return facet.PinExact(resp, prefix, exact, max), nil
}

// FacetValueMultiplicity returns the number of documents matching q that
// hold value in the facet.
func (db *DB) FacetValueMultiplicity(ctx context.Context, facetName, value string, q query.Query) (int, error) {
	if err := db.catalog.ValidateFacet(facetName); err != nil {
		return 0, err
	}
	if q == nil {
		q = query.All()
	}
	return db.count(ctx, query.And(q, query.NewTerm(facetName, value)))
}

// NumFacetValues returns the number of distinct values of a facet among
// the documents matching q.
func (db *DB) NumFacetValues(ctx context.Context, q query.Query, facetName string) (int, error) {
	req, err := facet.NewRequest(facetName, 1)
	if err != nil {
		return 0, err
	}
	resps, err := db.FacetValuesFor(ctx, q, req)
	if err != nil {
		return 0, err
	}
	return resps[0].NumValues, nil
}

// Count returns the number of committed documents matching q.
func (db *DB) Count(ctx context.Context, q query.Query) (int, error) {
	return db.count(ctx, q)
}

func (db *DB) count(ctx context.Context, q query.Query) (n int, err error) {
	defer db.observe("count", time.Now(), &err)

	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.checkOpen(); err != nil {
		return 0, err
	}
	return db.engine.Count(ctx, q)
}

// termCounts must be called with the read lock held.
func (db *DB) termCounts(ctx context.Context, q query.Query, facetName string) ([]facet.Value, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return db.engine.TermCounts(ctx, q, facetName)
}
