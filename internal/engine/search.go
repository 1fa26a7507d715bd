package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	bq "github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/facet"
	"github.com/sha1n/flea-db/internal/paginate"
	"github.com/sha1n/flea-db/internal/query"
)

const (
	facetName     = "values"
	maxFacetTerms = math.MaxInt32
	idBatchSize   = 1000
)

// Translate validates q against the catalog and converts it into a bleve query.
func (e *Engine) Translate(q query.Query) (bq.Query, error) {
	if q == nil {
		q = query.All()
	}
	if err := q.Validate(e.catalog); err != nil {
		return nil, err
	}
	return translate(q)
}

func translate(q query.Query) (bq.Query, error) {
	switch q := q.(type) {
	case query.MatchAll, *query.MatchAll:
		return bleve.NewMatchAllQuery(), nil

	case *query.Term:
		tq := bleve.NewTermQuery(q.Value)
		tq.SetField(FieldName(q.Field))
		return tq, nil

	case *query.IntRange:
		var min, max *float64
		if q.Min != nil {
			v := float64(*q.Min)
			min = &v
		}
		if q.Max != nil {
			v := float64(*q.Max)
			max = &v
		}
		return numericRange(q.Field, min, max, q.MinInclusive, q.MaxInclusive), nil

	case *query.NumRange:
		return numericRange(q.Field, q.Min, q.Max, q.MinInclusive, q.MaxInclusive), nil

	case *query.Boolean:
		if len(q.Clauses) == 0 {
			return bleve.NewMatchNoneQuery(), nil
		}
		boolQuery := bleve.NewBooleanQuery()
		hasMust, hasShould := false, false
		for _, cl := range q.Clauses {
			sub, err := translate(cl.Query)
			if err != nil {
				return nil, err
			}
			switch cl.Occur {
			case query.Must:
				boolQuery.AddMust(sub)
				hasMust = true
			case query.Should:
				boolQuery.AddShould(sub)
				hasShould = true
			case query.MustNot:
				boolQuery.AddMustNot(sub)
			}
		}
		if hasShould && !hasMust {
			boolQuery.SetMinShould(1)
		}
		return boolQuery, nil
	}
	return nil, dberrors.New(dberrors.KindInvariant, "unsupported query type %T", q)
}

func numericRange(field string, min, max *float64, minInclusive, maxInclusive bool) bq.Query {
	rq := bleve.NewNumericRangeInclusiveQuery(min, max, &minInclusive, &maxInclusive)
	rq.SetField(FieldName(field))
	return rq
}

// sortOrder resolves s against the catalog. The document id always breaks
// ties so that cursors are total.
func (e *Engine) sortOrder(s query.Sort) (search.SortOrder, error) {
	resolved, err := s.Resolve(e.catalog)
	if err != nil {
		return nil, err
	}
	order := make(search.SortOrder, 0, len(resolved)+1)
	for _, f := range resolved {
		typ := search.SortFieldAsString
		if f.Comparator != query.Lexicographic {
			typ = search.SortFieldAsNumber
		}
		order = append(order, &search.SortField{
			Field:   FieldName(f.Field),
			Desc:    f.Reverse,
			Type:    typ,
			Missing: search.SortFieldMissingLast,
		})
	}
	return append(order, &search.SortDocID{}), nil
}

// Search returns up to limit hits of q in sort order, starting after the
// cursor when one is given.
func (e *Engine) Search(ctx context.Context, q query.Query, s query.Sort, limit int, after paginate.Cursor) (paginate.Result, error) {
	bleveQuery, err := e.Translate(q)
	if err != nil {
		return paginate.Result{}, err
	}
	order, err := e.sortOrder(s)
	if err != nil {
		return paginate.Result{}, err
	}
	if after != nil && len(after) != len(order) {
		return paginate.Result{}, dberrors.New(dberrors.KindStaleCursor, "cursor has %d sort values, sort has %d", len(after), len(order))
	}

	req := bleve.NewSearchRequestOptions(bleveQuery, limit, 0, false)
	req.Fields = []string{SourceField}
	req.SortByCustom(order)
	if after != nil {
		req.SearchAfter = after
	}

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return paginate.Result{}, fmt.Errorf("search failed: %w", contextErr(ctx, err))
	}

	out := paginate.Result{Total: int(res.Total), Hits: make([]paginate.Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		// SearchAfter takes decoded sort values, numeric keys in h.Sort are prefix coded
		hit := paginate.Hit{ID: h.ID, Cursor: append(paginate.Cursor(nil), h.DecodedSort...)}
		if src, ok := h.Fields[SourceField].(string); ok {
			hit.Source = []byte(src)
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// Count returns the number of documents matching q.
func (e *Engine) Count(ctx context.Context, q query.Query) (int, error) {
	bleveQuery, err := e.Translate(q)
	if err != nil {
		return 0, err
	}
	req := bleve.NewSearchRequestOptions(bleveQuery, 0, 0, false)
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", contextErr(ctx, err))
	}
	return int(res.Total), nil
}

// TermCounts returns every value of a facet among the documents matching
// q, with the number of documents holding it, in descending count order.
func (e *Engine) TermCounts(ctx context.Context, q query.Query, facetField string) ([]facet.Value, error) {
	if err := e.catalog.ValidateFacet(facetField); err != nil {
		return nil, err
	}
	bleveQuery, err := e.Translate(q)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bleveQuery, 0, 0, false)
	req.AddFacet(facetName, bleve.NewFacetRequest(FacetFieldName(facetField), maxFacetTerms))

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("facet search failed: %w", contextErr(ctx, err))
	}

	fr, ok := res.Facets[facetName]
	if !ok || fr.Terms == nil {
		return nil, nil
	}
	terms := fr.Terms.Terms()
	values := make([]facet.Value, 0, len(terms))
	for _, t := range terms {
		values = append(values, facet.Value{Value: t.Term, Multiplicity: t.Count})
	}
	return values, nil
}

// MatchingIDs returns the ids of every document matching q.
func (e *Engine) MatchingIDs(ctx context.Context, q query.Query) ([]string, error) {
	var (
		ids   []string
		after paginate.Cursor
	)
	for {
		res, err := e.Search(ctx, q, nil, idBatchSize, after)
		if err != nil {
			return nil, err
		}
		for _, h := range res.Hits {
			ids = append(ids, h.ID)
		}
		if len(res.Hits) < idBatchSize {
			return ids, nil
		}
		after = res.Hits[len(res.Hits)-1].Cursor
	}
}
