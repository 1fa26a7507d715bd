package fleadb

import (
	"context"
	"strconv"
	"time"

	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/paginate"
	"github.com/sha1n/flea-db/internal/query"
)

// searcher runs one (query, sort) pair against the generation it was
// created at.
type searcher struct {
	db         *DB
	q          query.Query
	sort       query.Sort
	generation uint64
}

func (s *searcher) Search(ctx context.Context, limit int, after paginate.Cursor) (res paginate.Result, err error) {
	defer s.db.observe("search", time.Now(), &err)

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.db.checkOpen(); err != nil {
		return paginate.Result{}, err
	}
	if s.db.generation != s.generation {
		return paginate.Result{}, dberrors.New(dberrors.KindStaleCursor,
			"results were created at generation %d, database is at %d", s.generation, s.db.generation)
	}
	return s.db.engine.Search(ctx, s.q, s.sort, limit, after)
}

// Query returns a paginator over the documents matching q in sort order. A
// nil query matches every document. Field references are checked when the
// first page or count is requested. The paginator fails with a stale cursor
// error once another commit happens.
func (db *DB) Query(q query.Query, sort query.Sort) (*paginate.Paginator, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	if q == nil {
		q = query.All()
	}
	return paginate.New(&searcher{db: db, q: q, sort: sort, generation: db.generation}), nil
}

// SingleResult returns the only document matching q. ok is false when no
// document matches; more than one match is an error.
func (db *DB) SingleResult(ctx context.Context, q query.Query) (hit paginate.Hit, ok bool, err error) {
	p, err := db.Query(q, nil)
	if err != nil {
		return paginate.Hit{}, false, err
	}
	total, err := p.TotalHits(ctx)
	if err != nil {
		return paginate.Hit{}, false, err
	}
	if total > 1 {
		return paginate.Hit{}, false, dberrors.New(dberrors.KindInvariant, "query returned %d results, expected at most 1", total)
	}
	return p.First(ctx)
}

// Page is one page of a cursor based scan.
type Page struct {
	Hits  []paginate.Hit `json:"hits"`
	Total int            `json:"total"`
	// Next resumes the scan after the last hit. It is empty on the last page.
	Next string `json:"next,omitempty"`
}

// Scan returns up to limit documents matching q in sort order, starting
// after the position encoded in token. An empty token starts from the
// first document. Tokens are bound to the query, the sort, the open
// instance and the commit generation they were issued for.
func (db *DB) Scan(ctx context.Context, q query.Query, sort query.Sort, limit int, token string) (Page, error) {
	if limit < 1 {
		return Page{}, dberrors.New(dberrors.KindPaginationRange, "limit must be at least 1, got %d", limit)
	}
	if q == nil {
		q = query.All()
	}
	spec, err := query.Encode(q)
	if err != nil {
		return Page{}, err
	}

	gen := db.Generation()
	binding := paginate.Binding(string(spec), sort.String(), db.session, strconv.FormatUint(gen, 10))

	var after paginate.Cursor
	if token != "" {
		if after, err = paginate.DecodeToken(binding, token); err != nil {
			return Page{}, err
		}
	}

	s := &searcher{db: db, q: q, sort: sort, generation: gen}
	res, err := s.Search(ctx, limit, after)
	if err != nil {
		return Page{}, err
	}

	page := Page{Hits: res.Hits, Total: res.Total}
	if len(res.Hits) == limit {
		last := res.Hits[len(res.Hits)-1]
		if page.Next, err = paginate.EncodeToken(binding, last.Cursor); err != nil {
			return Page{}, err
		}
	}
	return page, nil
}
