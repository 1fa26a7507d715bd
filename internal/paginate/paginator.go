// Package paginate pages through sorted search results by resuming each
// page from the sort key of the previous page's last hit.
package paginate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sha1n/flea-db/internal/dberrors"
)

// Cursor is the engine sort key of a hit. A search resumed from a cursor
// returns the hits strictly after it.
type Cursor []string

// Hit is one search result.
type Hit struct {
	ID     string          `json:"id"`
	Source json.RawMessage `json:"source"`
	Cursor Cursor          `json:"-"`
}

// Result is a page of hits together with the total hit count of the query.
type Result struct {
	Hits  []Hit
	Total int
}

// Searcher runs one query with one sort. A nil cursor starts from the first hit.
type Searcher interface {
	Search(ctx context.Context, limit int, after Cursor) (Result, error)
}

// Paginator exposes a sorted result set page by page. It keeps no cursors
// between calls, so reaching page n costs n searches.
type Paginator struct {
	searcher Searcher

	mu      sync.Mutex
	total   int
	counted bool
}

// New creates a paginator over the searcher.
func New(s Searcher) *Paginator {
	return &Paginator{searcher: s}
}

// TotalHits returns the number of documents matching the query. The count
// is computed once and cached.
func (p *Paginator) TotalHits(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counted {
		return p.total, nil
	}
	res, err := p.searcher.Search(ctx, 1, nil)
	if err != nil {
		return 0, err
	}
	p.total, p.counted = res.Total, true
	return p.total, nil
}

// TotalPages returns the number of pages of the given size.
func (p *Paginator) TotalPages(ctx context.Context, pageSize int) (int, error) {
	if pageSize < 1 {
		return 0, dberrors.New(dberrors.KindPaginationRange, "page size must be at least 1, got %d", pageSize)
	}
	total, err := p.TotalHits(ctx)
	if err != nil {
		return 0, err
	}
	return (total + pageSize - 1) / pageSize, nil
}

// Page returns page pageNum, counting from 1.
func (p *Paginator) Page(ctx context.Context, pageNum, pageSize int) ([]Hit, error) {
	if pageNum < 1 {
		return nil, dberrors.New(dberrors.KindPaginationRange, "page number must be at least 1, got %d", pageNum)
	}
	pages, err := p.TotalPages(ctx, pageSize)
	if err != nil {
		return nil, err
	}
	if pageNum > pages {
		return nil, dberrors.New(dberrors.KindPaginationRange, "page %d exceeds the %d pages of size %d", pageNum, pages, pageSize)
	}

	var (
		after Cursor
		res   Result
	)
	for page := 1; page <= pageNum; page++ {
		res, err = p.searcher.Search(ctx, pageSize, after)
		if err != nil {
			return nil, err
		}
		if len(res.Hits) == 0 {
			break
		}
		after = res.Hits[len(res.Hits)-1].Cursor
	}
	return res.Hits, nil
}

// First returns the first hit. ok is false when nothing matches.
func (p *Paginator) First(ctx context.Context) (hit Hit, ok bool, err error) {
	total, err := p.TotalHits(ctx)
	if err != nil || total == 0 {
		return Hit{}, false, err
	}
	hits, err := p.Page(ctx, 1, 1)
	if err != nil || len(hits) == 0 {
		return Hit{}, false, err
	}
	return hits[0], true, nil
}
