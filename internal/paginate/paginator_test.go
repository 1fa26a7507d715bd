package paginate

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/sha1n/flea-db/internal/dberrors"
)

// sliceSearcher serves ids in order, using the id itself as the cursor.
type sliceSearcher struct {
	ids   []string
	calls int
	err   error
}

func newSliceSearcher(n int) *sliceSearcher {
	s := &sliceSearcher{}
	for i := 0; i < n; i++ {
		s.ids = append(s.ids, strconv.Itoa(i))
	}
	return s
}

func (s *sliceSearcher) Search(_ context.Context, limit int, after Cursor) (Result, error) {
	s.calls++
	if s.err != nil {
		return Result{}, s.err
	}
	start := 0
	if after != nil {
		for i, id := range s.ids {
			if id == after[0] {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(s.ids))
	var hits []Hit
	for _, id := range s.ids[start:end] {
		hits = append(hits, Hit{ID: id, Cursor: Cursor{id}})
	}
	return Result{Hits: hits, Total: len(s.ids)}, nil
}

func TestPaginator_Boundaries(t *testing.T) {
	ctx := context.Background()
	s := newSliceSearcher(20)
	p := New(s)

	pages, err := p.TotalPages(ctx, 7)
	if err != nil {
		t.Fatalf("TotalPages failed: %v", err)
	}
	if pages != 3 {
		t.Errorf("TotalPages(7) = %d, want 3", pages)
	}

	last, err := p.Page(ctx, 3, 7)
	if err != nil {
		t.Fatalf("Page(3) failed: %v", err)
	}
	if len(last) != 6 || last[0].ID != "14" || last[5].ID != "19" {
		t.Errorf("Page(3) = %v, want ids 14..19", last)
	}

	if _, err := p.Page(ctx, 4, 7); !dberrors.IsKind(err, dberrors.KindPaginationRange) {
		t.Errorf("Page(4) = %v, want pagination range error", err)
	}
	if _, err := p.Page(ctx, 0, 7); !dberrors.IsKind(err, dberrors.KindPaginationRange) {
		t.Errorf("Page(0) = %v, want pagination range error", err)
	}
	if _, err := p.TotalPages(ctx, 0); !dberrors.IsKind(err, dberrors.KindPaginationRange) {
		t.Errorf("TotalPages(0) = %v, want pagination range error", err)
	}
}

func TestPaginator_WalksSequentially(t *testing.T) {
	ctx := context.Background()
	s := newSliceSearcher(20)
	p := New(s)

	if _, err := p.TotalHits(ctx); err != nil {
		t.Fatalf("TotalHits failed: %v", err)
	}
	s.calls = 0

	page, err := p.Page(ctx, 2, 7)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if page[0].ID != "7" || page[6].ID != "13" {
		t.Errorf("Page(2) = %v, want ids 7..13", page)
	}
	if s.calls != 2 {
		t.Errorf("searches = %d, want 2", s.calls)
	}
}

func TestPaginator_CountIsCached(t *testing.T) {
	ctx := context.Background()
	s := newSliceSearcher(5)
	p := New(s)

	for i := 0; i < 3; i++ {
		total, err := p.TotalHits(ctx)
		if err != nil || total != 5 {
			t.Fatalf("TotalHits = %d, %v, want 5", total, err)
		}
	}
	if s.calls != 1 {
		t.Errorf("searches = %d, want 1", s.calls)
	}
}

func TestPaginator_PageKeepsCachedCount(t *testing.T) {
	ctx := context.Background()
	s := newSliceSearcher(5)
	p := New(s)

	if _, err := p.TotalHits(ctx); err != nil {
		t.Fatalf("TotalHits failed: %v", err)
	}
	s.ids = append(s.ids, "5", "6")
	if _, err := p.Page(ctx, 1, 2); err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if total, _ := p.TotalHits(ctx); total != 5 {
		t.Errorf("TotalHits after Page = %d, want the cached 5", total)
	}
}

func TestPaginator_AllPagesCoverAllHits(t *testing.T) {
	ctx := context.Background()
	p := New(newSliceSearcher(20))

	pages, _ := p.TotalPages(ctx, 1)
	seen := map[string]bool{}
	for i := 1; i <= pages; i++ {
		hits, err := p.Page(ctx, i, 1)
		if err != nil {
			t.Fatalf("Page(%d) failed: %v", i, err)
		}
		for _, h := range hits {
			seen[h.ID] = true
		}
	}
	if len(seen) != 20 {
		t.Errorf("distinct hits = %d, want 20", len(seen))
	}
}

func TestPaginator_First(t *testing.T) {
	ctx := context.Background()

	hit, ok, err := New(newSliceSearcher(3)).First(ctx)
	if err != nil || !ok || hit.ID != "0" {
		t.Errorf("First = %v, %v, %v, want id 0", hit, ok, err)
	}

	_, ok, err = New(newSliceSearcher(0)).First(ctx)
	if err != nil || ok {
		t.Errorf("First on empty = %v, %v, want not found", ok, err)
	}
}

func TestPaginator_SearchError(t *testing.T) {
	boom := errors.New("boom")
	p := New(&sliceSearcher{err: boom})
	if _, err := p.TotalHits(context.Background()); !errors.Is(err, boom) {
		t.Errorf("TotalHits = %v, want boom", err)
	}
}

func TestToken(t *testing.T) {
	binding := Binding(`{"all":true}`, "$.age:desc", "3")
	if binding != Binding(`{"all":true}`, "$.age:desc", "3") {
		t.Error("Binding is not deterministic")
	}
	if binding == Binding(`{"all":true}`, "$.age", "3") {
		t.Error("Binding should depend on every part")
	}

	tok, err := EncodeToken(binding, Cursor{"a", "b"})
	if err != nil {
		t.Fatalf("EncodeToken failed: %v", err)
	}
	c, err := DecodeToken(binding, tok)
	if err != nil {
		t.Fatalf("DecodeToken failed: %v", err)
	}
	if len(c) != 2 || c[0] != "a" || c[1] != "b" {
		t.Errorf("DecodeToken = %v, want [a b]", c)
	}

	if _, err := DecodeToken(Binding("other"), tok); !dberrors.IsKind(err, dberrors.KindStaleCursor) {
		t.Errorf("DecodeToken(other binding) = %v, want stale cursor", err)
	}
	if _, err := DecodeToken(binding, "%%%"); !dberrors.IsKind(err, dberrors.KindStaleCursor) {
		t.Errorf("DecodeToken(garbage) = %v, want stale cursor", err)
	}
}
