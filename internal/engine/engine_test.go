package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/jsonnode"
	"github.com/sha1n/flea-db/internal/mapper"
	"github.com/sha1n/flea-db/internal/paginate"
	"github.com/sha1n/flea-db/internal/query"
	"github.com/sha1n/flea-db/internal/schema"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "id": {"type": "string", "index": "index"},
    "age": {"type": "integer", "index": "index"},
    "score": {"type": "number", "index": "index"},
    "tags": {"type": "array", "items": {"type": "string"}, "index": "facet"},
    "owner": {"type": "object", "properties": {"name": {"type": "string", "index": "facet"}}}
  }
}`

func newCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	s, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("schema.Parse failed: %v", err)
	}
	c, err := schema.Derive(s)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return c
}

// fill indexes n documents: age i, score i/2, tag "even" or "odd", owner
// alternating between "ann" and "bob".
func fill(t *testing.T, e *Engine, n int) {
	t.Helper()
	m, err := mapper.New(e.Catalog(), 0)
	if err != nil {
		t.Fatalf("mapper.New failed: %v", err)
	}
	b := e.NewBatch()
	for i := 0; i < n; i++ {
		parity := "even"
		owner := "ann"
		if i%2 == 1 {
			parity, owner = "odd", "bob"
		}
		src := fmt.Sprintf(`{"id":"%d","age":%d,"score":%g,"tags":["%s","all"],"owner":{"name":"%s"}}`, i, i, float64(i)/2, parity, owner)
		terms, err := m.Map(jsonnode.MustParse(src))
		if err != nil {
			t.Fatalf("Map failed: %v", err)
		}
		if err := b.Index(fmt.Sprintf("doc-%02d", i), []byte(src), terms); err != nil {
			t.Fatalf("Index failed: %v", err)
		}
	}
	if err := e.Apply(b); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

func newFilledEngine(t *testing.T, n int) *Engine {
	t.Helper()
	e, err := NewInMemory(newCatalog(t))
	if err != nil {
		t.Fatalf("NewInMemory failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	fill(t, e, n)
	return e
}

func TestFieldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$.age", "$%2Eage"},
		{"$.a['b.c']", "$%2Ea['b%2Ec']"},
		{"$.100%", "$%2E100%25"},
	}
	for _, tt := range tests {
		if got := FieldName(tt.in); got != tt.want {
			t.Errorf("FieldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FacetFieldName("$.age"); got != "@$%2Eage" {
		t.Errorf("FacetFieldName = %q", got)
	}
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	e := newFilledEngine(t, 20)

	tests := []struct {
		name string
		q    query.Query
		want int
	}{
		{"match all", query.All(), 20},
		{"nil is match all", nil, 20},
		{"term", query.NewTerm("$.id", "3"), 1},
		{"multivalued term", query.NewTerm("$.tags[#]", "even"), 10},
		{"int range inclusive", query.NewIntRange("$.age", 1, 19, true, true), 19},
		{"int range exclusive", query.NewIntRange("$.age", 1, 19, false, false), 17},
		{"open int range", &query.IntRange{Field: "$.age", Min: ptr(int64(15)), MinInclusive: true}, 5},
		{"num range", query.NewNumRange("$.score", 0, 2, true, false), 4},
		{"must", query.And(query.NewTerm("$.tags[#]", "odd"), query.NewIntRange("$.age", 0, 9, true, true)), 5},
		{"should", query.NewBoolean().Should(query.NewTerm("$.id", "1"), query.NewTerm("$.id", "2")), 2},
		{"must not only", query.NewBoolean().MustNot(query.NewTerm("$.tags[#]", "odd")), 10},
		{"empty boolean", query.NewBoolean(), 0},
		{"nested field", query.NewTerm("$.owner.name", "ann"), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Count(ctx, tt.q)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Count = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTranslate_ValidatesFields(t *testing.T) {
	e := newFilledEngine(t, 1)

	if _, err := e.Translate(query.NewTerm("$.nope", "x")); !dberrors.IsKind(err, dberrors.KindUnknownField) {
		t.Errorf("Translate(unknown) = %v, want unknown field", err)
	}
	if _, err := e.Translate(query.NewTerm("$.age", "x")); !dberrors.IsKind(err, dberrors.KindTypeMismatch) {
		t.Errorf("Translate(term on integer) = %v, want type mismatch", err)
	}
	if _, err := e.Translate(query.And(query.NewNumRange("$.age", 0, 1, true, true))); !dberrors.IsKind(err, dberrors.KindTypeMismatch) {
		t.Errorf("Translate(nested num range on integer) = %v, want type mismatch", err)
	}
}

func TestSearch_SortAndCursor(t *testing.T) {
	ctx := context.Background()
	e := newFilledEngine(t, 20)

	res, err := e.Search(ctx, query.All(), query.By("$.age", true), 5, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Total != 20 {
		t.Errorf("Total = %d, want 20", res.Total)
	}
	want := []string{"doc-19", "doc-18", "doc-17", "doc-16", "doc-15"}
	for i, h := range res.Hits {
		if h.ID != want[i] {
			t.Errorf("hit %d = %s, want %s", i, h.ID, want[i])
		}
	}
	src, err := jsonnode.Parse(res.Hits[0].Source)
	if err != nil {
		t.Fatalf("source is not JSON: %v", err)
	}
	if id, _ := src.Get("id"); id.Str() != "19" {
		t.Errorf("source id = %s, want 19", id)
	}

	next, err := e.Search(ctx, query.All(), query.By("$.age", true), 5, res.Hits[4].Cursor)
	if err != nil {
		t.Fatalf("Search after failed: %v", err)
	}
	if next.Hits[0].ID != "doc-14" {
		t.Errorf("first hit after cursor = %s, want doc-14", next.Hits[0].ID)
	}

	if _, err := e.Search(ctx, query.All(), query.By("$.age", true), 5, paginate.Cursor{"x"}); !dberrors.IsKind(err, dberrors.KindStaleCursor) {
		t.Errorf("Search(bad cursor) = %v, want stale cursor", err)
	}
	if _, err := e.Search(ctx, query.All(), query.By("$.nope", false), 5, nil); !dberrors.IsKind(err, dberrors.KindUnknownField) {
		t.Errorf("Search(unknown sort) = %v, want unknown field", err)
	}
}

func TestSearch_PaginatesThroughAll(t *testing.T) {
	ctx := context.Background()
	e := newFilledEngine(t, 20)

	p := paginate.New(searcherFunc(func(ctx context.Context, limit int, after paginate.Cursor) (paginate.Result, error) {
		return e.Search(ctx, query.All(), query.By("$.tags[#]", false).ThenBy("$.score", false), limit, after)
	}))
	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		hits, err := p.Page(ctx, page, 7)
		if err != nil {
			t.Fatalf("Page(%d) failed: %v", page, err)
		}
		for _, h := range hits {
			seen[h.ID] = true
		}
	}
	if len(seen) != 20 {
		t.Errorf("distinct hits = %d, want 20", len(seen))
	}
}

func TestTermCounts(t *testing.T) {
	ctx := context.Background()
	e := newFilledEngine(t, 5)

	values, err := e.TermCounts(ctx, query.All(), "$.tags[#]")
	if err != nil {
		t.Fatalf("TermCounts failed: %v", err)
	}
	got := map[string]int{}
	for _, v := range values {
		got[v.Value] = v.Multiplicity
	}
	if got["all"] != 5 || got["even"] != 3 || got["odd"] != 2 || len(got) != 3 {
		t.Errorf("TermCounts = %v, want all:5 even:3 odd:2", got)
	}
	if values[0].Value != "all" {
		t.Errorf("first value = %s, want all", values[0].Value)
	}

	filtered, err := e.TermCounts(ctx, query.NewTerm("$.owner.name", "bob"), "$.tags[#]")
	if err != nil {
		t.Fatalf("TermCounts failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("filtered TermCounts = %v, want all and odd", filtered)
	}

	if _, err := e.TermCounts(ctx, query.All(), "$.age"); !dberrors.IsKind(err, dberrors.KindUnknownField) {
		t.Errorf("TermCounts(non facet) = %v, want unknown field", err)
	}
}

func TestMatchingIDsAndDelete(t *testing.T) {
	ctx := context.Background()
	e := newFilledEngine(t, 10)

	ids, err := e.MatchingIDs(ctx, query.NewTerm("$.tags[#]", "odd"))
	if err != nil {
		t.Fatalf("MatchingIDs failed: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("MatchingIDs = %v, want 5 ids", ids)
	}

	b := e.NewBatch()
	for _, id := range ids {
		b.Delete(id)
	}
	if err := e.Apply(b); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	n, err := e.DocCount()
	if err != nil || n != 5 {
		t.Errorf("DocCount = %d, %v, want 5", n, err)
	}
}

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	c := newCatalog(t)

	e, err := Create(path, c)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fill(t, e, 3)
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	e, err = Open(path, c)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = e.Close() }()

	got, err := e.Count(context.Background(), query.NewIntRange("$.age", 1, 2, true, true))
	if err != nil || got != 2 {
		t.Errorf("Count after reopen = %d, %v, want 2", got, err)
	}
}

type searcherFunc func(ctx context.Context, limit int, after paginate.Cursor) (paginate.Result, error)

func (f searcherFunc) Search(ctx context.Context, limit int, after paginate.Cursor) (paginate.Result, error) {
	return f(ctx, limit, after)
}

func ptr[T any](v T) *T { return &v }
