package engine

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/mapper"
	"github.com/sha1n/flea-db/internal/schema"
)

// Engine is an open bleve index bound to a catalog.
type Engine struct {
	index   bleve.Index
	catalog *schema.Catalog
}

// Create creates a new index at path.
func Create(path string, c *schema.Catalog) (*Engine, error) {
	index, err := bleve.New(path, NewIndexMapping(c))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Engine{index: index, catalog: c}, nil
}

// Open opens an existing index at path.
func Open(path string, c *schema.Catalog) (*Engine, error) {
	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return &Engine{index: index, catalog: c}, nil
}

// NewInMemory creates an index that lives only in memory.
func NewInMemory(c *schema.Catalog) (*Engine, error) {
	index, err := bleve.NewMemOnly(NewIndexMapping(c))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory index: %w", err)
	}
	return &Engine{index: index, catalog: c}, nil
}

// Catalog returns the catalog the index was built for.
func (e *Engine) Catalog() *schema.Catalog {
	return e.catalog
}

// DocCount returns the number of indexed documents.
func (e *Engine) DocCount() (uint64, error) {
	return e.index.DocCount()
}

// Close closes the index.
func (e *Engine) Close() error {
	return e.index.Close()
}

// Batch collects index and delete operations applied together by Apply.
type Batch struct {
	batch *bleve.Batch
}

// NewBatch returns an empty batch.
func (e *Engine) NewBatch() *Batch {
	return &Batch{batch: e.index.NewBatch()}
}

// Index adds a document to the batch, replacing any document with the same id.
func (b *Batch) Index(id string, source []byte, terms *mapper.Terms) error {
	if err := b.batch.Index(id, Document(source, terms)); err != nil {
		return dberrors.Wrap(dberrors.KindInvariant, err, "failed to index document %s", id)
	}
	return nil
}

// Delete adds a deletion to the batch.
func (b *Batch) Delete(id string) {
	b.batch.Delete(id)
}

// Size returns the number of operations in the batch.
func (b *Batch) Size() int {
	return b.batch.Size()
}

// Reset empties the batch.
func (b *Batch) Reset() {
	b.batch.Reset()
}

// Apply executes the batch.
func (e *Engine) Apply(b *Batch) error {
	if b.Size() == 0 {
		return nil
	}
	if err := e.index.Batch(b.batch); err != nil {
		return fmt.Errorf("batch index failed: %w", err)
	}
	return nil
}

// Document builds the bleve document of a mapped source. Every catalog
// field becomes a list of values; facet values are deduplicated.
func Document(source []byte, terms *mapper.Terms) map[string]any {
	doc := map[string]any{SourceField: string(source)}

	for _, t := range terms.Index {
		name := FieldName(t.Field)
		var v any
		switch t.Kind {
		case mapper.IntTerm:
			v = float64(t.Int)
		case mapper.FloatTerm:
			v = t.Float
		default:
			v = t.Str
		}
		values, _ := doc[name].([]any)
		doc[name] = append(values, v)
	}

	seen := map[string]bool{}
	for _, f := range terms.Facets {
		name := FacetFieldName(f.Facet)
		if seen[name+"\x00"+f.Value] {
			continue
		}
		seen[name+"\x00"+f.Value] = true
		values, _ := doc[name].([]any)
		doc[name] = append(values, f.Value)
	}

	return doc
}

// contextErr maps cancellation to the caller's context error.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
