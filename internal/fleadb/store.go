package fleadb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/jsonnode"
	"github.com/sha1n/flea-db/internal/mapper"
	"github.com/sha1n/flea-db/internal/query"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"
)

type prepared struct {
	id     string
	source []byte
	terms  *mapper.Terms
}

// prepare validates and maps one document. It takes no lock.
func (db *DB) prepare(doc []byte) (*prepared, error) {
	node, err := jsonnode.Parse(doc)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindValidation, err, "document is not valid JSON")
	}

	result, err := db.validator.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindValidation, err, "schema validation failed")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, dberrors.New(dberrors.KindValidation, "document does not match the schema: %s", strings.Join(msgs, "; "))
	}

	terms, err := db.mapper.Map(node)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindInvariant, err, "failed to generate document id")
	}

	source, err := node.MarshalJSON()
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindInvariant, err, "failed to encode document")
	}
	return &prepared{id: id.String(), source: source, terms: terms}, nil
}

// Store adds a document and returns its id. The document becomes visible
// to queries on the next Commit.
func (db *DB) Store(ctx context.Context, doc []byte) (id string, err error) {
	defer db.observe("store", time.Now(), &err)

	if err := db.readCheck(ctx); err != nil {
		return "", err
	}
	p, err := db.prepare(doc)
	if err != nil {
		return "", err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return "", err
	}
	if err := db.pending.Index(p.id, p.source, p.terms); err != nil {
		return "", err
	}
	db.opts.Observer.SetPending(db.pending.Size())
	return p.id, nil
}

// StoreAll adds documents, validating and mapping them in parallel. Nothing
// is stored when any document is rejected.
func (db *DB) StoreAll(ctx context.Context, docs [][]byte) (ids []string, err error) {
	defer db.observe("store_all", time.Now(), &err)

	if err := db.readCheck(ctx); err != nil {
		return nil, err
	}

	ready := make([]*prepared, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.opts.StoreWorkers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := db.prepare(doc)
			if err != nil {
				var e *dberrors.Error
				if errors.As(err, &e) {
					return dberrors.Wrap(e.Kind, err, "document %d rejected", i)
				}
				return err
			}
			ready[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(ready))
	for _, p := range ready {
		if err := db.pending.Index(p.id, p.source, p.terms); err != nil {
			return nil, err
		}
		ids = append(ids, p.id)
	}
	db.opts.Observer.SetPending(db.pending.Size())
	return ids, nil
}

// Delete removes the committed documents matching q and returns how many
// were scheduled for deletion. Deletions take effect on the next Commit.
func (db *DB) Delete(ctx context.Context, q query.Query) (n int, err error) {
	defer db.observe("delete", time.Now(), &err)

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return 0, err
	}

	ids, err := db.engine.MatchingIDs(ctx, q)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		db.pending.Delete(id)
	}
	db.opts.Observer.SetPending(db.pending.Size())
	return len(ids), nil
}

// readCheck fails fast on a closed database or a done context.
func (db *DB) readCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.checkOpen()
}
