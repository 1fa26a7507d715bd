// Package fleadb is a schema driven document database. Documents are
// validated against a JSON Schema, mapped to the index and facet fields the
// schema declares and stored in a bleve index, on disk or in memory.
package fleadb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/engine"
	"github.com/sha1n/flea-db/internal/mapper"
	"github.com/sha1n/flea-db/internal/schema"
	"github.com/xeipuuv/gojsonschema"
)

const (
	indexDirname = "index"

	// DefaultLockTimeout is how long Open waits for another process to
	// release the database directory.
	DefaultLockTimeout = 5 * time.Second
)

// Observer receives operation outcomes. *metrics.Metrics implements it.
type Observer interface {
	Observe(operation string, start time.Time, err error)
	SetPending(n int)
	SetGeneration(g uint64)
}

// Options tunes a database.
type Options struct {
	// IgnoreHash opens a directory even when its hash differs from the
	// one recorded when it was last closed.
	IgnoreHash bool

	LockTimeout         time.Duration
	StoreWorkers        int
	ExpressionCacheSize int

	Observer Observer
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.LockTimeout <= 0 {
		o.LockTimeout = DefaultLockTimeout
	}
	if o.StoreWorkers <= 0 {
		o.StoreWorkers = 4
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type nopObserver struct{}

func (nopObserver) Observe(string, time.Time, error) {}
func (nopObserver) SetPending(int)                   {}
func (nopObserver) SetGeneration(uint64)             {}

// DB is an open database. Writes are buffered until Commit and are not
// visible to queries before it. DB is safe for concurrent use.
type DB struct {
	opts Options

	// dir is empty for in-memory databases.
	dir  string
	lock *FileLock

	schema    *schema.Schema
	catalog   *schema.Catalog
	validator *gojsonschema.Schema
	mapper    *mapper.Mapper
	// session identifies this open instance; scan tokens do not survive a reopen.
	session string

	mu         sync.RWMutex
	descriptor *Descriptor
	engine     *engine.Engine
	pending    *engine.Batch
	generation uint64
	closed     bool
}

// NewInMemory creates a database that lives only in memory.
func NewInMemory(s *schema.Schema, opts Options) (*DB, error) {
	if s == nil {
		return nil, dberrors.Schema("in-memory databases require a schema")
	}
	db, err := newDB(s, opts.withDefaults())
	if err != nil {
		return nil, err
	}
	db.engine, err = engine.NewInMemory(db.catalog)
	if err != nil {
		return nil, err
	}
	db.pending = db.engine.NewBatch()
	return db, nil
}

// Open opens the database in dir, creating it when the directory holds
// no database yet. A schema is required to create a database; when opening
// an existing one it is optional and must equal the stored schema.
func Open(ctx context.Context, dir string, s *schema.Schema, opts Options) (db *DB, err error) {
	opts = opts.withDefaults()

	lock := NewFileLock(filepath.Join(dir, lockFilename))
	if err := lock.LockWithContext(ctx, opts.LockTimeout); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			return nil, dberrors.Wrap(dberrors.KindLocked, err, "database %s is in use by another process", dir)
		}
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = lock.Unlock()
		}
	}()

	descPath := filepath.Join(dir, DescriptorFilename)
	desc, exists, err := LoadDescriptor(descPath)
	if err != nil {
		return nil, err
	}

	if exists {
		return openExisting(dir, lock, desc, s, opts)
	}
	if s == nil {
		return nil, dberrors.Schema("no database in %s and no schema to create one", dir)
	}
	return create(dir, lock, s, opts)
}

func create(dir string, lock *FileLock, s *schema.Schema, opts Options) (*DB, error) {
	db, err := newDB(s, opts)
	if err != nil {
		return nil, err
	}
	db.dir, db.lock = dir, lock
	db.descriptor = &Descriptor{Version: DescriptorVersion, JSONSchema: s.Raw()}

	db.engine, err = engine.Create(filepath.Join(dir, indexDirname), db.catalog)
	if err != nil {
		return nil, err
	}
	if err := db.descriptor.Save(db.descriptorPath()); err != nil {
		_ = db.engine.Close()
		return nil, err
	}
	db.pending = db.engine.NewBatch()

	opts.Logger.Info("Created database", "dir", dir, "fields", len(db.catalog.Fields()), "facets", len(db.catalog.Facets()))
	return db, nil
}

func openExisting(dir string, lock *FileLock, desc *Descriptor, s *schema.Schema, opts Options) (*DB, error) {
	if desc.Version != DescriptorVersion {
		return nil, dberrors.New(dberrors.KindIncompatible, "unsupported descriptor version %d in %s", desc.Version, dir)
	}

	hash, err := DirHash(dir)
	if err != nil {
		return nil, err
	}
	switch {
	case desc.Hash == "":
		desc.Hash = hash
		if err := desc.Save(filepath.Join(dir, DescriptorFilename)); err != nil {
			return nil, err
		}
	case desc.Hash != hash && !opts.IgnoreHash:
		return nil, dberrors.New(dberrors.KindTampered, "index hash %s does not match %s, %s was modified externally", hash, desc.Hash, dir)
	case desc.Hash != hash:
		opts.Logger.Warn("Ignoring index hash mismatch", "dir", dir, "hash", hash, "expected", desc.Hash)
	}

	stored, err := schema.Parse(desc.JSONSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored schema: %w", err)
	}
	if s != nil && !schema.Equal(stored, s) {
		return nil, dberrors.New(dberrors.KindIncompatible, "schema differs from the one stored in %s", dir)
	}

	db, err := newDB(stored, opts)
	if err != nil {
		return nil, err
	}
	db.dir, db.lock, db.descriptor = dir, lock, desc

	db.engine, err = engine.Open(filepath.Join(dir, indexDirname), db.catalog)
	if err != nil {
		return nil, err
	}
	db.pending = db.engine.NewBatch()

	opts.Logger.Info("Opened database", "dir", dir, "fields", len(db.catalog.Fields()), "facets", len(db.catalog.Facets()))
	return db, nil
}

func newDB(s *schema.Schema, opts Options) (*DB, error) {
	catalog, err := schema.Derive(s)
	if err != nil {
		return nil, err
	}
	validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(s.Raw()))
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindSchema, err, "invalid json schema")
	}
	m, err := mapper.New(catalog, opts.ExpressionCacheSize)
	if err != nil {
		return nil, err
	}
	return &DB{
		opts:      opts,
		schema:    s,
		catalog:   catalog,
		validator: validator,
		mapper:    m,
		session:   uuid.NewString(),
	}, nil
}

// Schema returns the schema the database is bound to.
func (db *DB) Schema() *schema.Schema {
	return db.schema
}

// Catalog returns the index and facet fields derived from the schema.
func (db *DB) Catalog() *schema.Catalog {
	return db.catalog
}

// AllFacets returns the names of the declared facets.
func (db *DB) AllFacets() []string {
	return db.catalog.FacetNames()
}

// Dir returns the database directory, empty for in-memory databases.
func (db *DB) Dir() string {
	return db.dir
}

// Generation returns the number of commits since the database was opened.
func (db *DB) Generation() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.generation
}

// Commit makes every store and delete since the previous commit visible to
// queries. Paginators created before the commit become stale.
func (db *DB) Commit(ctx context.Context) (err error) {
	defer db.observe("commit", time.Now(), &err)

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := db.engine.Apply(db.pending); err != nil {
		return err
	}
	n := db.pending.Size()
	db.pending = db.engine.NewBatch()
	db.generation++
	db.opts.Observer.SetPending(0)
	db.opts.Observer.SetGeneration(db.generation)

	if db.dir != "" {
		if err := db.descriptor.Save(db.descriptorPath()); err != nil {
			return err
		}
	}
	db.opts.Logger.Debug("Committed", "operations", n, "generation", db.generation)
	return nil
}

// Close commits pending writes and releases the database. On disk the
// descriptor is rewritten with a fresh directory hash.
func (db *DB) Close() error {
	start := time.Now()
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return dberrors.New(dberrors.KindClosed, "database has been closed already")
	}
	db.closed = true

	var errs []error
	if err := db.engine.Apply(db.pending); err != nil {
		errs = append(errs, err)
	}
	if err := db.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close index: %w", err))
	}

	if db.dir != "" {
		if hash, err := DirHash(db.dir); err != nil {
			errs = append(errs, err)
		} else {
			db.descriptor.Hash = hash
			if err := db.descriptor.Save(db.descriptorPath()); err != nil {
				errs = append(errs, err)
			}
		}
		if err := db.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	db.opts.Observer.Observe("close", start, err)
	return err
}

func (db *DB) checkOpen() error {
	if db.closed {
		return dberrors.New(dberrors.KindClosed, "database has been closed")
	}
	return nil
}

func (db *DB) descriptorPath() string {
	return filepath.Join(db.dir, DescriptorFilename)
}

func (db *DB) observe(operation string, start time.Time, err *error) {
	db.opts.Observer.Observe(operation, start, *err)
}

// Exists reports whether dir holds a database.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, DescriptorFilename))
	return err == nil
}
