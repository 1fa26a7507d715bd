package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sha1n/flea-db/internal/config"
	"github.com/sha1n/flea-db/internal/fleadb"
	"github.com/sha1n/flea-db/internal/schema"
)

// OpenDB opens the configured database. The schema file is optional for an
// existing on-disk database, whose schema is read from its descriptor.
func OpenDB(ctx context.Context, s *config.DBSettings, observer fleadb.Observer) (*fleadb.DB, error) {
	var sch *schema.Schema
	if s.SchemaFile != "" {
		var err error
		if sch, err = schema.Load(s.SchemaFile); err != nil {
			return nil, fmt.Errorf("failed to load schema %s: %w", s.SchemaFile, err)
		}
	}

	opts := fleadb.Options{
		IgnoreHash:          s.IgnoreHash,
		LockTimeout:         s.LockTimeout,
		StoreWorkers:        s.StoreWorkers,
		ExpressionCacheSize: s.ExpressionCacheSize,
		Observer:            observer,
		Logger:              slog.Default(),
	}

	if s.InMemory {
		db, err := fleadb.NewInMemory(sch, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory database: %w", err)
		}
		slog.Info("Created in-memory database", "fields", len(db.Catalog().Fields()))
		return db, nil
	}

	db, err := fleadb.Open(ctx, s.Dir, sch, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", s.Dir, err)
	}
	slog.Info("Opened database", "dir", s.Dir, "fields", len(db.Catalog().Fields()), "facets", len(db.AllFacets()))
	return db, nil
}
