package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/fleadb"
)

func TestOpenDB_OnDisk(t *testing.T) {
	ctx := context.Background()
	s := testDBSettings(t)

	db, err := OpenDB(ctx, &s, nil)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	if db.Dir() != s.Dir {
		t.Errorf("Dir = %q, want %q", db.Dir(), s.Dir)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fleadb.Exists(s.Dir) {
		t.Fatal("Expected the database to exist after close")
	}

	// Reopen without a schema file reads the stored schema
	s.SchemaFile = ""
	db, err = OpenDB(ctx, &s, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = db.Close() }()
	if got := db.AllFacets(); len(got) != 1 || got[0] != "$.kind" {
		t.Errorf("AllFacets = %v, want [$.kind]", got)
	}
}

func TestOpenDB_InMemory(t *testing.T) {
	s := testDBSettings(t)
	s.InMemory = true

	db, err := OpenDB(context.Background(), &s, nil)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if fleadb.Exists(s.Dir) {
		t.Error("Expected no files for an in-memory database")
	}
}

func TestOpenDB_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing schema file", func(t *testing.T) {
		s := testDBSettings(t)
		s.SchemaFile = filepath.Join(t.TempDir(), "missing.json")
		_, err := OpenDB(ctx, &s, nil)
		if err == nil || !strings.Contains(err.Error(), "failed to load schema") {
			t.Errorf("Expected schema load error, got: %v", err)
		}
	})

	t.Run("new database without schema", func(t *testing.T) {
		s := testDBSettings(t)
		s.SchemaFile = ""
		_, err := OpenDB(ctx, &s, nil)
		if !dberrors.IsKind(err, dberrors.KindSchema) {
			t.Errorf("Expected schema error, got: %v", err)
		}
	})

	t.Run("locked", func(t *testing.T) {
		s := testDBSettings(t)
		db, err := OpenDB(ctx, &s, nil)
		if err != nil {
			t.Fatalf("OpenDB failed: %v", err)
		}
		defer func() { _ = db.Close() }()

		_, err = OpenDB(ctx, &s, nil)
		if !dberrors.IsKind(err, dberrors.KindLocked) {
			t.Errorf("Expected locked error, got: %v", err)
		}
	})
}
