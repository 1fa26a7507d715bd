package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sha1n/flea-db/internal/config"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "index": "index"},
    "kind": {"type": "string", "index": "facet"}
  }
}`

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(testSchema), 0644); err != nil {
		t.Fatalf("Failed to write schema: %v", err)
	}
	return path
}

func testDBSettings(t *testing.T) config.DBSettings {
	t.Helper()
	return config.DBSettings{
		Dir:                 filepath.Join(t.TempDir(), "db"),
		SchemaFile:          writeSchema(t),
		LockTimeout:         time.Second,
		PageSize:            20,
		MaxFacetValues:      10,
		StoreWorkers:        2,
		ExpressionCacheSize: 16,
	}
}
