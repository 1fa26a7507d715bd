package fleadb

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sha1n/flea-db/internal/schema"
)

const recordCount = 20

const recordSchema = `{
  "type": "object",
  "properties": {
    "id": {"type": "string", "index": "index"},
    "categories": {"type": "array", "items": {"type": "string"}, "index": "facet"},
    "components": {
      "type": "object",
      "index": "facet",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "index": "facet"},
          "value": {"type": "integer", "index": "index"}
        }
      }
    },
    "age": {"type": "integer", "index": "index"},
    "integerSet": {"type": "array", "items": {"type": "integer"}, "index": "index"}
  },
  "required": ["id"]
}`

type component struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type record struct {
	ID         string               `json:"id"`
	Age        int                  `json:"age"`
	Categories []string             `json:"categories"`
	Components map[string]component `json:"components,omitempty"`
}

// newRecord builds record i of the scenario: categories "mod2:<i%2>" and
// "mod3:<i%3>", and from i=6 on a single component keyed "component-<i<10>".
func newRecord(i int) []byte {
	r := record{
		ID:         fmt.Sprint(i),
		Age:        i,
		Categories: []string{fmt.Sprintf("mod2:%d", i%2), fmt.Sprintf("mod3:%d", i%3)},
	}
	if i > 5 {
		r.Components = map[string]component{
			fmt.Sprintf("component-%t", i < 10): {Name: fmt.Sprintf("item %d", i), Value: i},
		}
	}
	data, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	return data
}

func parseSchema(t *testing.T, s string) *schema.Schema {
	t.Helper()
	parsed, err := schema.Parse([]byte(s))
	if err != nil {
		t.Fatalf("schema.Parse failed: %v", err)
	}
	return parsed
}

func fillRecords(t *testing.T, db *DB, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if _, err := db.Store(ctx, newRecord(i)); err != nil {
			t.Fatalf("Store(%d) failed: %v", i, err)
		}
	}
	if err := db.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

// newScenarioDB returns an in-memory database holding the 20 scenario records.
func newScenarioDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewInMemory(parseSchema(t, recordSchema), Options{})
	if err != nil {
		t.Fatalf("NewInMemory failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	fillRecords(t, db, recordCount)
	return db
}

func decodeRecord(t *testing.T, src []byte) record {
	t.Helper()
	var r record
	if err := json.Unmarshal(src, &r); err != nil {
		t.Fatalf("failed to decode %s: %v", src, err)
	}
	return r
}
