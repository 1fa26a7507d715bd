package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/fleadb"
	"github.com/sha1n/flea-db/internal/schema"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "index": "index"},
    "kind": {"type": "string", "index": "facet"},
    "size": {"type": "integer", "index": "index"}
  },
  "required": ["name"]
}`

// newTestDB returns an in-memory database holding file-0 .. file-<n-1>,
// where even files are of kind "even" and odd files of kind "odd".
func newTestDB(t *testing.T, n int) *fleadb.DB {
	t.Helper()
	s, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("schema.Parse failed: %v", err)
	}
	db, err := fleadb.NewInMemory(s, fleadb.Options{})
	if err != nil {
		t.Fatalf("NewInMemory failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	kinds := []string{"even", "odd"}
	for i := 0; i < n; i++ {
		doc := fmt.Sprintf(`{"name":"file-%d","kind":"%s","size":%d}`, i, kinds[i%2], i*10)
		if _, err := db.Store(ctx, []byte(doc)); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	if err := db.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	return db
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("Expected 1 content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("Expected success, got error result: %s", resultText(t, result))
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), v); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
}
