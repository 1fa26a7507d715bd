package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const recordSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string", "index": "index"},
    "year": {"type": "integer", "index": "index"},
    "genres": {"type": "array", "items": {"type": "string"}, "index": "facet"},
    "cast": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "index": "facet"}
        }
      }
    }
  },
  "required": ["title"]
}`

var movies = []any{
	map[string]any{"title": "Alien", "year": 1979, "genres": []string{"horror", "scifi"}, "cast": []any{map[string]any{"name": "Weaver"}}},
	map[string]any{"title": "Aliens", "year": 1986, "genres": []string{"action", "scifi"}, "cast": []any{map[string]any{"name": "Weaver"}, map[string]any{"name": "Biehn"}}},
	map[string]any{"title": "Heat", "year": 1995, "genres": []string{"crime"}, "cast": []any{map[string]any{"name": "Pacino"}, map[string]any{"name": "De Niro"}}},
	map[string]any{"title": "Ronin", "year": 1998, "genres": []string{"action", "crime"}, "cast": []any{map[string]any{"name": "De Niro"}}},
}

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(recordSchema), 0644); err != nil {
		t.Fatalf("Failed to write schema: %v", err)
	}
	return path
}

func extractTextContent(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(*mcp.TextContent); ok {
		return text.Text
	}
	return ""
}

// callTool calls a tool and decodes its JSON text result into out.
// jsonUnmarshal decodes a stored source.
func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) returned an error result: %s", name, extractTextContent(result))
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(extractTextContent(result)), out); err != nil {
		t.Fatalf("Failed to decode %s result: %v", name, err)
	}
}
