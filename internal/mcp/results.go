package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/query"
)

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Failed to encode result: %s", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}
}

// parseQuery accepts a query DSL object, its JSON text, or nothing, which
// matches every document.
func parseQuery(v any) (query.Query, error) {
	switch q := v.(type) {
	case nil:
		return query.All(), nil
	case string:
		if strings.TrimSpace(q) == "" {
			return query.All(), nil
		}
		return query.Parse([]byte(q))
	default:
		data, err := json.Marshal(q)
		if err != nil {
			return nil, err
		}
		return query.Parse(data)
	}
}
