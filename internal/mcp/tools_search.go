package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/fleadb"
	"github.com/sha1n/flea-db/internal/query"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query  any    `json:"query,omitempty" jsonschema_description:"Query object such as {\"term\":{\"field\":\"$.id\",\"value\":\"7\"}}. Omit to match all documents"`
	Sort   string `json:"sort,omitempty" jsonschema_description:"Comma separated field paths to sort by, each optionally suffixed with :desc"`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum number of documents to return"`
	Cursor string `json:"cursor,omitempty" jsonschema_description:"The next token of a previous response with the same query and sort"`
}

// SearchDocument is one returned document.
type SearchDocument struct {
	ID     string          `json:"id"`
	Source json.RawMessage `json:"source"`
}

// SearchResult is the search tool output.
type SearchResult struct {
	Total     int              `json:"total"`
	Documents []SearchDocument `json:"documents"`
	Next      string           `json:"next,omitempty"`
}

// SearchHandler handles the search MCP tool.
type SearchHandler struct {
	db       *fleadb.DB
	pageSize int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(db *fleadb.DB, pageSize int) *SearchHandler {
	if pageSize < 1 {
		pageSize = 20
	}
	return &SearchHandler{db: db, pageSize: pageSize}
}

// Handle runs the query and returns one page of documents.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	q, err := parseQuery(args.Query)
	if err != nil {
		return errorResult("Invalid query: %s", err), nil, nil
	}

	limit := args.Limit
	if limit == 0 {
		limit = h.pageSize
	}

	page, err := h.db.Scan(ctx, q, query.ParseSort(args.Sort), limit, args.Cursor)
	if err != nil {
		return errorResult("Search failed: %s", err), nil, nil
	}

	out := SearchResult{Total: page.Total, Next: page.Next, Documents: make([]SearchDocument, len(page.Hits))}
	for i, hit := range page.Hits {
		out.Documents[i] = SearchDocument{ID: hit.ID, Source: hit.Source}
	}
	return jsonResult(out), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_documents",
		Description: "Search stored documents with a structured query over the indexed fields, sorted and paginated by cursor",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, db *fleadb.DB, pageSize int) {
	handler := NewSearchHandler(db, pageSize)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
