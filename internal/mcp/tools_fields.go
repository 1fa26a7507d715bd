package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/fleadb"
	"github.com/sha1n/flea-db/internal/schema"
)

// FieldsArgument takes no parameters.
type FieldsArgument struct{}

// Field describes one queryable field.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Facet       bool   `json:"facet,omitempty"`
	Multivalued bool   `json:"multivalued,omitempty"`
}

// DescribeFields lists the catalog's index fields with their facet flags.
func DescribeFields(catalog *schema.Catalog) []Field {
	fields := catalog.Fields()
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: f.Name, Type: f.Type.String()}
		if multivalued, ok := catalog.Facet(f.Name); ok {
			out[i].Facet = true
			out[i].Multivalued = multivalued
		}
	}
	return out
}

// FieldsHandler handles the list fields MCP tool.
type FieldsHandler struct {
	db *fleadb.DB
}

// NewFieldsHandler creates a new list fields handler.
func NewFieldsHandler(db *fleadb.DB) *FieldsHandler {
	return &FieldsHandler{db: db}
}

// Handle lists the index fields with their types and facet flags.
func (h *FieldsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FieldsArgument) (*mcp.CallToolResult, any, error) {
	return jsonResult(DescribeFields(h.db.Catalog())), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *FieldsHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_fields",
		Description: "List the indexed field paths that can be queried, sorted on and used as facets",
	}
}

// RegisterFieldsTool registers the list fields tool with an MCP server.
func RegisterFieldsTool(server *mcp.Server, db *fleadb.DB) {
	handler := NewFieldsHandler(db)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
