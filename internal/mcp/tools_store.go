package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/fleadb"
)

// StoreArgument defines store parameters.
type StoreArgument struct {
	Documents []any `json:"documents" jsonschema_description:"JSON documents conforming to the database schema"`
}

// StoreResult is the store tool output.
type StoreResult struct {
	IDs []string `json:"ids"`
}

// StoreHandler handles the store MCP tool.
type StoreHandler struct {
	db *fleadb.DB
}

// NewStoreHandler creates a new store handler.
func NewStoreHandler(db *fleadb.DB) *StoreHandler {
	return &StoreHandler{db: db}
}

// Handle stores all documents and commits. Either every document is stored
// or none is.
func (h *StoreHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StoreArgument) (*mcp.CallToolResult, any, error) {
	if len(args.Documents) == 0 {
		return errorResult("No documents to store"), nil, nil
	}

	docs := make([][]byte, len(args.Documents))
	for i, d := range args.Documents {
		data, err := json.Marshal(d)
		if err != nil {
			return errorResult("Document %d is not valid JSON: %s", i, err), nil, nil
		}
		docs[i] = data
	}

	ids, err := h.db.StoreAll(ctx, docs)
	if err != nil {
		return errorResult("Store failed: %s", err), nil, nil
	}
	if err := h.db.Commit(ctx); err != nil {
		return errorResult("Commit failed: %s", err), nil, nil
	}

	slog.InfoContext(ctx, "Stored documents", "count", len(ids), "generation", h.db.Generation())
	return jsonResult(StoreResult{IDs: ids}), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *StoreHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "store_documents",
		Description: "Validate, index and commit JSON documents. Returns the generated document ids",
	}
}

// RegisterStoreTool registers the store tool with an MCP server.
func RegisterStoreTool(server *mcp.Server, db *fleadb.DB) {
	handler := NewStoreHandler(db)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
