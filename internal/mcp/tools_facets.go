package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/facet"
	"github.com/sha1n/flea-db/internal/fleadb"
)

// FacetsArgument defines facet value parameters.
type FacetsArgument struct {
	Query  any            `json:"query,omitempty" jsonschema_description:"Query object restricting the counted documents. Omit to count all documents"`
	Facets map[string]int `json:"facets,omitempty" jsonschema_description:"Facet names mapped to the maximum number of values to return. Omit for all facets"`
	Max    int            `json:"max,omitempty" jsonschema_description:"Maximum number of values per facet when facets is omitted"`
	Prefix string         `json:"prefix,omitempty" jsonschema_description:"Only return values starting with this prefix. Requires exactly one facet"`
}

// FacetsHandler handles the facet values MCP tool.
type FacetsHandler struct {
	db  *fleadb.DB
	max int
}

// NewFacetsHandler creates a new facet values handler.
func NewFacetsHandler(db *fleadb.DB, max int) *FacetsHandler {
	if max < 1 {
		max = 10
	}
	return &FacetsHandler{db: db, max: max}
}

// Handle counts facet values over the matching documents.
func (h *FacetsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FacetsArgument) (*mcp.CallToolResult, any, error) {
	q, err := parseQuery(args.Query)
	if err != nil {
		return errorResult("Invalid query: %s", err), nil, nil
	}

	if args.Prefix != "" {
		if len(args.Facets) != 1 {
			return errorResult("A prefix requires exactly one facet, got %d", len(args.Facets)), nil, nil
		}
		for name, max := range args.Facets {
			if max < 1 {
				max = h.max
			}
			resp, err := h.db.FacetValuesStartingWith(ctx, name, args.Prefix, q, max)
			if err != nil {
				return errorResult("Facet lookup failed: %s", err), nil, nil
			}
			return jsonResult([]facet.Response{resp}), nil, nil
		}
	}

	var resps []facet.Response
	if len(args.Facets) == 0 {
		max := args.Max
		if max == 0 {
			max = h.max
		}
		resps, err = h.db.FacetValues(ctx, q, max)
	} else {
		var r *facet.Request
		if r, err = facet.RequestFromMap(args.Facets); err == nil {
			resps, err = h.db.FacetValuesFor(ctx, q, r)
		}
	}
	if err != nil {
		return errorResult("Facet lookup failed: %s", err), nil, nil
	}
	if resps == nil {
		resps = []facet.Response{}
	}
	return jsonResult(resps), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *FacetsHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "facet_values",
		Description: "Count the distinct values of facet fields over the documents matching a query, most frequent first",
	}
}

// RegisterFacetsTool registers the facet values tool with an MCP server.
func RegisterFacetsTool(server *mcp.Server, db *fleadb.DB, max int) {
	handler := NewFacetsHandler(db, max)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
