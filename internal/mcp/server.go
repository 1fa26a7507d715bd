package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/fleadb"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// DB is the database the tools operate on. Without it the server has no tools.
	DB *fleadb.DB

	// PageSize is the default number of documents returned by a search.
	PageSize int

	// MaxFacetValues is the default number of values returned per facet.
	MaxFacetValues int
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.DB != nil {
		RegisterSearchTool(s, cfg.DB, cfg.PageSize)
		RegisterFacetsTool(s, cfg.DB, cfg.MaxFacetValues)
		RegisterFieldsTool(s, cfg.DB)
		RegisterStoreTool(s, cfg.DB)
	}

	return s
}
