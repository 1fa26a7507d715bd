package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/config"
	"github.com/sha1n/flea-db/internal/fleadb"
	mcputil "github.com/sha1n/flea-db/internal/mcp"
	"github.com/sha1n/flea-db/internal/metrics"
	"github.com/spf13/pflag"
)

// Server bundles the MCP server with what the HTTP transport serves next to it
type Server struct {
	MCP *mcp.Server
	// Metrics is nil when metrics are disabled
	Metrics *metrics.Metrics
}

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *Server, *config.Settings) error
	CreateServer      func(context.Context, *config.Settings) (*Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// ConfigureLogging installs the default logger - always on stderr, stdout
// carries the stdio transport and command output
func ConfigureLogging(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.SlogLevel(level)})
	slog.SetDefault(slog.New(handler))
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ConfigureLogging(settings.LogLevel)

	slog.Info("Starting flea-db MCP server", "version", version)
	config.Log(settings)

	server, cleanup, err := params.CreateServer(ctx, settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return server.MCP.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(ctx, server, settings)
}

// CreateMCPServer opens the database and creates the MCP server with its
// tools registered. The cleanup function closes the database.
func CreateMCPServer(ctx context.Context, settings *config.Settings) (*Server, func(), error) {
	var m *metrics.Metrics
	var observer fleadb.Observer
	if settings.Metrics.Enabled {
		m = metrics.New()
		observer = m
	}

	db, err := OpenDB(ctx, &settings.DB, observer)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
			return
		}
		slog.Info("Database closed", "generation", db.Generation())
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:           "flea-db",
		Version:        "1.0.0",
		DB:             db,
		PageSize:       settings.DB.PageSize,
		MaxFacetValues: settings.DB.MaxFacetValues,
	})

	return &Server{MCP: server, Metrics: m}, cleanup, nil
}
