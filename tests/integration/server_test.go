package integration

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/flea-db/internal/fleadb"
	mcputil "github.com/sha1n/flea-db/internal/mcp"
	"github.com/sha1n/flea-db/internal/query"
	"github.com/sha1n/flea-db/tests/integration/testkit"
)

func TestServer_Lifecycle(t *testing.T) {
	dbDir := t.TempDir()
	flags := testkit.NewTestFlags(t, &testkit.FlagOptions{
		DBDir:      dbDir,
		SchemaFile: writeSchema(t),
		Metrics:    true,
	})

	env := testkit.NewTestEnv(testkit.NewServerService(flags))
	props, err := env.Start()
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	stopped := false
	defer func() {
		if !stopped {
			_ = env.Stop()
		}
	}()
	baseURL := props["base_url"].(string)

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, &mcp.SSEClientTransport{Endpoint: baseURL + "/sse"}, nil)
	if err != nil {
		t.Fatalf("Failed to connect over SSE: %v", err)
	}

	var stored mcputil.StoreResult
	callTool(t, session, "store_documents", map[string]any{"documents": movies}, &stored)
	if len(stored.IDs) != len(movies) {
		t.Fatalf("stored %d documents, want %d", len(stored.IDs), len(movies))
	}
	_ = session.Close()

	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", resp.StatusCode)
	}
	for _, name := range []string{"fleadb_operations_total", "fleadb_generation"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}

	stopped = true
	if err := env.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}

	// The lock is released and the documents are durable
	db, err := fleadb.Open(ctx, dbDir, nil, fleadb.Options{})
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer func() { _ = db.Close() }()

	n, err := db.Count(ctx, query.All())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != len(movies) {
		t.Errorf("Count = %d, want %d", n, len(movies))
	}
}

func TestServer_InvalidSchemaFails(t *testing.T) {
	flags := testkit.NewTestFlags(t, &testkit.FlagOptions{
		SchemaFile: "/nonexistent/schema.json",
	})

	svc := testkit.NewServerService(flags)
	if _, err := testkit.NewTestEnv(svc).Start(); err == nil {
		_ = svc.Stop()
		t.Fatal("Expected start to fail with a missing schema file")
	}
}

// The health probe in Start passes without a key, the SSE endpoint does not.
func TestServer_APIKeyProtectsSSE(t *testing.T) {
	flags := testkit.NewTestFlags(t, &testkit.FlagOptions{
		AuthType:   "apikey",
		InMemory:   true,
		SchemaFile: writeSchema(t),
	})
	_ = flags.Set("auth-api-keys", "secret")

	env := testkit.NewTestEnv(testkit.NewServerService(flags))
	props, err := env.Start()
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer func() { _ = env.Stop() }()
	baseURL := props["base_url"].(string)

	resp, err := http.Get(baseURL + "/sse")
	if err != nil {
		t.Fatalf("GET /sse failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /sse without a key = %d, want 401", resp.StatusCode)
	}
}
