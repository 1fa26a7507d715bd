package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestFieldsHandler(t *testing.T) {
	h := NewFieldsHandler(newTestDB(t, 0))

	result, _, err := h.Handle(context.Background(), &mcp.CallToolRequest{}, FieldsArgument{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	var out []Field
	decodeResult(t, result, &out)

	want := map[string]Field{
		"$.kind": {Name: "$.kind", Type: "STRING", Facet: true},
		"$.name": {Name: "$.name", Type: "STRING"},
		"$.size": {Name: "$.size", Type: "INTEGER"},
	}
	if len(out) != len(want) {
		t.Fatalf("fields = %+v, want %d fields", out, len(want))
	}
	for _, f := range out {
		if f != want[f.Name] {
			t.Errorf("field %+v, want %+v", f, want[f.Name])
		}
	}
}
