package expression

import (
	"testing"

	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/jsonnode"
	"github.com/sha1n/flea-db/internal/schema"
)

const testDocument = `{
  "map": {
    "aa": {"booleanMap": {"key1": true}, "s1": "s11Value", "s2": ["s2Value11", "s2Value21"]},
    "bb": {"booleanMap": {"key2": false}, "s1": "s12Value", "s2": ["s2Value12", "s2Value22"]}
  },
  "list": [1, 2, 3],
  "name": "flea",
  "nothing": null
}`

const testSchema = `{
  "type": "object",
  "properties": {
    "map": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "booleanMap": {"type": "object", "additionalProperties": {"type": "boolean"}, "index": "facet"},
          "s1": {"type": "string"},
          "s2": {"type": "array", "items": {"type": "string"}, "index": "index"}
        }
      }
    }
  }
}`

func mustSchema(t *testing.T, s string) *schema.Schema {
	t.Helper()
	parsed, err := schema.Parse([]byte(s))
	if err != nil {
		t.Fatalf("schema.Parse failed: %v", err)
	}
	return parsed
}

func TestProject_ValidExpressions(t *testing.T) {
	doc := jsonnode.MustParse(testDocument)
	sch := mustSchema(t, testSchema)

	for _, expr := range []string{
		"$",
		"$.map",
		"$.map[*]",
		"$.map[*].booleanMap",
		"$.map[*].booleanMap[*]",
		"$.map[*].s2[#]",
		"$.map[*].s2[0]",
		"$.map[*].s2[$]",
	} {
		t.Run(expr, func(t *testing.T) {
			e := MustCompile(expr)
			n, err := e.Project(doc)
			if err != nil {
				t.Fatalf("Project failed: %v", err)
			}
			if n == nil {
				t.Error("Project returned nil")
			}
			s, err := e.ProjectSchema(sch)
			if err != nil {
				t.Fatalf("ProjectSchema failed: %v", err)
			}
			if s == nil {
				t.Error("ProjectSchema returned nil")
			}
		})
	}
}

func TestProject_UndeclaredPath(t *testing.T) {
	e := MustCompile("$.map2")

	n, err := e.Project(jsonnode.MustParse(testDocument))
	if err != nil || n != nil {
		t.Errorf("Project = %v, %v, want nil, nil", n, err)
	}
	s, err := e.ProjectSchema(mustSchema(t, testSchema))
	if err != nil || s != nil {
		t.Errorf("ProjectSchema = %v, %v, want nil, nil", s, err)
	}
}

func TestProject_Values(t *testing.T) {
	doc := jsonnode.MustParse(testDocument)

	tests := []struct {
		expr string
		want string
	}{
		{"$.name", `"flea"`},
		{"$.map[*].s1", `["s11Value","s12Value"]`},
		{"$.map[*].s2[#]", `["s2Value11","s2Value21","s2Value12","s2Value22"]`},
		{"$.map[*].s2[0]", `["s2Value11","s2Value12"]`},
		{"$.map[*].s2[$]", `["s2Value21","s2Value22"]`},
		{`$.map["bb"].s1`, `"s12Value"`},
		{`$.map['aa'].s2[1]`, `"s2Value21"`},
		{"$.list[#]", `[1,2,3]`},
		{"$.list[$]", `3`},
		{"$.map[*].booleanMap[*]", `[true,false]`},
		{"$.missing[#]", `[]`},
		{"$.nothing[#]", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			n, err := MustCompile(tt.expr).Project(doc)
			if err != nil {
				t.Fatalf("Project failed: %v", err)
			}
			if n.String() != tt.want {
				t.Errorf("Project = %s, want %s", n, tt.want)
			}
		})
	}
}

func TestProject_Absent(t *testing.T) {
	doc := jsonnode.MustParse(testDocument)
	for _, expr := range []string{"$.nothing", "$.nothing.deeper", "$.list[7]", `$.map["zz"]`, "$.missing"} {
		n, err := MustCompile(expr).Project(doc)
		if err != nil || n != nil {
			t.Errorf("Project(%s) = %v, %v, want nil, nil", expr, n, err)
		}
	}
}

func TestProject_TraversalErrors(t *testing.T) {
	doc := jsonnode.MustParse(testDocument)

	tests := []struct {
		name string
		expr string
	}{
		{"past leaf", "$.name.first"},
		{"identifier on array", "$.list.first"},
		{"wildcard on array", "$.list[*]"},
		{"negative index", "$.list[-1]"},
		{"hash on object", "$.map[#]"},
		{"index on object", "$.map[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MustCompile(tt.expr).Project(doc)
			if !dberrors.IsKind(err, dberrors.KindTraversal) {
				t.Errorf("Project(%s) error = %v, want traversal error", tt.expr, err)
			}
		})
	}
}

func TestProject_WithoutRootToken(t *testing.T) {
	n, err := MustCompile("map.aa.s1").Project(jsonnode.MustParse(testDocument))
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if n.Str() != "s11Value" {
		t.Errorf("Project = %s, want s11Value", n)
	}
}
