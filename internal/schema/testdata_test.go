package schema

import "testing"

// nestedMapSchema declares a map of objects holding a boolean map facet.
const nestedMapSchema = `{
  "type": "object",
  "properties": {
    "map": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "booleanMap": {"type": "object", "additionalProperties": {"type": "boolean"}, "index": "facet"},
          "s1": {"type": "string"},
          "s2": {"type": "array", "items": {"type": "string"}, "index": "index"},
          "int1": {"type": "integer", "index": "index"}
        }
      }
    }
  }
}`

// recordSchema is the schema used by the database scenario tests.
const recordSchema = `{
  "type": "object",
  "properties": {
    "id": {"type": "string", "index": "index"},
    "categories": {"type": "array", "items": {"type": "string"}, "index": "facet"},
    "components": {
      "type": "object",
      "index": "facet",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "index": "facet"},
          "value": {"type": "integer", "index": "index"}
        }
      }
    },
    "age": {"type": "integer", "index": "index"},
    "integerSet": {"type": "array", "items": {"type": "integer"}, "index": "index"},
    "mainComponent": {"type": "object", "properties": {"name": {"type": "string"}, "value": {"type": "integer"}}}
  }
}`

func mustParse(t *testing.T, s string) *Schema {
	t.Helper()
	parsed, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return parsed
}

func mustDerive(t *testing.T, s string) *Catalog {
	t.Helper()
	c, err := Derive(mustParse(t, s))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return c
}
