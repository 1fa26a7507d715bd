package expression

import (
	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/schema"
)

// ProjectSchema returns the sub-schema describing the values selected by
// the expression. Multivalued expressions yield an array schema whose items
// are the selected sub-schema. A nil result means the path is not declared.
func (e *Expression) ProjectSchema(s *schema.Schema) (*schema.Schema, error) {
	sub, err := walkSchema(s, "", e.tokens)
	if err != nil || sub == nil {
		return nil, err
	}
	if e.multivalued {
		return &schema.Schema{Type: schema.TypeArray, Items: sub}, nil
	}
	return sub, nil
}

func walkSchema(s *schema.Schema, name string, tokens []Token) (*schema.Schema, error) {
	if len(tokens) > 0 && tokens[0] == Root {
		name = Root
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return s, nil
	}
	if s == nil {
		return nil, dberrors.Traversal("no schema declared at %q for steps %v", name, tokens)
	}

	tok, rest := tokens[0], tokens[1:]
	switch kindOf(s) {
	case schema.TypeArray:
		if !tok.IsBracket() {
			return nil, dberrors.Traversal("schema %q is an array, step %q must use brackets", name, tok)
		}
		if inner := tok.Inner(); inner != "#" && inner != "$" {
			if _, err := arrayIndex(name, inner); err != nil {
				return nil, err
			}
		}
		return walkSchema(s.Items, name+string(tok), rest)
	case schema.TypeObject:
		if s.HasProperties() && s.AdditionalProperties != nil {
			return nil, dberrors.Schema("schema %q declares both properties and additionalProperties", name)
		}
		if tok.IsBracket() {
			inner := tok.Inner()
			if inner == "#" {
				return nil, dberrors.Traversal("schema %q is an object, '[#]' is array-only notation", name)
			}
			if _, quoted := unquote(inner); inner != "*" && !quoted {
				return nil, dberrors.Traversal("schema %q is an object, step %q must be a quoted key or '*'", name, tok)
			}
			if s.AdditionalProperties == nil {
				return nil, dberrors.Traversal("schema %q has no additionalProperties, bracket notation is illegal", name)
			}
			return walkSchema(s.AdditionalProperties, name+string(tok), rest)
		}
		switch {
		case s.HasProperties():
			return walkSchema(s.Properties[string(tok)], join(name, tok), rest)
		case s.AdditionalProperties != nil:
			return walkSchema(s.AdditionalProperties, join(name, tok), rest)
		}
		return walkSchema(nil, join(name, tok), rest)
	}
	return nil, dberrors.Traversal("path continues past leaf schema %q with step %q", name, tok)
}

func kindOf(s *schema.Schema) schema.Type {
	switch {
	case s.Type != "":
		return s.Type
	case s.Properties != nil || s.AdditionalProperties != nil || s.AdditionalAllowed != nil:
		return schema.TypeObject
	case s.Items != nil:
		return schema.TypeArray
	}
	return ""
}
