package expression

import (
	"strconv"
	"strings"

	"github.com/sha1n/flea-db/internal/dberrors"
	"github.com/sha1n/flea-db/internal/jsonnode"
)

type visitFunc func(name string, n *jsonnode.Node)

// Project returns the values of doc selected by the expression. A
// multivalued expression always yields an array, possibly empty. Otherwise
// the single selected value is returned, or nil when nothing matches.
func (e *Expression) Project(doc *jsonnode.Node) (*jsonnode.Node, error) {
	var matches []*jsonnode.Node
	err := walk(doc, "", e.tokens, func(name string, n *jsonnode.Node) {
		if name == e.text {
			matches = append(matches, n)
		}
	})
	if err != nil {
		return nil, err
	}

	if e.multivalued {
		return jsonnode.NewArray(matches...), nil
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	return nil, dberrors.New(dberrors.KindInvariant, "expression %q has no wildcard but matched %d values", e.text, len(matches))
}

// walk visits n with the remaining tokens. Wildcard steps take two
// branches, one under the wildcard name and one under the concrete name;
// tokens is never mutated so branches cannot interfere.
func walk(n *jsonnode.Node, name string, tokens []Token, fn visitFunc) error {
	if len(tokens) > 0 && tokens[0] == Root {
		name = Root
		tokens = tokens[1:]
	}
	if n.Kind() == jsonnode.Null {
		return nil
	}
	if len(tokens) == 0 {
		fn(name, n)
		return nil
	}

	tok, rest := tokens[0], tokens[1:]
	switch n.Kind() {
	case jsonnode.Array:
		if !tok.IsBracket() {
			return dberrors.Traversal("node %q is an array, step %q must use brackets", name, tok)
		}
		switch inner := tok.Inner(); inner {
		case "#":
			for i, el := range n.Elems() {
				if err := walk(el, name+"[#]", rest, fn); err != nil {
					return err
				}
				if err := walk(el, name+"["+strconv.Itoa(i)+"]", rest, fn); err != nil {
					return err
				}
			}
		case "$":
			if n.Len() > 0 {
				return walk(n.Elem(n.Len()-1), name+"[$]", rest, fn)
			}
		default:
			i, err := arrayIndex(name, inner)
			if err != nil {
				return err
			}
			if el := n.Elem(i); el != nil {
				return walk(el, name+string(tok), rest, fn)
			}
		}
	case jsonnode.Object:
		if !tok.IsBracket() {
			if v, ok := n.Get(string(tok)); ok {
				return walk(v, join(name, tok), rest, fn)
			}
			return nil
		}
		inner := tok.Inner()
		if inner == "*" {
			for _, k := range n.Keys() {
				v, _ := n.Get(k)
				if err := walk(v, name+"[*]", rest, fn); err != nil {
					return err
				}
				if err := walk(v, name+`["`+k+`"]`, rest, fn); err != nil {
					return err
				}
			}
			return nil
		}
		key, ok := unquote(inner)
		if !ok {
			return dberrors.Traversal("node %q is an object, step %q must be a quoted key or '*'", name, tok)
		}
		if v, ok := n.Get(key); ok {
			return walk(v, name+string(tok), rest, fn)
		}
	default:
		return dberrors.Traversal("path continues past leaf %q with step %q", name, tok)
	}
	return nil
}

func arrayIndex(name, inner string) (int, error) {
	i, err := strconv.Atoi(inner)
	if err != nil || i < 0 {
		return 0, dberrors.Traversal("array step %q on %q is not a non-negative integer, '$' or '#'", inner, name)
	}
	return i, nil
}

func join(name string, tok Token) string {
	if name == "" {
		return string(tok)
	}
	return name + "." + string(tok)
}

func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return "", false
	}
	return strings.TrimSuffix(s[1:], string(q)), true
}
