// Package expression compiles path expressions such as "$.map[*].tags[#]"
// and evaluates them against JSON documents and JSON schemas.
package expression

import (
	"strings"

	"github.com/sha1n/flea-db/internal/dberrors"
)

// Root is the expression that selects the whole document.
const Root = "$"

// Token is one step of a compiled expression. Bracket steps keep their
// brackets, e.g. "[*]" or `["key"]`.
type Token string

// IsBracket reports whether the token is a bracket step.
func (t Token) IsBracket() bool {
	return strings.HasPrefix(string(t), "[")
}

// Inner returns the content of a bracket step, or the token itself.
func (t Token) Inner() string {
	if !t.IsBracket() {
		return string(t)
	}
	return strings.TrimSuffix(strings.TrimPrefix(string(t), "["), "]")
}

// Expression is a compiled path expression. It is immutable.
type Expression struct {
	text        string
	tokens      []Token
	multivalued bool
}

// Compile parses a path expression. The empty expression and "." select
// the root.
func Compile(text string) (*Expression, error) {
	if text == "" || text == "." {
		text = Root
	}
	raw, err := split(text)
	if err != nil {
		return nil, err
	}
	tokens, err := group(text, raw)
	if err != nil {
		return nil, err
	}
	return &Expression{
		text:        text,
		tokens:      tokens,
		multivalued: strings.Contains(text, "[*]") || strings.Contains(text, "[#]"),
	}, nil
}

// MustCompile is like Compile but panics if the expression is malformed.
func MustCompile(text string) *Expression {
	e, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the expression as it was written.
func (e *Expression) String() string {
	return e.text
}

// Tokens returns a copy of the compiled steps.
func (e *Expression) Tokens() []Token {
	return append([]Token(nil), e.tokens...)
}

// Multivalued reports whether the expression contains a "[*]" or "[#]"
// wildcard and so may select more than one value.
func (e *Expression) Multivalued() bool {
	return e.multivalued
}

// split breaks the text on '.', '[' and ']' outside quoted runs. Brackets are
// kept as separate tokens.
func split(text string) ([]string, error) {
	var (
		tokens []string
		quote  byte
		start  int
	)
	emit := func(end int) error {
		tok := strings.TrimSpace(text[start:end])
		if tok == "" {
			return dberrors.Syntax(text, "empty step")
		}
		tokens = append(tokens, tok)
		return nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"' || c == '\'':
			if quote == 0 {
				quote = c
			} else if quote == c {
				quote = 0
				if err := emit(i + 1); err != nil {
					return nil, err
				}
				start = i + 1
			}
		case quote != 0:
		case c == '[' || c == ']':
			if start != i && strings.TrimSpace(text[start:i]) != "" {
				if err := emit(i); err != nil {
					return nil, err
				}
			}
			tokens = append(tokens, string(c))
			start = i + 1
		case c == '.':
			if start != i {
				if err := emit(i); err != nil {
					return nil, err
				}
			}
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, dberrors.Syntax(text, "unterminated quote")
	}
	if start < len(text) {
		if err := emit(len(text)); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// group folds bracket tokens into single steps.
func group(text string, raw []string) ([]Token, error) {
	var (
		tokens  []Token
		inner   []string
		bracket bool
	)
	for _, tok := range raw {
		switch tok {
		case "[":
			if bracket {
				return nil, dberrors.Syntax(text, "nested '['")
			}
			bracket = true
			inner = inner[:0]
		case "]":
			if !bracket {
				return nil, dberrors.Syntax(text, "unbalanced ']'")
			}
			switch len(inner) {
			case 0:
				return nil, dberrors.Syntax(text, "empty brackets")
			case 1:
				tokens = append(tokens, Token("["+inner[0]+"]"))
			default:
				return nil, dberrors.Syntax(text, "multiple tokens %v inside brackets", inner)
			}
			bracket = false
		default:
			if bracket {
				inner = append(inner, tok)
			} else {
				tokens = append(tokens, Token(tok))
			}
		}
	}
	if bracket {
		return nil, dberrors.Syntax(text, "unbalanced '['")
	}
	return tokens, nil
}
