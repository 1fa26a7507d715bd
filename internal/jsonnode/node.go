// Package jsonnode provides an ordered JSON value tree that distinguishes
// integer from floating point numbers.
package jsonnode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind is the kind of a JSON value.
type Kind int

const (
	Null Kind = iota
	Boolean
	Integer
	Number
	String
	Array
	Object
)

var kindNames = [...]string{"NULL", "BOOLEAN", "INTEGER", "NUMBER", "STRING", "ARRAY", "OBJECT"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// Node is a JSON value. Object keys keep their insertion order.
type Node struct {
	kind   Kind
	text   string
	b      bool
	elems  []*Node
	keys   []string
	fields map[string]*Node
}

// NewNull returns a null value.
func NewNull() *Node { return &Node{kind: Null} }

// NewBool returns a boolean value.
func NewBool(b bool) *Node { return &Node{kind: Boolean, b: b} }

// NewInt returns an integer value.
func NewInt(i int64) *Node { return &Node{kind: Integer, text: strconv.FormatInt(i, 10)} }

// NewFloat returns a floating point value.
func NewFloat(f float64) *Node {
	return &Node{kind: Number, text: strconv.FormatFloat(f, 'g', -1, 64)}
}

// NewString returns a string value.
func NewString(s string) *Node { return &Node{kind: String, text: s} }

// NewArray returns an array holding elems.
func NewArray(elems ...*Node) *Node {
	return &Node{kind: Array, elems: elems}
}

// NewObject returns an empty object.
func NewObject() *Node {
	return &Node{kind: Object, fields: map[string]*Node{}}
}

// Set adds or replaces a member of an object and returns the object.
func (n *Node) Set(key string, v *Node) *Node {
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = v
	return n
}

// Append adds an element to an array and returns the array.
func (n *Node) Append(v *Node) *Node {
	n.elems = append(n.elems, v)
	return n
}

// Kind returns the kind of the value. A nil node is Null.
func (n *Node) Kind() Kind {
	if n == nil {
		return Null
	}
	return n.kind
}

// IsScalar reports whether the value is neither an array nor an object.
func (n *Node) IsScalar() bool {
	k := n.Kind()
	return k != Array && k != Object
}

// Len returns the number of elements of an array or members of an object.
func (n *Node) Len() int {
	switch n.Kind() {
	case Array:
		return len(n.elems)
	case Object:
		return len(n.keys)
	}
	return 0
}

// Elem returns the i-th element of an array, or nil when out of range.
func (n *Node) Elem(i int) *Node {
	if n.Kind() != Array || i < 0 || i >= len(n.elems) {
		return nil
	}
	return n.elems[i]
}

// Elems returns the elements of an array.
func (n *Node) Elems() []*Node {
	if n.Kind() != Array {
		return nil
	}
	return n.elems
}

// Get returns the member of an object with the given key.
func (n *Node) Get(key string) (*Node, bool) {
	if n.Kind() != Object {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Keys returns the member names of an object in insertion order.
func (n *Node) Keys() []string {
	if n.Kind() != Object {
		return nil
	}
	return n.keys
}

// Str returns the value of a string node.
func (n *Node) Str() string {
	if n.Kind() != String {
		return ""
	}
	return n.text
}

// Bool returns the value of a boolean node.
func (n *Node) Bool() bool {
	return n.Kind() == Boolean && n.b
}

// Int64 returns the value of an integer node.
func (n *Node) Int64() (int64, error) {
	if n.Kind() != Integer {
		return 0, fmt.Errorf("value of kind %s is not an integer", n.Kind())
	}
	return strconv.ParseInt(n.text, 10, 64)
}

// Float64 returns the value of a numeric node.
func (n *Node) Float64() (float64, error) {
	switch n.Kind() {
	case Integer, Number:
		return strconv.ParseFloat(n.text, 64)
	}
	return 0, fmt.Errorf("value of kind %s is not numeric", n.Kind())
}

// Text returns the textual form of a scalar: the string itself, "true" or
// "false", or the number literal.
func (n *Node) Text() string {
	switch n.Kind() {
	case Boolean:
		return strconv.FormatBool(n.b)
	case String, Integer, Number:
		return n.text
	}
	return ""
}

// Parse parses a single JSON value.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	n, err := Decode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return n, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) *Node {
	n, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return n
}

// Decode reads the next JSON value from dec. Numbers are read as
// json.Number regardless of the decoder settings.
func Decode(dec *json.Decoder) (*Node, error) {
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (*Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				val, err := Decode(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := NewArray()
			for dec.More() {
				val, err := Decode(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return NewString(v), nil
	case json.Number:
		return number(string(v)), nil
	case bool:
		return NewBool(v), nil
	case nil:
		return NewNull(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func number(lit string) *Node {
	if !strings.ContainsAny(lit, ".eE") {
		if _, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return &Node{kind: Integer, text: lit}
		}
	}
	return &Node{kind: Number, text: lit}
}

// MarshalJSON encodes the value, keeping object key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON value into n.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func (n *Node) String() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

func (n *Node) write(buf *bytes.Buffer) error {
	switch n.Kind() {
	case Null:
		buf.WriteString("null")
	case Boolean:
		buf.WriteString(strconv.FormatBool(n.b))
	case Integer, Number:
		buf.WriteString(n.text)
	case String:
		b, err := json.Marshal(n.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, e := range n.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(b)
			buf.WriteByte(':')
			if err := n.fields[k].write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
