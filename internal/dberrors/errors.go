// Package dberrors defines the error kinds raised by the database and its
// schema, expression and query layers.
package dberrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error. None of the kinds are retryable.
type Kind string

const (
	KindSyntax              Kind = "syntax"
	KindSchema              Kind = "schema"
	KindTraversal           Kind = "traversal"
	KindUnknownField        Kind = "unknown_field"
	KindTypeMismatch        Kind = "type_mismatch"
	KindDuplicateFacet      Kind = "duplicate_facet"
	KindInvalidMultiplicity Kind = "invalid_multiplicity"
	KindPaginationRange     Kind = "pagination_range"
	KindValidation          Kind = "validation"
	KindClosed              Kind = "closed"
	KindLocked              Kind = "locked"
	KindTampered            Kind = "tampered"
	KindIncompatible        Kind = "incompatible"
	KindStaleCursor         Kind = "stale_cursor"
	KindInvariant           Kind = "invariant"
)

// Error is the error type returned by all flea-db packages.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind with an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Syntax reports a malformed path expression.
func Syntax(expr, format string, args ...any) *Error {
	return &Error{Kind: KindSyntax, Message: fmt.Sprintf(format, args...) + fmt.Sprintf(" in expression %q", expr)}
}

// Schema reports an invalid or ambiguous schema.
func Schema(format string, args ...any) *Error {
	return New(KindSchema, format, args...)
}

// Traversal reports an expression step that does not fit the node it is applied to.
func Traversal(format string, args ...any) *Error {
	return New(KindTraversal, format, args...)
}

// UnknownField reports a field that is not declared. supported lists the valid names.
func UnknownField(field string, supported []string) *Error {
	return &Error{
		Kind:    KindUnknownField,
		Field:   field,
		Message: fmt.Sprintf("field %q is not declared, supported fields are %v", field, supported),
	}
}

// TypeMismatch reports a field used with a type other than its declared one.
func TypeMismatch(field string, declared, used fmt.Stringer) *Error {
	return &Error{
		Kind:    KindTypeMismatch,
		Field:   field,
		Message: fmt.Sprintf("field %q is declared as %s, used as %s", field, declared, used),
	}
}

// IsKind reports whether err, or any error it wraps, is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
