// Package cqlerr defines the error taxonomy shared by the translator and its
// supporting packages. The root package re-exports these types.
package cqlerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a translation failure.
type Kind int

const (
	// KindConfig is an invalid translator configuration (column names,
	// server choice indexes).
	KindConfig Kind = iota
	// KindSchema is a malformed JSON schema or index descriptor document.
	KindSchema
	// KindValidation is a query that cannot be translated against the
	// configured fields.
	KindValidation
	// KindAmbiguousField is a validation failure where an abbreviated field
	// name matches more than one schema path.
	KindAmbiguousField
	// KindUnsupported is a validation failure for a recognized CQL construct
	// that is not implemented.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindSchema:
		return "schema error"
	case KindValidation:
		return "query validation error"
	case KindAmbiguousField:
		return "ambiguous field error"
	case KindUnsupported:
		return "unsupported feature error"
	default:
		return "unknown error"
	}
}

// Sentinel errors matched by errors.Is against any *Error of the same kind.
// ErrValidation also matches the ambiguous field and unsupported feature
// kinds, which are validation subtypes.
var (
	ErrConfig         = errors.New("cql2pgjson: invalid configuration")
	ErrSchema         = errors.New("cql2pgjson: invalid schema")
	ErrValidation     = errors.New("cql2pgjson: query validation failed")
	ErrAmbiguousField = errors.New("cql2pgjson: ambiguous field name")
	ErrUnsupported    = errors.New("cql2pgjson: unsupported CQL feature")
)

// Error is a typed translation failure.
type Error struct {
	Kind Kind
	Msg  string

	// Candidates lists the full schema paths an ambiguous field name matched,
	// in schema walk order. Empty for other kinds.
	Candidates []string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfig:
		return e.Kind == KindConfig
	case ErrSchema:
		return e.Kind == KindSchema
	case ErrValidation:
		return e.Kind == KindValidation || e.Kind == KindAmbiguousField || e.Kind == KindUnsupported
	case ErrAmbiguousField:
		return e.Kind == KindAmbiguousField
	case ErrUnsupported:
		return e.Kind == KindUnsupported
	}
	return false
}

// Config returns a configuration error.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// Schema returns a schema error.
func Schema(format string, args ...any) *Error {
	return &Error{Kind: KindSchema, Msg: fmt.Sprintf(format, args...)}
}

// Validation returns a query validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Unsupported returns an unsupported feature error. The message must name
// the offending construct.
func Unsupported(format string, args ...any) *Error {
	return &Error{Kind: KindUnsupported, Msg: fmt.Sprintf(format, args...)}
}

// Ambiguous returns an ambiguous field error listing every candidate path.
func Ambiguous(field string, candidates []string) *Error {
	return &Error{
		Kind:       KindAmbiguousField,
		Msg:        fmt.Sprintf("ambiguous field name %q matches %s", field, strings.Join(candidates, ", ")),
		Candidates: candidates,
	}
}

// KindOf returns the kind of err if it is or wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
