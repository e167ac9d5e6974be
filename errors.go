package cql2pgjson

import (
	"errors"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
	"github.com/pthm/cql2pgjson/pkg/cql"
)

// Error is the typed error returned by translation. Its Kind classifies the
// failure; ambiguous field errors also carry the candidate paths.
type Error = cqlerr.Error

// ErrorKind classifies an Error.
type ErrorKind = cqlerr.Kind

// Error kinds.
const (
	KindConfig         = cqlerr.KindConfig
	KindSchema         = cqlerr.KindSchema
	KindValidation     = cqlerr.KindValidation
	KindAmbiguousField = cqlerr.KindAmbiguousField
	KindUnsupported    = cqlerr.KindUnsupported
)

// SyntaxError is returned by TranslateString for malformed query text.
type SyntaxError = cql.SyntaxError

// Sentinel errors for the failure classes of a translation.
//
// Use the Is*Err helper functions to branch on them. Ambiguous field and
// unsupported feature errors are validation errors too.
var (
	// ErrConfig is returned by New for invalid column names or server
	// choice indexes.
	ErrConfig = cqlerr.ErrConfig

	// ErrSchema is returned when a JSON schema or index descriptor document
	// is malformed, such as an array whose items carry no type.
	ErrSchema = cqlerr.ErrSchema

	// ErrValidation is returned when a query cannot be compiled against the
	// configured fields: unknown fields, unsupported relations, bad id usage
	// or query syntax errors.
	ErrValidation = cqlerr.ErrValidation

	// ErrAmbiguousField is returned when an abbreviated field name matches
	// more than one schema path. The message lists every candidate.
	ErrAmbiguousField = cqlerr.ErrAmbiguousField

	// ErrUnsupported is returned for CQL constructs that are recognized but
	// not implemented, such as prox or masking modifiers.
	ErrUnsupported = cqlerr.ErrUnsupported
)

// IsConfigErr returns true if err is or wraps ErrConfig.
func IsConfigErr(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsSchemaErr returns true if err is or wraps ErrSchema.
func IsSchemaErr(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsValidationErr returns true if err is or wraps ErrValidation.
func IsValidationErr(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAmbiguousFieldErr returns true if err is or wraps ErrAmbiguousField.
func IsAmbiguousFieldErr(err error) bool {
	return errors.Is(err, ErrAmbiguousField)
}

// IsUnsupportedErr returns true if err is or wraps ErrUnsupported.
func IsUnsupportedErr(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsSyntaxErr returns true if err is or wraps a *SyntaxError.
func IsSyntaxErr(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}
