// Package modifiers folds CQL relation and sort modifiers into the flags the
// translator acts on.
package modifiers

import (
	"strings"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
	"github.com/pthm/cql2pgjson/pkg/cql"
)

// Sort is the sort direction.
type Sort int

const (
	Ascending Sort = iota
	Descending
)

// Case is the case sensitivity.
type Case int

const (
	IgnoreCase Case = iota
	RespectCase
)

// Accents is the diacritic sensitivity.
type Accents int

const (
	IgnoreAccents Accents = iota
	RespectAccents
)

// TermFormat controls whether terms compare as strings or numbers.
type TermFormat int

const (
	StringFormat TermFormat = iota
	NumberFormat
)

// Masking is the interpretation of * ? ^ in terms.
type Masking int

const (
	Masked Masking = iota
	Unmasked
	Substring
	Regexp
)

func (m Masking) String() string {
	switch m {
	case Masked:
		return "masked"
	case Unmasked:
		return "unmasked"
	case Substring:
		return "substring"
	case Regexp:
		return "regexp"
	default:
		return "unknown"
	}
}

// Effective holds the folded modifier flags. The zero value is the default:
// ascending, ignore case, ignore accents, string format, masked.
type Effective struct {
	Sort       Sort
	Case       Case
	Accents    Accents
	TermFormat TermFormat
	Masking    Masking

	// FormatExplicit is set when /string or /number was given. Without it
	// the term format may be inferred from a schema type.
	FormatExplicit bool
}

// IsDefault reports whether case and accent handling are both the folded
// defaults.
func (e Effective) IsDefault() bool {
	return e.Case == IgnoreCase && e.Accents == IgnoreAccents
}

// Resolve folds mods left to right; the last modifier of each kind wins.
// Unrecognized names fail with an unsupported feature error naming them.
func Resolve(mods []cql.Modifier) (Effective, error) {
	var eff Effective
	for _, m := range mods {
		if m.Relation != "" {
			return Effective{}, cqlerr.Unsupported("CQL: Unsupported modifier %s", m.String())
		}
		name := strings.ToLower(m.Name)
		switch name {
		case "sort.ascending", "ascending":
			eff.Sort = Ascending
			continue
		case "sort.descending", "descending":
			eff.Sort = Descending
			continue
		}
		name = strings.TrimPrefix(name, "sort.")
		switch name {
		case "ignorecase":
			eff.Case = IgnoreCase
		case "respectcase":
			eff.Case = RespectCase
		case "ignoreaccents":
			eff.Accents = IgnoreAccents
		case "respectaccents":
			eff.Accents = RespectAccents
		case "string":
			eff.TermFormat = StringFormat
			eff.FormatExplicit = true
		case "number":
			eff.TermFormat = NumberFormat
			eff.FormatExplicit = true
		case "masked":
			eff.Masking = Masked
		case "unmasked":
			eff.Masking = Unmasked
		case "substring":
			eff.Masking = Substring
		case "regexp":
			eff.Masking = Regexp
		default:
			return Effective{}, cqlerr.Unsupported("CQL: Unsupported modifier %s", m.Name)
		}
	}
	return eff, nil
}

// CheckMasking rejects every masking mode except the default.
func (e Effective) CheckMasking() error {
	if e.Masking != Masked {
		return cqlerr.Unsupported("CQL: %s modifier not implemented yet, only masked is supported", e.Masking)
	}
	return nil
}
