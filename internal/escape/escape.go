// Package escape converts CQL term syntax into PostgreSQL LIKE patterns,
// POSIX regular expressions, tsquery lexemes and plain string literals.
//
// CQL masking: * matches any sequence, ? matches one character, ^ anchors at
// the start or end of the value, and a backslash makes the following
// character literal. Every function returns text ready to be placed between
// single quotes in SQL: embedded single quotes come back doubled.
package escape

import (
	"strings"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
)

// Like converts a CQL term into a LIKE pattern using backslash as the LIKE
// escape character.
func Like(s string) string {
	var like strings.Builder
	backslash := false
	for _, c := range s {
		switch c {
		case '\\':
			if backslash {
				like.WriteString(`\\`)
				backslash = false
			} else {
				backslash = true
			}
		case '%', '_':
			like.WriteByte('\\')
			like.WriteRune(c)
			backslash = false
		case '?':
			if backslash {
				like.WriteByte('?')
			} else {
				like.WriteByte('_')
			}
			backslash = false
		case '*':
			if backslash {
				like.WriteByte('*')
			} else {
				like.WriteByte('%')
			}
			backslash = false
		case '\'':
			like.WriteString("''")
			backslash = false
		default:
			like.WriteRune(c)
			backslash = false
		}
	}
	if backslash {
		// A lone trailing backslash matches itself.
		like.WriteString(`\\`)
	}
	return like.String()
}

// Regexp converts a CQL term into a POSIX regular expression.
func Regexp(s string) string {
	var re strings.Builder
	backslash := false
	for _, c := range s {
		switch c {
		case '\\':
			if backslash {
				re.WriteString(`\\`)
				backslash = false
			} else {
				backslash = true
			}
		case '.', '+', '(', ')', '{', '}', '[', ']', '$', '|':
			re.WriteByte('\\')
			re.WriteRune(c)
			backslash = false
		case '?':
			if backslash {
				re.WriteString(`\?`)
			} else {
				re.WriteByte('.')
			}
			backslash = false
		case '*':
			if backslash {
				re.WriteString(`\*`)
			} else {
				re.WriteString(".*")
			}
			backslash = false
		case '^':
			if backslash {
				re.WriteString(`\^`)
			} else {
				re.WriteString("(^|$)")
			}
			backslash = false
		case '\'':
			re.WriteString("''")
			backslash = false
		default:
			re.WriteRune(c)
			backslash = false
		}
	}
	if backslash {
		re.WriteString(`\\`)
	}
	return re.String()
}

// TSQuery converts one CQL word into a tsquery lexeme. A trailing * becomes
// the prefix match suffix :*. Masking other than right truncation fails.
// The result is empty when the word holds nothing searchable.
func TSQuery(word string) (string, error) {
	var t strings.Builder
	runes := []rune(word)
	backslash := false
	for i, c := range runes {
		if backslash {
			backslash = false
			writeLexemeRune(&t, c)
			continue
		}
		switch c {
		case '\\':
			backslash = true
		case '?':
			return "", cqlerr.Unsupported("CQL: single character mask unsupported (?)")
		case '^':
			return "", cqlerr.Unsupported("CQL: anchoring unsupported (^)")
		case '*':
			if i != len(runes)-1 {
				return "", cqlerr.Unsupported("CQL: only right truncation supported: %s", word)
			}
			if t.Len() > 0 {
				t.WriteString(":*")
			}
		default:
			writeLexemeRune(&t, c)
		}
	}
	// A trailing lone backslash is dropped.
	return t.String(), nil
}

func writeLexemeRune(t *strings.Builder, c rune) {
	switch c {
	case '&', '!', '|', '(', ')', '<', '>', '*', ':', '\\':
		t.WriteByte('\\')
		t.WriteRune(c)
	case '\'':
		// Dropped at the start of a lexeme, where '' would read as an
		// empty quoted lexeme.
		if t.Len() > 0 {
			t.WriteString("''")
		}
	default:
		t.WriteRune(c)
	}
}

// String converts a CQL term into the content of a plain string literal for
// ordinal comparison: escapes are resolved and masking characters are taken
// literally.
func String(s string) string {
	var out strings.Builder
	backslash := false
	for _, c := range s {
		if c == '\\' && !backslash {
			backslash = true
			continue
		}
		backslash = false
		if c == '\'' {
			out.WriteString("''")
			continue
		}
		out.WriteRune(c)
	}
	if backslash {
		out.WriteByte('\\')
	}
	return out.String()
}
