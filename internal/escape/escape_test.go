package escape

import (
	"errors"
	"strings"
	"testing"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
)

func TestLike(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"", ""},
		{"abc", "abc"},
		{"a*b?c", "a%b_c"},
		{"100%_x", `100\%\_x`},
		{`a\*b\?`, "a*b?"},
		{"O'Brien", "O''Brien"},
		{`a\\b`, `a\\b`},
		{`a\`, `a\\`},
		{`\x`, "x"},
		{"Müller*", "Müller%"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Like(tt.input); got != tt.expect {
				t.Errorf("Like(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestRegexp(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"", ""},
		{"a.b", `a\.b`},
		{"a*b?", "a.*b."},
		{"^abc^", "(^|$)abc(^|$)"},
		{`\^\*\?`, `\^\*\?`},
		{"(x)[y]{z}$+|", `\(x\)\[y\]\{z\}\$\+\|`},
		{"it's", "it''s"},
		{`a\`, `a\\`},
		{`a\\`, `a\\`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Regexp(tt.input); got != tt.expect {
				t.Errorf("Regexp(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestTSQuery(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"foo", "foo"},
		{"foo*", "foo:*"},
		{`a\*`, `a\*`},
		{"a&b", `a\&b`},
		{"x:y", `x\:y`},
		{"(a|b)!", `\(a\|b\)\!`},
		{"<x>", `\<x\>`},
		{"O'Brien", "O''Brien"},
		{"'quoted", "quoted"},
		{`foo\`, "foo"},
		{`\?`, "?"},
		{`\\`, `\\`},
		{"*", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := TSQuery(tt.input)
			if err != nil {
				t.Fatalf("TSQuery(%q) error: %v", tt.input, err)
			}
			if got != tt.expect {
				t.Errorf("TSQuery(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestTSQueryErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"f?o", "single character mask"},
		{"^foo", "anchoring"},
		{"foo^", "anchoring"},
		{"fo*o", "only right truncation"},
		{"*foo", "only right truncation"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := TSQuery(tt.input)
			if err == nil {
				t.Fatalf("TSQuery(%q) expected error", tt.input)
			}
			if !errors.Is(err, cqlerr.ErrUnsupported) {
				t.Errorf("TSQuery(%q) error %v is not unsupported", tt.input, err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("TSQuery(%q) error %q does not mention %q", tt.input, err, tt.msg)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"O'Brien", "O''Brien"},
		{`a\*b`, "a*b"},
		{"a*b", "a*b"},
		{`a\\`, `a\`},
		{`a\`, `a\`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := String(tt.input); got != tt.expect {
				t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// unquoted reports whether s contains a single quote that is not part of a
// doubled pair.
func unquoted(s string) bool {
	return strings.Contains(strings.ReplaceAll(s, "''", ""), "'")
}

func TestNoUnescapedQuotes(t *testing.T) {
	inputs := []string{
		"'", "''", "'''", `\'`, `\\'`, `'\`, "a'b'c", "'*", `*'`, "x' OR '1'='1",
		"'; DROP TABLE t; --", `\`, "'?'", "O'Brien*",
	}
	for _, in := range inputs {
		if out := Like(in); unquoted(out) {
			t.Errorf("Like(%q) = %q leaves a bare quote", in, out)
		}
		if out := Regexp(in); unquoted(out) {
			t.Errorf("Regexp(%q) = %q leaves a bare quote", in, out)
		}
		if out := String(in); unquoted(out) {
			t.Errorf("String(%q) = %q leaves a bare quote", in, out)
		}
		for _, word := range strings.Fields(in) {
			out, err := TSQuery(word)
			if err == nil && unquoted(out) {
				t.Errorf("TSQuery(%q) = %q leaves a bare quote", word, out)
			}
		}
	}
}

// TestLikeRoundTrip checks that unmasked terms survive LIKE escaping: undoing
// the SQL quote doubling and the LIKE backslash escapes yields the term.
func TestLikeRoundTrip(t *testing.T) {
	for _, term := range []string{"plain", "O'Brien", "100%", "snake_case", "a b c", "Ünïcödé"} {
		like := Like(term)
		sqlValue := strings.ReplaceAll(like, "''", "'")
		var sb strings.Builder
		escaped := false
		for _, c := range sqlValue {
			if c == '\\' && !escaped {
				escaped = true
				continue
			}
			escaped = false
			sb.WriteRune(c)
		}
		if sb.String() != term {
			t.Errorf("round trip of %q through %q gave %q", term, like, sb.String())
		}
	}
}
