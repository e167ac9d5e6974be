// Package fold builds POSIX bracket expressions that match a letter together
// with its case and diacritic variants. It backs the regexp folding mode used
// for databases without an f_unaccent function.
package fold

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// variants maps a lower-case base letter to every rune in the covered
// ranges that strips to it, sorted.
var variants = buildVariants()

// covered ranges: ASCII letters, Latin-1 Supplement, Latin Extended-A and B.
var ranges = [][2]rune{
	{'A', 'Z'},
	{'a', 'z'},
	{0x00C0, 0x024F},
}

func buildVariants() map[rune][]rune {
	m := make(map[rune][]rune)
	for _, rg := range ranges {
		for r := rg[0]; r <= rg[1]; r++ {
			if !unicode.IsLetter(r) {
				continue
			}
			base, ok := baseLetter(r)
			if !ok {
				continue
			}
			m[base] = append(m[base], r)
		}
	}
	for k := range m {
		sort.Slice(m[k], func(i, j int) bool { return m[k][i] < m[k][j] })
	}
	return m
}

// Unaccent removes combining marks after canonical decomposition.
func Unaccent(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// baseLetter returns the lower-case letter r decomposes to, if r strips to a
// single letter.
func baseLetter(r rune) (rune, bool) {
	stripped := []rune(Unaccent(string(r)))
	if len(stripped) != 1 || !unicode.IsLetter(stripped[0]) {
		return 0, false
	}
	return unicode.ToLower(stripped[0]), true
}

// Class returns a regular expression fragment matching r and the variants
// selected by the flags. Runes without variants come back unchanged.
func Class(r rune, ignoreCase, ignoreAccents bool) string {
	candidates := []rune{r}
	if ignoreCase {
		candidates = appendUnique(candidates, unicode.ToLower(r), unicode.ToUpper(r))
	}
	if ignoreAccents {
		if base, ok := baseLetter(r); ok {
			for _, v := range variants[base] {
				if ignoreCase || sameCase(v, r) {
					candidates = appendUnique(candidates, v)
				}
			}
		}
	}
	if len(candidates) == 1 {
		return string(r)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return "[" + string(candidates) + "]"
}

func sameCase(a, b rune) bool {
	return unicode.IsUpper(a) == unicode.IsUpper(b)
}

func appendUnique(list []rune, rs ...rune) []rune {
	for _, r := range rs {
		found := false
		for _, have := range list {
			if have == r {
				found = true
				break
			}
		}
		if !found {
			list = append(list, r)
		}
	}
	return list
}

// Expand rewrites the letters of a regular expression produced by
// escape.Regexp into variant classes. Backslash escapes are copied as is.
func Expand(re string, ignoreCase, ignoreAccents bool) string {
	if !ignoreCase && !ignoreAccents {
		return re
	}
	var sb strings.Builder
	escaped := false
	for _, c := range re {
		switch {
		case escaped:
			sb.WriteRune(c)
			escaped = false
		case c == '\\':
			sb.WriteRune(c)
			escaped = true
		case unicode.IsLetter(c):
			sb.WriteString(Class(c, ignoreCase, ignoreAccents))
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
