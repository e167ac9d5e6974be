package cql

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenType identifies a lexical token.
type tokenType int

const (
	tokEOF tokenType = iota
	tokIllegal
	tokLParen
	tokRParen
	tokSlash
	tokCompare // = == <> < <= > >=
	tokWord
	tokQuoted
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of query"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokSlash:
		return "'/'"
	case tokCompare:
		return "comparator"
	case tokWord:
		return "word"
	case tokQuoted:
		return "quoted string"
	default:
		return "illegal character"
	}
}

type token struct {
	typ     tokenType
	literal string
	pos     Position
}

// lexer converts CQL query text into a stream of tokens.
type lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	offset       int
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readRune()
	return l
}

func (l *lexer) readRune() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.offset++
}

func (l *lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *lexer) skipWhitespace() {
	for l.ch != 0 && unicode.IsSpace(l.ch) {
		l.readRune()
	}
}

// next returns the next token.
func (l *lexer) next() token {
	l.skipWhitespace()
	pos := Position{Offset: l.offset}
	if l.ch == 0 && l.position >= len(l.input) {
		return token{typ: tokEOF, pos: pos}
	}

	switch l.ch {
	case '(':
		l.readRune()
		return token{typ: tokLParen, literal: "(", pos: pos}
	case ')':
		l.readRune()
		return token{typ: tokRParen, literal: ")", pos: pos}
	case '/':
		l.readRune()
		return token{typ: tokSlash, literal: "/", pos: pos}
	case '=':
		if l.peekRune() == '=' {
			l.readRune()
			l.readRune()
			return token{typ: tokCompare, literal: "==", pos: pos}
		}
		l.readRune()
		return token{typ: tokCompare, literal: "=", pos: pos}
	case '<':
		switch l.peekRune() {
		case '=':
			l.readRune()
			l.readRune()
			return token{typ: tokCompare, literal: "<=", pos: pos}
		case '>':
			l.readRune()
			l.readRune()
			return token{typ: tokCompare, literal: "<>", pos: pos}
		}
		l.readRune()
		return token{typ: tokCompare, literal: "<", pos: pos}
	case '>':
		if l.peekRune() == '=' {
			l.readRune()
			l.readRune()
			return token{typ: tokCompare, literal: ">=", pos: pos}
		}
		l.readRune()
		return token{typ: tokCompare, literal: ">", pos: pos}
	case '"':
		lit, ok := l.readQuoted()
		if !ok {
			return token{typ: tokIllegal, literal: "unterminated quoted string", pos: pos}
		}
		return token{typ: tokQuoted, literal: lit, pos: pos}
	}

	if l.ch == 0 {
		l.readRune()
		return token{typ: tokIllegal, literal: "NUL character", pos: pos}
	}
	return token{typ: tokWord, literal: l.readWord(), pos: pos}
}

// readQuoted consumes a double-quoted term. Backslash escapes are kept
// verbatim so the translator sees the masking syntax unchanged.
func (l *lexer) readQuoted() (string, bool) {
	var sb strings.Builder
	l.readRune() // opening quote
	for {
		switch l.ch {
		case 0:
			if l.position >= len(l.input) {
				return "", false
			}
			sb.WriteRune(l.ch)
		case '\\':
			sb.WriteRune(l.ch)
			l.readRune()
			if l.ch == 0 && l.position >= len(l.input) {
				return "", false
			}
			sb.WriteRune(l.ch)
		case '"':
			l.readRune()
			return sb.String(), true
		default:
			sb.WriteRune(l.ch)
		}
		l.readRune()
	}
}

func (l *lexer) readWord() string {
	start := l.position
	for l.ch != 0 && !isWordBoundary(l.ch) {
		l.readRune()
	}
	return l.input[start:l.position]
}

func isWordBoundary(r rune) bool {
	switch r {
	case '(', ')', '/', '=', '<', '>', '"':
		return true
	}
	return unicode.IsSpace(r)
}
