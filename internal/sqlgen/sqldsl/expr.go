package sqldsl

import "strings"

// Expr is the interface that all SQL expression types implement.
type Expr interface {
	SQL() string
}

// Col is a bare column reference.
type Col string

// SQL renders the column.
func (c Col) SQL() string {
	return string(c)
}

// Lit represents a literal string value (auto-quoted with single quotes).
type Lit string

// SQL renders the literal with single quotes.
func (l Lit) SQL() string {
	// Escape single quotes by doubling them
	escaped := strings.ReplaceAll(string(l), "'", "''")
	return "'" + escaped + "'"
}

// Quoted is a literal whose content is already escaped for a single-quoted
// SQL string. It is wrapped in quotes without further processing.
type Quoted string

// SQL renders the literal.
func (q Quoted) SQL() string {
	return "'" + string(q) + "'"
}

// Raw is an escape hatch for arbitrary SQL expressions.
type Raw string

// SQL renders the raw SQL as-is.
func (r Raw) SQL() string {
	return string(r)
}

// Bool represents a boolean literal.
type Bool bool

// SQL renders the boolean.
func (b Bool) SQL() string {
	if b {
		return "true"
	}
	return "false"
}

// Func represents a SQL function call.
type Func struct {
	Name string
	Args []Expr
}

// SQL renders the function call.
func (f Func) SQL() string {
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		args[i] = arg.SQL()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// Lower wraps e in lower().
func Lower(e Expr) Func {
	return Func{Name: "lower", Args: []Expr{e}}
}

// UnaccentFunc is the database function that strips diacritics. It must be
// immutable so that expression indexes can use it.
const UnaccentFunc = "f_unaccent"

// Unaccent wraps e in f_unaccent().
func Unaccent(e Expr) Func {
	return Func{Name: UnaccentFunc, Args: []Expr{e}}
}

// Paren wraps an expression in parentheses.
type Paren struct {
	Expr Expr
}

// SQL renders the parenthesized expression.
func (p Paren) SQL() string {
	return "(" + p.Expr.SQL() + ")"
}

// Cast converts an expression with the :: operator. The operand is always
// parenthesized.
type Cast struct {
	Expr Expr
	Type string
}

// SQL renders the cast.
func (c Cast) SQL() string {
	return "(" + c.Expr.SQL() + ")::" + c.Type
}

// Comment appends a block comment after an expression.
type Comment struct {
	Expr Expr
	Text string
}

// SQL renders the expression followed by the comment.
func (c Comment) SQL() string {
	text := strings.ReplaceAll(c.Text, "*/", "* /")
	return c.Expr.SQL() + " /* " + text + " */"
}

// Ident quotes an identifier when it is not a plain lower-case name.
func Ident(name string) string {
	if name == "" {
		return `""`
	}
	plain := true
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			plain = false
		}
	}
	if plain {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedIdent quotes each dot-separated part of a possibly
// schema-qualified table name.
func QualifiedIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = Ident(p)
	}
	return strings.Join(parts, ".")
}
