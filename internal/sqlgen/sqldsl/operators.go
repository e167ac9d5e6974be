package sqldsl

import (
	"strings"
)

// Comparison operators

// Compare is a binary comparison with a dynamic operator, used when the
// operator comes from the query.
type Compare struct {
	Left  Expr
	Op    string
	Right Expr
}

func (c Compare) SQL() string { return c.Left.SQL() + " " + c.Op + " " + c.Right.SQL() }

// Eq represents an equality comparison (=).
type Eq struct {
	Left  Expr
	Right Expr
}

func (e Eq) SQL() string { return e.Left.SQL() + "=" + e.Right.SQL() }

// Ne represents a not-equal comparison (<>).
type Ne struct {
	Left  Expr
	Right Expr
}

func (n Ne) SQL() string { return n.Left.SQL() + "<>" + n.Right.SQL() }

// Lt represents a less-than comparison (<).
type Lt struct {
	Left  Expr
	Right Expr
}

func (l Lt) SQL() string { return l.Left.SQL() + "<" + l.Right.SQL() }

// Gt represents a greater-than comparison (>).
type Gt struct {
	Left  Expr
	Right Expr
}

func (g Gt) SQL() string { return g.Left.SQL() + ">" + g.Right.SQL() }

// Lte represents a less-than-or-equal comparison (<=).
type Lte struct {
	Left  Expr
	Right Expr
}

func (l Lte) SQL() string { return l.Left.SQL() + "<=" + l.Right.SQL() }

// Gte represents a greater-than-or-equal comparison (>=).
type Gte struct {
	Left  Expr
	Right Expr
}

func (g Gte) SQL() string { return g.Left.SQL() + ">=" + g.Right.SQL() }

// Pattern operators

// Like represents LIKE or NOT LIKE.
type Like struct {
	Left    Expr
	Pattern Expr
	Negate  bool
}

func (l Like) SQL() string {
	op := " LIKE "
	if l.Negate {
		op = " NOT LIKE "
	}
	return l.Left.SQL() + op + l.Pattern.SQL()
}

// Match represents a POSIX regular expression match (~ or !~).
type Match struct {
	Left    Expr
	Pattern Expr
	Negate  bool
}

func (m Match) SQL() string {
	op := " ~ "
	if m.Negate {
		op = " !~ "
	}
	return m.Left.SQL() + op + m.Pattern.SQL()
}

// Logical operators

// filterNilExprs removes nil expressions from the slice.
func filterNilExprs(exprs []Expr) []Expr {
	filtered := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// joinExprs renders expressions joined by a separator. Operands are not
// parenthesized; wrap them in Paren where precedence requires it.
func joinExprs(exprs []Expr, sep, emptyVal string) string {
	if len(exprs) == 0 {
		return emptyVal
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.SQL()
	}
	return strings.Join(parts, sep)
}

// AndExpr represents a logical AND of multiple expressions.
type AndExpr struct {
	Exprs []Expr
}

func (a AndExpr) SQL() string { return joinExprs(a.Exprs, " AND ", "true") }

// And creates an AND expression from multiple expressions.
func And(exprs ...Expr) AndExpr {
	return AndExpr{Exprs: filterNilExprs(exprs)}
}

// OrExpr represents a logical OR of multiple expressions.
type OrExpr struct {
	Exprs []Expr
}

func (o OrExpr) SQL() string { return joinExprs(o.Exprs, " OR ", "false") }

// Or creates an OR expression from multiple expressions.
func Or(exprs ...Expr) OrExpr {
	return OrExpr{Exprs: filterNilExprs(exprs)}
}

// IsNotTrue is true when the operand is false or NULL.
type IsNotTrue struct {
	Expr Expr
}

func (i IsNotTrue) SQL() string { return "(" + i.Expr.SQL() + ") IS NOT TRUE" }

// InSelect represents expr IN (subquery).
type InSelect struct {
	Expr  Expr
	Query SelectStmt
}

func (i InSelect) SQL() string { return i.Expr.SQL() + " IN (" + i.Query.SQL() + ")" }
