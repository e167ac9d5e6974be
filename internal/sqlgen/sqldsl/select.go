package sqldsl

import "strings"

// SelectStmt is a single-table SELECT used for foreign-key sub-queries and
// for the statements printed by the command line tool.
type SelectStmt struct {
	Columns []string
	From    string
	Where   Expr
	OrderBy OrderBy
}

// SQL renders the statement on one line.
func (s SelectStmt) SQL() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(s.Columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(s.Columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(s.From)
	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(s.Where.SQL())
	}
	if len(s.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(s.OrderBy.SQL())
	}
	return sb.String()
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// SQL renders the key. Ascending is the SQL default and has no suffix.
func (o OrderItem) SQL() string {
	if o.Desc {
		return o.Expr.SQL() + " DESC"
	}
	return o.Expr.SQL()
}

// OrderBy is a comma-separated list of sort keys.
type OrderBy []OrderItem

// SQL renders the key list without the ORDER BY keyword.
func (o OrderBy) SQL() string {
	parts := make([]string, len(o))
	for i, item := range o {
		parts[i] = item.SQL()
	}
	return strings.Join(parts, ", ")
}
