package sqldsl

import "testing"

func TestOperators_SQL(t *testing.T) {
	a, b := Col("a"), Col("b")
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"compare", Compare{Left: a, Op: "<=", Right: b}, "a <= b"},
		{"eq", Eq{Left: a, Right: Lit("x")}, "a='x'"},
		{"ne", Ne{Left: a, Right: Lit("x")}, "a<>'x'"},
		{"lt", Lt{Left: a, Right: b}, "a<b"},
		{"gt", Gt{Left: a, Right: b}, "a>b"},
		{"lte", Lte{Left: a, Right: b}, "a<=b"},
		{"gte", Gte{Left: a, Right: b}, "a>=b"},
		{"like", Like{Left: a, Pattern: Quoted("x%")}, "a LIKE 'x%'"},
		{"not like", Like{Left: a, Pattern: Quoted("x%"), Negate: true}, "a NOT LIKE 'x%'"},
		{"match", Match{Left: a, Pattern: Quoted("^x")}, "a ~ '^x'"},
		{"not match", Match{Left: a, Pattern: Quoted("^x"), Negate: true}, "a !~ '^x'"},
		{"and", And(a, nil, b), "a AND b"},
		{"and empty", And(), "true"},
		{"or", Or(Paren{Expr: a}, Paren{Expr: b}), "(a) OR (b)"},
		{"or empty", Or(), "false"},
		{"is not true", IsNotTrue{Expr: a}, "(a) IS NOT TRUE"},
		{
			name: "in select",
			expr: InSelect{Expr: Col("groupid"), Query: SelectStmt{
				Columns: []string{"id"},
				From:    "groups",
				Where:   Eq{Left: a, Right: Lit("x")},
			}},
			want: "groupid IN (SELECT id FROM groups WHERE a='x')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.SQL(); got != tt.want {
				t.Errorf("SQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectStmt_SQL(t *testing.T) {
	s := SelectStmt{
		From:  "users",
		Where: Bool(true),
		OrderBy: OrderBy{
			{Expr: Lower(Col("a"))},
			{Expr: Col("b"), Desc: true},
		},
	}
	want := "SELECT * FROM users WHERE true ORDER BY lower(a), b DESC"
	if got := s.SQL(); got != want {
		t.Errorf("SelectStmt.SQL() = %q, want %q", got, want)
	}

	bare := SelectStmt{Columns: []string{"id", "jsonb"}, From: "t"}
	if got := bare.SQL(); got != "SELECT id, jsonb FROM t" {
		t.Errorf("SelectStmt.SQL() = %q", got)
	}
}
