package sqldsl

import "testing"

func TestExpr_SQL(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"column", Col("jsonb"), "jsonb"},
		{"literal doubles quotes", Lit("it's"), "'it''s'"},
		{"quoted keeps content", Quoted(`a''b\%`), `'a''b\%'`},
		{"raw", Raw("now()"), "now()"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"lower unaccent", Lower(Unaccent(Col("x"))), "lower(f_unaccent(x))"},
		{"cast", Cast{Expr: Col("x"), Type: "numeric"}, "(x)::numeric"},
		{"paren", Paren{Expr: Bool(true)}, "(true)"},
		{"comment", Comment{Expr: Bool(false), Text: "id == invalid UUID"}, "false /* id == invalid UUID */"},
		{"comment close sequence", Comment{Expr: Bool(false), Text: "a*/b"}, "false /* a* /b */"},
		{
			name: "json text path",
			expr: JSONPath{Column: "jsonb", Path: []string{"personal", "lastName"}, Text: true},
			want: "jsonb->'personal'->>'lastName'",
		},
		{
			name: "json path",
			expr: JSONPath{Column: "jsonb", Path: []string{"a", "b"}},
			want: "jsonb->'a'->'b'",
		},
		{
			name: "json path quoting",
			expr: JSONPath{Column: "t", Path: []string{"o'k"}, Text: true},
			want: "t->>'o''k'",
		},
		{
			name: "tsvector match",
			expr: TSMatch{
				Doc:   ToTSVector(Unaccent(Col("f"))),
				Query: ToTSQuery(Unaccent(Quoted("a:*"))),
			},
			want: "to_tsvector('simple', f_unaccent(f)) @@ to_tsquery('simple', f_unaccent('a:*'))",
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

func TestIdent(t *testing.T) {
	tests := map[string]string{
		"users":      "users",
		"_id":        "_id",
		"tbl2":       "tbl2",
		"Users":      `"Users"`,
		"2tbl":       `"2tbl"`,
		`we"ird`:     `"we""ird"`,
		"":           `""`,
		"my schema":  `"my schema"`,
		"public.tbl": `"public.tbl"`,
	}
	for in, want := range tests {
		if got := Ident(in); got != want {
			t.Errorf("Ident(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQualifiedIdent(t *testing.T) {
	tests := map[string]string{
		"users":            "users",
		"public.users":     "public.users",
		"diku_mod.Users":   `diku_mod."Users"`,
		`My Schema.we"ird`: `"My Schema"."we""ird"`,
	}
	for in, want := range tests {
		if got := QualifiedIdent(in); got != want {
			t.Errorf("QualifiedIdent(%q) = %q, want %q", in, got, want)
		}
	}
}
