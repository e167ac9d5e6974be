package sqldsl

import "strings"

// TextSearchConfig is the text search configuration used for every
// to_tsvector and to_tsquery call.
const TextSearchConfig = "simple"

// JSONPath navigates a jsonb column. With Text set the last step uses ->>
// and yields text; otherwise every step yields jsonb.
//
// Example:
//
//	JSONPath{Column: "jsonb", Path: []string{"personal", "lastName"}, Text: true}
//
// Renders: jsonb->'personal'->>'lastName'
type JSONPath struct {
	Column string
	Path   []string
	Text   bool
}

// SQL renders the path expression.
func (j JSONPath) SQL() string {
	var sb strings.Builder
	sb.WriteString(j.Column)
	for i, seg := range j.Path {
		if j.Text && i == len(j.Path)-1 {
			sb.WriteString("->>")
		} else {
			sb.WriteString("->")
		}
		sb.WriteString(Lit(seg).SQL())
	}
	return sb.String()
}

// ToTSVector renders to_tsvector('simple', doc).
func ToTSVector(doc Expr) Func {
	return Func{Name: "to_tsvector", Args: []Expr{Lit(TextSearchConfig), doc}}
}

// ToTSQuery renders to_tsquery('simple', query).
func ToTSQuery(query Expr) Func {
	return Func{Name: "to_tsquery", Args: []Expr{Lit(TextSearchConfig), query}}
}

// TSMatch represents the full-text match operator (@@).
type TSMatch struct {
	Doc   Expr
	Query Expr
}

func (t TSMatch) SQL() string { return t.Doc.SQL() + " @@ " + t.Query.SQL() }
