// Package sqldsl provides typed building blocks for the PostgreSQL predicate
// and ordering fragments emitted by the translator.
//
// # Overview
//
// Rather than concatenating SQL strings at every call site, predicates are
// assembled from small values that each render one SQL construct. Every
// type implements Expr, whose SQL method returns PostgreSQL syntax.
//
// # Expression Types
//
// Basic expressions:
//
//	Col("jsonb")                          // column reference: jsonb
//	JSONPath{Column: "jsonb", Path: []string{"name", "last"}, Text: true}
//	                                      // jsonb->'name'->>'last'
//	Lit("it's")                           // 'it''s'
//	Quoted("it''s")                       // pre-escaped literal: 'it''s'
//	Bool(true)                            // true
//	Raw("now()")                          // raw SQL (escape hatch)
//
// Functions and casts:
//
//	Lower(Unaccent(e))                    // lower(f_unaccent(e))
//	Cast{Expr: e, Type: "numeric"}        // (e)::numeric
//	ToTSVector(e), ToTSQuery(q)           // to_tsvector('simple', e)
//
// Operators:
//
//	Compare{Left: a, Op: "<=", Right: b}  // a <= b
//	Like{Left: a, Pattern: p}             // a LIKE p
//	Match{Left: a, Pattern: p}            // a ~ p
//	TSMatch{Doc: d, Query: q}             // d @@ q
//	And(a, b), Or(a, b)                   // a AND b, a OR b
//	IsNotTrue{Expr: e}                    // (e) IS NOT TRUE
//	InSelect{Expr: c, Query: s}           // c IN (SELECT ...)
//
// Ordering:
//
//	OrderBy{{Expr: e, Desc: true}}        // e DESC
package sqldsl
