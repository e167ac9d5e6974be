package cql2pgjson

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
	"github.com/pthm/cql2pgjson/internal/sqlgen/sqldsl"
	"github.com/pthm/cql2pgjson/pkg/cql"
)

const (
	uuidLow  = "00000000-0000-0000-0000-000000000000"
	uuidHigh = "ffffffff-ffff-ffff-ffff-ffffffffffff"
)

// validUUID accepts only the canonical 8-4-4-4-12 hex form.
func validUUID(s string) bool {
	if len(s) != len(uuidLow) {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// id compiles a clause on the primary key. Every record has an id, so
// matching any id needs no column access. Invalid UUIDs never reach the
// SQL text.
func (tr *translation) id(n *cql.Term) (sqldsl.Expr, error) {
	if len(n.Modifiers) > 0 {
		return nil, cqlerr.Validation("CQL: id does not support modifiers: %s", n.Modifiers[0].String())
	}
	var equals bool
	switch n.Relation.Normalize() {
	case cql.Eq, cql.ExactEq:
		equals = true
	case cql.NotEq:
		equals = false
	default:
		return nil, cqlerr.Validation("CQL: Unsupported relation %s for id, only =, == and <> are supported", n.Relation)
	}

	term := n.Term
	if term == "" || term == "*" {
		return sqldsl.Bool(equals), nil
	}

	invalid := sqldsl.Comment{Expr: sqldsl.Bool(false), Text: "id == invalid UUID"}
	if !equals {
		invalid = sqldsl.Comment{Expr: sqldsl.Bool(true), Text: "id <> invalid UUID"}
	}
	pk := sqldsl.Col(tr.pkColumn())

	if !strings.HasSuffix(term, "*") {
		if strings.Contains(term, "*") {
			return nil, cqlerr.Validation("CQL: only right truncation supported for id: %s", term)
		}
		if !validUUID(term) {
			return invalid, nil
		}
		if equals {
			return sqldsl.Eq{Left: pk, Right: sqldsl.Lit(term)}, nil
		}
		return sqldsl.Ne{Left: pk, Right: sqldsl.Lit(term)}, nil
	}

	prefix := strings.TrimSuffix(term, "*")
	if strings.Contains(prefix, "*") {
		return nil, cqlerr.Validation("CQL: only right truncation supported for id: %s", term)
	}
	if len(prefix) > len(uuidLow) {
		return invalid, nil
	}
	lo := prefix + uuidLow[len(prefix):]
	hi := prefix + uuidHigh[len(prefix):]
	if !validUUID(lo) || !validUUID(hi) {
		return invalid, nil
	}
	if equals {
		return sqldsl.Paren{Expr: sqldsl.And(
			sqldsl.Gte{Left: pk, Right: sqldsl.Lit(lo)},
			sqldsl.Lte{Left: pk, Right: sqldsl.Lit(hi)},
		)}, nil
	}
	return sqldsl.Paren{Expr: sqldsl.Or(
		sqldsl.Lt{Left: pk, Right: sqldsl.Lit(lo)},
		sqldsl.Gt{Left: pk, Right: sqldsl.Lit(hi)},
	)}, nil
}
