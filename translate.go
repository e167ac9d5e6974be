package cql2pgjson

import (
	"strings"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
	"github.com/pthm/cql2pgjson/internal/dbschema"
	"github.com/pthm/cql2pgjson/internal/modifiers"
	"github.com/pthm/cql2pgjson/internal/sqlgen/sqldsl"
	"github.com/pthm/cql2pgjson/pkg/cql"
)

// translation is the state of one Translate call. The Translator itself
// stays immutable.
type translation struct {
	*Translator
	advisories []Advisory
}

func (tr *translation) run(node cql.Node) (*SQLSelect, error) {
	if node == nil {
		return nil, cqlerr.Validation("CQL: empty query")
	}
	var orderBy sqldsl.OrderBy
	if s, ok := node.(*cql.Sort); ok {
		keys, err := tr.sortKeys(s.Keys)
		if err != nil {
			return nil, err
		}
		orderBy = keys
		node = s.Subtree
	}
	where, err := tr.node(node)
	if err != nil {
		return nil, err
	}
	return &SQLSelect{
		Where:      where.SQL(),
		OrderBy:    orderBy.SQL(),
		Advisories: tr.advisories,
	}, nil
}

func (tr *translation) node(node cql.Node) (sqldsl.Expr, error) {
	switch n := node.(type) {
	case *cql.Term:
		return tr.term(n)
	case *cql.Boolean:
		return tr.boolean(n)
	case *cql.Sort:
		return nil, cqlerr.Unsupported("CQL: sortBy is only supported at the end of the query")
	case nil:
		return nil, cqlerr.Validation("CQL: empty query")
	default:
		return nil, cqlerr.Unsupported("CQL: Unsupported node type %s", n.Kind())
	}
}

func (tr *translation) boolean(n *cql.Boolean) (sqldsl.Expr, error) {
	if n.Op == cql.Prox {
		return nil, cqlerr.Unsupported("CQL: Unsupported boolean operator prox")
	}
	if len(n.Modifiers) > 0 {
		return nil, cqlerr.Unsupported("CQL: Unsupported boolean modifier %s", n.Modifiers[0].String())
	}
	left, err := tr.node(n.Left)
	if err != nil {
		return nil, err
	}
	if n.Op == cql.Or && matchesAnything(n.Right) {
		return left, nil
	}
	right, err := tr.node(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case cql.And:
		return sqldsl.And(sqldsl.Paren{Expr: left}, sqldsl.Paren{Expr: right}), nil
	case cql.Or:
		return sqldsl.Or(sqldsl.Paren{Expr: left}, sqldsl.Paren{Expr: right}), nil
	case cql.Not:
		// IS NOT TRUE keeps records where the right side is NULL, which
		// happens when the field is missing.
		return sqldsl.And(sqldsl.Paren{Expr: left}, sqldsl.Paren{Expr: sqldsl.IsNotTrue{Expr: right}}), nil
	default:
		return nil, cqlerr.Unsupported("CQL: Unsupported boolean operator %s", n.Op)
	}
}

// matchesAnything reports whether node is a bare field=* clause.
func matchesAnything(node cql.Node) bool {
	t, ok := node.(*cql.Term)
	return ok && t.Relation.Normalize() == cql.Eq && t.Term == "*"
}

func (tr *translation) term(n *cql.Term) (sqldsl.Expr, error) {
	switch {
	case strings.EqualFold(n.Index, cql.AllRecords):
		return sqldsl.Bool(true), nil
	case strings.EqualFold(n.Index, cql.ServerChoice):
		return tr.serverChoiceTerm(n)
	case n.Index == dbschema.DefaultPKColumn:
		return tr.id(n)
	}
	return tr.fieldTerm(n)
}

func (tr *translation) serverChoiceTerm(n *cql.Term) (sqldsl.Expr, error) {
	if len(tr.serverChoice) == 0 {
		return nil, cqlerr.Validation("cql.serverChoice requested, but no serverChoiceIndexes defined.")
	}
	parts := make([]sqldsl.Expr, 0, len(tr.serverChoice))
	for _, idx := range tr.serverChoice {
		expr, err := tr.term(&cql.Term{
			Index:     idx,
			Relation:  n.Relation,
			Term:      n.Term,
			Modifiers: n.Modifiers,
		})
		if err != nil {
			return nil, err
		}
		parts = append(parts, expr)
	}
	return sqldsl.Or(parts...), nil
}

func (tr *translation) fieldTerm(n *cql.Term) (sqldsl.Expr, error) {
	rel := n.Relation.Normalize()
	if !supportedRelation(rel) {
		return nil, cqlerr.Validation("CQL: Unsupported relation %s", n.Relation)
	}
	mods, err := modifiers.Resolve(n.Modifiers)
	if err != nil {
		return nil, err
	}
	if err := mods.CheckMasking(); err != nil {
		return nil, err
	}

	if expr, ok, err := tr.subQuery(n); err != nil || ok {
		return expr, err
	}

	f, err := tr.resolve(n.Index, mods)
	if err != nil {
		return nil, err
	}
	return tr.selectStrategy(f, tr.descriptor(f), mods, rel, n.Term)
}

func supportedRelation(rel cql.Comparator) bool {
	switch rel {
	case cql.Eq, cql.ExactEq, cql.NotEq,
		cql.Lt, cql.Lte, cql.Gt, cql.Gte,
		cql.Adj, cql.All, cql.Any:
		return true
	}
	return false
}

func (tr *translation) sortKeys(keys []cql.SortKey) (sqldsl.OrderBy, error) {
	order := make(sqldsl.OrderBy, 0, len(keys))
	for _, key := range keys {
		mods, err := modifiers.Resolve(key.Modifiers)
		if err != nil {
			return nil, err
		}
		desc := mods.Sort == modifiers.Descending
		if key.Index == dbschema.DefaultPKColumn {
			order = append(order, sqldsl.OrderItem{Expr: sqldsl.Col(tr.pkColumn()), Desc: desc})
			continue
		}
		f, err := tr.resolve(key.Index, mods)
		if err != nil {
			return nil, err
		}
		var expr sqldsl.Expr
		switch {
		case f.number:
			expr = f.json()
		case tr.folding == FoldRegexp:
			expr = sqldsl.Lower(f.text())
		default:
			expr = sqldsl.Lower(sqldsl.Unaccent(f.text()))
		}
		order = append(order, sqldsl.OrderItem{Expr: expr, Desc: desc})
	}
	return order, nil
}
