package cql2pgjson

import (
	"strings"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
	"github.com/pthm/cql2pgjson/internal/dbschema"
	"github.com/pthm/cql2pgjson/internal/sqlgen/sqldsl"
	"github.com/pthm/cql2pgjson/pkg/cql"
)

// subQuery compiles otherTable.field clauses through a foreign key between
// this table and otherTable. It reports false when the index is a field of
// this table or no foreign key links the two tables.
func (tr *translation) subQuery(n *cql.Term) (sqldsl.Expr, bool, error) {
	if tr.db == nil || tr.table == "" {
		return nil, false, nil
	}
	other, sub, ok := strings.Cut(n.Index, ".")
	if !ok || sub == "" || tr.known(n.Index) {
		return nil, false, nil
	}
	target, ok := tr.db.Table(other)
	if !ok {
		return nil, false, nil
	}

	var outgoing bool
	var fk dbschema.ForeignKey
	if self, ok := tr.db.Table(tr.table); ok {
		fk, outgoing = self.ForeignKeyTo(target.TableName)
	}

	var build func(where sqldsl.Expr) sqldsl.Expr
	if outgoing {
		// this.fk -> other.pk
		build = func(where sqldsl.Expr) sqldsl.Expr {
			return sqldsl.InSelect{Expr: sqldsl.Col(sqldsl.Ident(fk.Column())), Query: sqldsl.SelectStmt{
				Columns: []string{sqldsl.Ident(target.PK())},
				From:    sqldsl.QualifiedIdent(target.TableName),
				Where:   where,
			}}
		}
	} else if back, ok := target.ForeignKeyTo(tr.table); ok {
		// other.fk -> this.pk
		build = func(where sqldsl.Expr) sqldsl.Expr {
			return sqldsl.InSelect{Expr: sqldsl.Col(tr.pkColumn()), Query: sqldsl.SelectStmt{
				Columns: []string{sqldsl.Ident(back.Column())},
				From:    sqldsl.QualifiedIdent(target.TableName),
				Where:   where,
			}}
		}
	} else {
		return nil, false, nil
	}

	if tr.depth+1 > tr.maxDepth {
		return nil, true, cqlerr.Validation("CQL: sub-query depth limit %d exceeded at %s", tr.maxDepth, n.Index)
	}

	nested := tr.nested(target.TableName)
	res, err := nested.Translate(&cql.Term{
		Index:     sub,
		Relation:  n.Relation,
		Term:      n.Term,
		Modifiers: n.Modifiers,
	})
	if err != nil {
		return nil, true, err
	}
	tr.advisories = append(tr.advisories, res.Advisories...)
	return build(sqldsl.Raw(res.Where)), true, nil
}

// nested returns a fresh translator over table, one level deeper.
func (t *Translator) nested(table string) *Translator {
	return &Translator{
		columns:      []Column{{Name: t.columns[0].Name, Schema: t.tableSchemas[strings.ToLower(table)]}},
		table:        table,
		db:           t.db,
		tableSchemas: t.tableSchemas,
		logger:       t.logger,
		maxDepth:     t.maxDepth,
		depth:        t.depth + 1,
		folding:      t.folding,
	}
}
