package cql2pgjson

import (
	"strings"

	"github.com/pthm/cql2pgjson/internal/dbschema"
	"github.com/pthm/cql2pgjson/internal/jsonschema"
	"github.com/pthm/cql2pgjson/internal/modifiers"
	"github.com/pthm/cql2pgjson/internal/sqlgen/sqldsl"
)

// field is a query index resolved to a location inside a jsonb column.
type field struct {
	column string
	path   []string
	// name is the dotted path used for index lookups and advisories.
	name   string
	number bool
}

// text selects the field as text.
func (f field) text() sqldsl.Expr {
	return sqldsl.JSONPath{Column: f.column, Path: f.path, Text: true}
}

// json selects the field as jsonb, which sorts numbers numerically.
func (f field) json() sqldsl.Expr {
	return sqldsl.JSONPath{Column: f.column, Path: f.path}
}

// column picks the column for index. With several columns an index may
// start with a column name; otherwise the first column is used.
func (t *Translator) column(index string) (Column, string) {
	if len(t.columns) > 1 {
		for _, c := range t.columns {
			if rest, ok := strings.CutPrefix(index, c.Name+"."); ok && rest != "" {
				return c, rest
			}
		}
	}
	return t.columns[0], index
}

// resolve maps index to a field, validating it against the column schema
// when there is one. An explicit /number modifier restricts the schema
// candidates to number fields; without /string or /number a schema type of
// number selects numeric comparison.
func (t *Translator) resolve(index string, mods modifiers.Effective) (field, error) {
	col, name := t.column(index)
	number := mods.TermFormat == modifiers.NumberFormat
	if col.Schema != nil {
		expected := ""
		if mods.FormatExplicit && mods.TermFormat == modifiers.NumberFormat {
			expected = jsonschema.TypeNumber
		}
		sf, err := col.Schema.ResolveTyped(name, expected)
		if err != nil {
			return field{}, err
		}
		name = sf.Path
		if !mods.FormatExplicit && sf.EffectiveType() == jsonschema.TypeNumber {
			number = true
		}
	}
	return field{
		column: col.Name,
		path:   strings.Split(name, "."),
		name:   name,
		number: number,
	}, nil
}

// known reports whether index names a field of this table, either through
// the schema or through a declared index.
func (t *Translator) known(index string) bool {
	col, name := t.column(index)
	if col.Schema != nil && col.Schema.Has(name) {
		return true
	}
	return t.db.Lookup(t.table, name).Any()
}

func (t *Translator) descriptor(f field) dbschema.Descriptor {
	return t.db.Lookup(t.table, f.name)
}
