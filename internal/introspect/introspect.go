// Package introspect reads the live index catalog of a PostgreSQL database
// and rebuilds an index descriptor from it.
package introspect

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // postgres dialect for goqu
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/pthm/cql2pgjson/internal/dbschema"
)

// Kind classifies an index by the strategy it serves.
type Kind int

const (
	KindOther Kind = iota
	KindFullText
	KindGIN
)

func (k Kind) String() string {
	switch k {
	case KindFullText:
		return "fullTextIndex"
	case KindGIN:
		return "ginIndex"
	default:
		return "index"
	}
}

// Index is one row of pg_indexes.
type Index struct {
	Table string `db:"tablename"`
	Name  string `db:"indexname"`
	Def   string `db:"indexdef"`
}

// jsonKey matches the property names of a -> or ->> chain in an index
// definition as printed by pg_get_indexdef.
var jsonKey = regexp.MustCompile(`->>? *'((?:[^']|'')*)'(?:::text)?`)

// Classify derives the index kind and the dotted JSON field path it covers.
// ok is false for indexes that are not on a JSON property, such as the
// primary key.
func Classify(idx Index) (kind Kind, field string, ok bool) {
	matches := jsonKey.FindAllStringSubmatch(idx.Def, -1)
	if len(matches) == 0 {
		return KindOther, "", false
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = strings.ReplaceAll(m[1], "''", "'")
	}
	def := strings.ToLower(idx.Def)
	switch {
	case strings.Contains(def, "to_tsvector("):
		kind = KindFullText
	case strings.Contains(def, "using gin"):
		kind = KindGIN
	default:
		kind = KindOther
	}
	return kind, strings.Join(parts, "."), true
}

// Catalog queries catalog views.
type Catalog struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Catalog {
	return &Catalog{db: db, dialect: goqu.Dialect("postgres")}
}

// Open connects to dsn with the lib/pq driver.
func Open(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return New(db), nil
}

// Close closes the underlying handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Indexes lists the indexes of tables in the current schema, ordered by
// table and index name.
func (c *Catalog) Indexes(ctx context.Context, tables ...string) ([]Index, error) {
	ds := c.dialect.From("pg_indexes").
		Select("tablename", "indexname", "indexdef").
		Where(goqu.C("schemaname").Eq(goqu.L("current_schema()"))).
		Order(goqu.C("tablename").Asc(), goqu.C("indexname").Asc()).
		Prepared(true)
	if len(tables) > 0 {
		ds = ds.Where(goqu.C("tablename").In(tables))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building index query: %w", err)
	}
	var rows []Index
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying pg_indexes: %w", err)
	}
	return rows, nil
}

// FunctionExists reports whether a function named name is visible.
func (c *Catalog) FunctionExists(ctx context.Context, name string) (bool, error) {
	query, args, err := c.dialect.From("pg_proc").
		Select(goqu.COUNT("*")).
		Where(goqu.C("proname").Eq(name)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("building function query: %w", err)
	}
	var n int
	if err := c.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("querying pg_proc: %w", err)
	}
	return n > 0, nil
}

// DBSchema rebuilds an index descriptor for tables from the live catalog.
// Primary keys and foreign keys are not recovered.
func (c *Catalog) DBSchema(ctx context.Context, tables ...string) (*dbschema.DBSchema, error) {
	rows, err := c.Indexes(ctx, tables...)
	if err != nil {
		return nil, err
	}
	return Build(rows, tables), nil
}

// Build groups index rows into a descriptor. Every name in tables gets an
// entry even when it has no indexes.
func Build(rows []Index, tables []string) *dbschema.DBSchema {
	byTable := make(map[string]*dbschema.Table)
	var order []string
	add := func(name string) *dbschema.Table {
		if t, ok := byTable[name]; ok {
			return t
		}
		byTable[name] = &dbschema.Table{TableName: name}
		order = append(order, name)
		return byTable[name]
	}
	for _, name := range tables {
		add(name)
	}
	for _, row := range rows {
		kind, field, ok := Classify(row)
		if !ok {
			continue
		}
		t := add(row.Table)
		idx := dbschema.Index{FieldName: field}
		switch kind {
		case KindFullText:
			t.FullTextIndex = append(t.FullTextIndex, idx)
		case KindGIN:
			t.GinIndex = append(t.GinIndex, idx)
		default:
			if strings.Contains(strings.ToUpper(row.Def), "UNIQUE INDEX") {
				t.UniqueIndex = append(t.UniqueIndex, idx)
			} else {
				t.Index = append(t.Index, idx)
			}
		}
	}
	sort.Strings(order)
	s := &dbschema.DBSchema{}
	for _, name := range order {
		s.Tables = append(s.Tables, *byTable[name])
	}
	return s
}
