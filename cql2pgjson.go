// Package cql2pgjson compiles CQL queries into PostgreSQL predicates over
// JSON documents stored in jsonb columns.
//
// # Overview
//
// A Translator is configured once with the jsonb column(s) holding the
// documents and optional metadata: a JSON schema per column that validates
// and expands abbreviated field names, an index descriptor that tells the
// translator which indexes exist, and a list of server choice indexes
// searched by queries that name no field. The result of a translation is
// the text of a WHERE clause and an optional ORDER BY clause.
//
//	schema, _ := cql2pgjson.LoadSchema("schemas/userdata.json")
//	db, _ := cql2pgjson.LoadDBSchema("schemas/schema.json")
//
//	t, err := cql2pgjson.New(
//	    []cql2pgjson.Column{{Name: "jsonb", Schema: schema}},
//	    cql2pgjson.WithTable("users"),
//	    cql2pgjson.WithDBSchema(db),
//	    cql2pgjson.WithServerChoiceIndexes("username", "personal.lastName"),
//	)
//	sel, err := t.TranslateString(`lastName = smith sortBy username/sort.descending`)
//	fmt.Println(sel.Statement("users"))
//
// # Strategies
//
// Each search clause is compiled with one of four strategies:
//
//   - Full-text search (to_tsvector @@ to_tsquery) for word relations (=, adj,
//     all, any) on string fields.
//   - Pattern matching (LIKE with lower and f_unaccent folding) for exact
//     relations (==, <>) on string fields.
//   - Ordinal comparison for <, <=, >, >= and for number fields, with a
//     numeric cast when the field is a number.
//   - Primary-key range predicates for the id index.
//
// When an index descriptor is configured, choosing a strategy whose index is
// not declared produces an Advisory. Advisories are returned with the result
// and logged; they never fail a translation.
//
// # Concurrency
//
// A Translator is immutable after New and safe for concurrent use.
package cql2pgjson

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
	"github.com/pthm/cql2pgjson/internal/dbschema"
	"github.com/pthm/cql2pgjson/internal/jsonschema"
	"github.com/pthm/cql2pgjson/internal/sqlgen/sqldsl"
	"github.com/pthm/cql2pgjson/pkg/cql"
)

// DefaultMaxSubQueryDepth bounds foreign-key sub-query nesting.
const DefaultMaxSubQueryDepth = 3

// Schema is a compiled JSON schema used to resolve field names.
type Schema = jsonschema.Schema

// DBSchema is an index descriptor document.
type DBSchema = dbschema.DBSchema

// LoadSchema reads a JSON schema (JSON or YAML) and the local documents it
// references through $ref.
func LoadSchema(path string) (*Schema, error) {
	return jsonschema.Load(path)
}

// ParseSchema compiles a self-contained JSON schema document.
func ParseSchema(data []byte) (*Schema, error) {
	return jsonschema.Parse(data)
}

// LoadDBSchema reads an index descriptor from a file, or parses it directly
// when the argument is an inline JSON document.
func LoadDBSchema(pathOrJSON string) (*DBSchema, error) {
	return dbschema.ParseOrLoad(pathOrJSON)
}

// ParseDBSchema parses an index descriptor given as JSON or YAML.
func ParseDBSchema(data []byte) (*DBSchema, error) {
	return dbschema.Parse(data)
}

// Column is a jsonb column holding documents, with an optional schema for
// its documents.
type Column struct {
	Name   string
	Schema *Schema
}

// Folding selects how case and accent insensitive matching is expressed.
type Folding int

const (
	// FoldDatabase uses lower() and the f_unaccent() database function.
	FoldDatabase Folding = iota
	// FoldRegexp expands letters into character classes of their case and
	// accent variants and matches with POSIX regular expressions. It needs
	// no database-side unaccent function.
	FoldRegexp
)

func (f Folding) String() string {
	switch f {
	case FoldDatabase:
		return "database"
	case FoldRegexp:
		return "regexp"
	default:
		return "unknown"
	}
}

// ParseFolding parses "database" or "regexp". The empty string is
// FoldDatabase.
func ParseFolding(s string) (Folding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "database":
		return FoldDatabase, nil
	case "regexp":
		return FoldRegexp, nil
	default:
		return FoldDatabase, cqlerr.Config("unknown folding %q (want database or regexp)", s)
	}
}

// Translator compiles CQL query trees into SQL.
type Translator struct {
	columns      []Column
	table        string
	db           *DBSchema
	tableSchemas map[string]*Schema
	serverChoice []string
	logger       *slog.Logger
	maxDepth     int
	depth        int
	folding      Folding
}

// Option configures a Translator.
type Option func(*Translator)

// WithTable names the table the columns belong to. The name selects the
// table entry of the index descriptor and is required for foreign-key
// sub-queries.
func WithTable(name string) Option {
	return func(t *Translator) {
		t.table = name
	}
}

// WithDBSchema enables index-aware strategy advisories, primary-key column
// lookup and foreign-key sub-queries.
func WithDBSchema(db *DBSchema) Option {
	return func(t *Translator) {
		t.db = db
	}
}

// WithTableSchema registers the JSON schema of another table, used when a
// foreign-key sub-query searches that table.
func WithTableSchema(table string, schema *Schema) Option {
	return func(t *Translator) {
		if t.tableSchemas == nil {
			t.tableSchemas = make(map[string]*Schema)
		}
		t.tableSchemas[strings.ToLower(table)] = schema
	}
}

// WithServerChoiceIndexes sets the fields searched by cql.serverChoice.
func WithServerChoiceIndexes(indexes ...string) Option {
	return func(t *Translator) {
		t.serverChoice = append([]string(nil), indexes...)
	}
}

// WithLogger sets the logger receiving advisories. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = l
	}
}

// WithMaxSubQueryDepth bounds foreign-key sub-query nesting.
func WithMaxSubQueryDepth(n int) Option {
	return func(t *Translator) {
		t.maxDepth = n
	}
}

// WithFolding selects the case and accent folding implementation.
func WithFolding(f Folding) Option {
	return func(t *Translator) {
		t.folding = f
	}
}

// New creates a Translator over columns. At least one column is required;
// with several, query fields may be prefixed by a column name and default to
// the first column otherwise.
func New(columns []Column, opts ...Option) (*Translator, error) {
	t := &Translator{
		columns:  append([]Column(nil), columns...),
		maxDepth: DefaultMaxSubQueryDepth,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewWithFields is a shorthand for New with schema-less columns.
func NewWithFields(names []string, opts ...Option) (*Translator, error) {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n}
	}
	return New(cols, opts...)
}

func (t *Translator) validate() error {
	if len(t.columns) == 0 {
		return cqlerr.Config("at least one field name is required")
	}
	for _, c := range t.columns {
		if c.Name == "" || strings.TrimSpace(c.Name) != c.Name || strings.ContainsAny(c.Name, " \t\r\n'\"") {
			return cqlerr.Config("invalid field name %q", c.Name)
		}
	}
	for _, idx := range t.serverChoice {
		if strings.TrimSpace(idx) == "" {
			return cqlerr.Config("serverChoiceIndexes must not contain empty entries")
		}
		if strings.TrimSpace(idx) != idx || strings.Contains(idx, `"`) {
			return cqlerr.Config("invalid serverChoiceIndex %q", idx)
		}
		if strings.EqualFold(idx, cql.ServerChoice) {
			return cqlerr.Config("serverChoiceIndexes must not contain %s", cql.ServerChoice)
		}
	}
	if t.maxDepth < 0 {
		return cqlerr.Config("max sub-query depth must not be negative, got %d", t.maxDepth)
	}
	return nil
}

// Columns returns the configured column names.
func (t *Translator) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Table returns the configured table name.
func (t *Translator) Table() string {
	return t.table
}

// SQLSelect is the result of a translation.
type SQLSelect struct {
	// Where is the predicate to place after WHERE.
	Where string
	// OrderBy is the key list to place after ORDER BY, empty without sortBy.
	OrderBy string
	// Advisories lists strategies chosen without a supporting index.
	Advisories []Advisory
}

// Statement renders a complete select over table.
func (s *SQLSelect) Statement(table string) string {
	stmt := fmt.Sprintf("select * from %s where %s", table, s.Where)
	if s.OrderBy != "" {
		stmt += " order by " + s.OrderBy
	}
	return stmt
}

// Translate compiles a query tree.
func (t *Translator) Translate(node cql.Node) (*SQLSelect, error) {
	tr := &translation{Translator: t}
	return tr.run(node)
}

// TranslateString parses and compiles a CQL query.
func (t *Translator) TranslateString(query string) (*SQLSelect, error) {
	node, err := cql.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return t.Translate(node)
}

// pkColumn is the quoted primary key column of the table.
func (t *Translator) pkColumn() string {
	if tbl, ok := t.db.Table(t.table); ok {
		return sqldsl.Ident(tbl.PK())
	}
	return dbschema.DefaultPKColumn
}
