package main

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pthm/cql2pgjson"
	"github.com/pthm/cql2pgjson/internal/cli"
	"github.com/pthm/cql2pgjson/internal/introspect"
)

// translatorFlags are shared by every command that builds a Translator.
type translatorFlags struct {
	table        string
	fields       []string
	schema       string
	dbschema     string
	serverChoice []string
	folding      string
	maxDepth     int
	fromDB       bool
	db           string
}

func (f *translatorFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.table, "table", "t", "", "table the statement selects from")
	fs.StringSliceVarP(&f.fields, "field", "f", nil, "jsonb column name (repeatable; first is the default)")
	fs.StringVarP(&f.schema, "schema", "s", "", "JSON schema path for the default column")
	fs.StringVarP(&f.dbschema, "dbschema", "b", "", "index descriptor path or inline JSON")
	fs.StringSliceVar(&f.serverChoice, "server-choice", nil, "server choice index (repeatable)")
	fs.StringVar(&f.folding, "folding", "", "case and accent folding: database or regexp")
	fs.IntVar(&f.maxDepth, "max-subquery-depth", -1, "foreign-key sub-query nesting limit")
	fs.BoolVar(&f.fromDB, "dbschema-from-db", false, "read the index descriptor from the live database")
	fs.StringVar(&f.db, "db", "", "database URL (for --dbschema-from-db)")
}

// apply overlays set flags onto c.
func (f *translatorFlags) apply(c *cli.Config) {
	c.Table = resolveString(f.table, c.Table)
	if len(f.fields) > 0 {
		c.Fields = f.fields
	}
	if f.schema != "" {
		if len(c.Fields) > 0 {
			if c.Schemas == nil {
				c.Schemas = map[string]string{}
			}
			c.Schemas[c.Fields[0]] = f.schema
		}
		c.Schema = f.schema
	}
	c.DBSchema = resolveString(f.dbschema, c.DBSchema)
	if len(f.serverChoice) > 0 {
		c.ServerChoice = f.serverChoice
	}
	c.Folding = resolveString(f.folding, c.Folding)
	if f.maxDepth >= 0 {
		c.MaxSubQueryDepth = f.maxDepth
	}
}

// buildTranslator loads the schemas and index descriptor named by c.
func buildTranslator(ctx context.Context, c *cli.Config, f *translatorFlags, log *slog.Logger) (*cql2pgjson.Translator, error) {
	if err := c.Validate(); err != nil {
		return nil, cli.ConfigError("invalid configuration", err)
	}

	columns := make([]cql2pgjson.Column, 0, len(c.Fields))
	for _, name := range c.Fields {
		col := cql2pgjson.Column{Name: name}
		if path := c.ColumnSchema(name); path != "" {
			s, err := cql2pgjson.LoadSchema(path)
			if err != nil {
				return nil, cli.SchemaParseError("loading schema "+path, err)
			}
			col.Schema = s
		}
		columns = append(columns, col)
	}

	folding, err := cql2pgjson.ParseFolding(c.Folding)
	if err != nil {
		return nil, cli.ConfigError("invalid folding", err)
	}

	opts := []cql2pgjson.Option{
		cql2pgjson.WithTable(c.Table),
		cql2pgjson.WithServerChoiceIndexes(c.ServerChoice...),
		cql2pgjson.WithMaxSubQueryDepth(c.MaxSubQueryDepth),
		cql2pgjson.WithFolding(folding),
		cql2pgjson.WithLogger(log),
	}

	tables := make([]string, 0, len(c.TableSchemas))
	for table := range c.TableSchemas {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		path := c.TableSchemas[table]
		s, err := cql2pgjson.LoadSchema(path)
		if err != nil {
			return nil, cli.SchemaParseError("loading schema "+path, err)
		}
		opts = append(opts, cql2pgjson.WithTableSchema(table, s))
	}

	switch {
	case f != nil && f.fromDB:
		db, err := liveDBSchema(ctx, f.db, append([]string{c.Table}, tables...))
		if err != nil {
			return nil, err
		}
		opts = append(opts, cql2pgjson.WithDBSchema(db))
	case c.DBSchema != "":
		db, err := cql2pgjson.LoadDBSchema(c.DBSchema)
		if err != nil {
			return nil, cli.SchemaParseError("loading index descriptor", err)
		}
		opts = append(opts, cql2pgjson.WithDBSchema(db))
	}

	t, err := cql2pgjson.New(columns, opts...)
	if err != nil {
		return nil, cli.ConfigError("invalid configuration", err)
	}
	return t, nil
}

func liveDBSchema(ctx context.Context, flagDSN string, tables []string) (*cql2pgjson.DBSchema, error) {
	dsn, err := resolveDSN(flagDSN)
	if err != nil {
		return nil, err
	}
	cat, err := introspect.Open(ctx, dsn)
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	defer func() { _ = cat.Close() }()

	db, err := cat.DBSchema(ctx, nonEmpty(tables)...)
	if err != nil {
		return nil, cli.GeneralError("reading index catalog", err)
	}
	return db, nil
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// queryError maps a translation failure to an exit code, prefixed with its
// kind.
func queryError(err error) error {
	var te *cql2pgjson.Error
	var se *cql2pgjson.SyntaxError
	switch {
	case errors.As(err, &se):
		return cli.QueryError("query validation error", se)
	case errors.As(err, &te):
		switch {
		case cql2pgjson.IsConfigErr(err):
			return cli.ConfigError(te.Kind.String(), err)
		case cql2pgjson.IsSchemaErr(err):
			return cli.SchemaParseError(te.Kind.String(), err)
		default:
			return cli.QueryError(te.Kind.String(), err)
		}
	default:
		return cli.GeneralError("translating", err)
	}
}
