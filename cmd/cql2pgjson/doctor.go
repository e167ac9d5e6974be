package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/cql2pgjson"
	"github.com/pthm/cql2pgjson/internal/cli"
	"github.com/pthm/cql2pgjson/internal/doctor"
	"github.com/pthm/cql2pgjson/internal/introspect"
)

var (
	doctorDB       string
	doctorDBSchema string
	doctorTables   []string
	doctorField    string
	doctorVerbose  bool
	doctorDump     bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check live indexes against the index descriptor",
	Long: `Compare the declared index descriptor with the indexes present in the
database. Declared indexes that are missing fail, live JSON indexes that are
not declared warn, and a missing f_unaccent function fails.`,
	Example: `  # Run health checks
  cql2pgjson doctor --db postgres://localhost/mydb -b dbschema.json

  # Print the descriptor rebuilt from the live catalog
  cql2pgjson doctor --db postgres://localhost/mydb --dump -T users -T groups`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(doctorDB)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cat, err := introspect.Open(ctx, dsn)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = cat.Close() }()

		tables := doctorTables
		if len(tables) == 0 {
			tables = configTables(cfg)
		}

		if doctorDump {
			return dumpDBSchema(ctx, cmd, cat, tables)
		}

		var declared *cql2pgjson.DBSchema
		if path := resolveString(doctorDBSchema, cfg.DBSchema); path != "" {
			declared, err = cql2pgjson.LoadDBSchema(path)
			if err != nil {
				return cli.SchemaParseError("loading index descriptor", err)
			}
		}

		column := resolveString(doctorField, firstOf(cfg.Fields), "jsonb")
		opts := []doctor.Option{doctor.WithColumn(column)}
		if len(tables) > 0 {
			opts = append(opts, doctor.WithTables(tables...))
		}

		if !quiet {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "cql2pgjson doctor - Index Check")
		}

		report, err := doctor.New(cat, declared, opts...).Run(ctx)
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}
		report.Print(cmd.OutOrStdout(), resolveBool(doctorVerbose, cfg.Doctor.Verbose))

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL")
	f.StringVarP(&doctorDBSchema, "dbschema", "b", "", "index descriptor path or inline JSON")
	f.StringSliceVarP(&doctorTables, "table", "T", nil, "table to check (repeatable; default from config)")
	f.StringVarP(&doctorField, "field", "f", "", "jsonb column name used in fix hints")
	f.BoolVar(&doctorVerbose, "details", false, "show check details")
	f.BoolVar(&doctorDump, "dump", false, "print the descriptor rebuilt from the live catalog and exit")
}

// configTables lists the base table and every table with a schema.
func configTables(c *cli.Config) []string {
	var tables []string
	if c.Table != "" {
		tables = append(tables, c.Table)
	}
	var others []string
	for t := range c.TableSchemas {
		if t != c.Table {
			others = append(others, t)
		}
	}
	sort.Strings(others)
	return append(tables, others...)
}

func dumpDBSchema(ctx context.Context, cmd *cobra.Command, cat *introspect.Catalog, tables []string) error {
	db, err := cat.DBSchema(ctx, tables...)
	if err != nil {
		return cli.GeneralError("reading index catalog", err)
	}
	out, err := yaml.Marshal(db)
	if err != nil {
		return err
	}
	_, _ = cmd.OutOrStdout().Write(out)
	return nil
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
