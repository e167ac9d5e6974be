// Package doctor checks that a database carries the indexes and helper
// functions the generated queries rely on.
//
// The declared index descriptor is compared with the live pg_indexes
// catalog. Declared indexes that are missing fail, live JSON indexes that
// are not declared warn, and a missing f_unaccent function fails.
//
// Example usage:
//
//	d := doctor.New(catalog, declared, doctor.WithColumn("jsonb"))
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/lib/pq"

	"github.com/pthm/cql2pgjson/internal/dbschema"
	"github.com/pthm/cql2pgjson/internal/introspect"
	"github.com/pthm/cql2pgjson/internal/sqlgen/sqldsl"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates an issue that makes generated queries fail or
	// fall back to sequential scans.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a colored status indicator for terminal output. Color is
// dropped automatically when the output is not a terminal.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return color.GreenString("✓")
	case StatusWarn:
		return color.YellowString("⚠")
	case StatusFail:
		return color.RedString("✗")
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Functions", "Indexes: users").
	Category string

	// Name is a short identifier for the check.
	Name string

	Status  Status
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report grouped by category.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint(cat))
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Catalog is the live database view the doctor inspects.
type Catalog interface {
	Indexes(ctx context.Context, tables ...string) ([]introspect.Index, error)
	FunctionExists(ctx context.Context, name string) (bool, error)
}

// Doctor compares a declared index descriptor with a live catalog.
type Doctor struct {
	catalog  Catalog
	declared *dbschema.DBSchema
	column   string
	tables   []string
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithColumn sets the jsonb column name used in fix hints. Defaults to "jsonb".
func WithColumn(name string) Option {
	return func(d *Doctor) { d.column = name }
}

// WithTables limits the check to the named tables. Defaults to every table
// of the declared descriptor.
func WithTables(tables ...string) Option {
	return func(d *Doctor) { d.tables = tables }
}

// New creates a Doctor. declared may be nil, in which case only the live
// indexes and helper functions are reported.
func New(catalog Catalog, declared *dbschema.DBSchema, opts ...Option) *Doctor {
	d := &Doctor{catalog: catalog, declared: declared, column: "jsonb"}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.tables) == 0 && declared != nil {
		for _, t := range declared.Tables {
			d.tables = append(d.tables, t.TableName)
		}
	}
	return d
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := d.checkFunctions(ctx, report); err != nil {
		return nil, fmt.Errorf("checking functions: %w", err)
	}
	if err := d.checkIndexes(ctx, report); err != nil {
		return nil, fmt.Errorf("checking indexes: %w", err)
	}

	return report, nil
}

// checkFunctions verifies the immutable unaccent wrapper exists.
func (d *Doctor) checkFunctions(ctx context.Context, report *Report) error {
	ok, err := d.catalog.FunctionExists(ctx, sqldsl.UnaccentFunc)
	if err != nil {
		return err
	}
	if !ok {
		report.AddCheck(CheckResult{
			Category: "Functions",
			Name:     sqldsl.UnaccentFunc,
			Status:   StatusFail,
			Message:  fmt.Sprintf("Function %s is missing", sqldsl.UnaccentFunc),
			Details:  "Every accent-insensitive comparison calls it",
			FixHint: "CREATE EXTENSION IF NOT EXISTS unaccent; " +
				"CREATE FUNCTION f_unaccent(text) RETURNS text AS " +
				"$$ SELECT public.unaccent('public.unaccent', $1) $$ LANGUAGE sql IMMUTABLE PARALLEL SAFE STRICT;",
		})
		return nil
	}
	report.AddCheck(CheckResult{
		Category: "Functions",
		Name:     sqldsl.UnaccentFunc,
		Status:   StatusPass,
		Message:  fmt.Sprintf("Function %s exists", sqldsl.UnaccentFunc),
	})
	return nil
}

// declaredIndex is one entry of the descriptor flattened with its kind.
type declaredIndex struct {
	kind   introspect.Kind
	unique bool
	field  string
}

func flatten(t *dbschema.Table) []declaredIndex {
	var out []declaredIndex
	add := func(kind introspect.Kind, unique bool, idx []dbschema.Index) {
		for _, i := range idx {
			out = append(out, declaredIndex{kind: kind, unique: unique, field: i.FieldName})
		}
	}
	add(introspect.KindFullText, false, t.FullTextIndex)
	add(introspect.KindGIN, false, t.GinIndex)
	add(introspect.KindOther, false, t.Index)
	add(introspect.KindOther, true, t.UniqueIndex)
	add(introspect.KindOther, false, t.LikeIndex)
	return out
}

func (d *Doctor) checkIndexes(ctx context.Context, report *Report) error {
	rows, err := d.catalog.Indexes(ctx, d.tables...)
	if err != nil {
		return err
	}

	live := make(map[string]map[string]introspect.Kind) // table -> kind:field -> kind
	names := make(map[string]string)                    // table.kind:field -> index name
	for _, row := range rows {
		kind, field, ok := introspect.Classify(row)
		if !ok {
			continue
		}
		table := strings.ToLower(row.Table)
		if live[table] == nil {
			live[table] = make(map[string]introspect.Kind)
		}
		key := kind.String() + ":" + field
		live[table][key] = kind
		names[table+"."+key] = row.Name
	}

	tables := append([]string(nil), d.tables...)
	sort.Strings(tables)
	for _, name := range tables {
		category := "Indexes: " + name
		have := live[strings.ToLower(name)]
		seen := make(map[string]bool)

		var t *dbschema.Table
		if d.declared != nil {
			t, _ = d.declared.Table(name)
		}
		present := 0
		if t != nil {
			for _, idx := range flatten(t) {
				key := idx.kind.String() + ":" + idx.field
				seen[key] = true
				if _, ok := have[key]; ok {
					present++
					continue
				}
				report.AddCheck(CheckResult{
					Category: category,
					Name:     key,
					Status:   StatusFail,
					Message:  fmt.Sprintf("Declared %s on %s is missing", idx.kind, idx.field),
					FixHint:  d.createIndex(name, idx),
				})
			}
			if present > 0 {
				report.AddCheck(CheckResult{
					Category: category,
					Name:     "declared",
					Status:   StatusPass,
					Message:  fmt.Sprintf("%d declared indexes present", present),
				})
			}
		}

		var extra []string
		for key := range have {
			if !seen[key] {
				extra = append(extra, key)
			}
		}
		sort.Strings(extra)
		for _, key := range extra {
			kind, field, _ := strings.Cut(key, ":")
			status := StatusWarn
			message := fmt.Sprintf("Live %s on %s is not declared", kind, field)
			hint := fmt.Sprintf("Add %q to %s.%s in the index descriptor", field, name, kind)
			if t == nil {
				status = StatusPass
				message = fmt.Sprintf("Live %s on %s", kind, field)
				hint = ""
			}
			report.AddCheck(CheckResult{
				Category: category,
				Name:     key,
				Status:   status,
				Message:  message,
				Details:  "Index " + names[strings.ToLower(name)+"."+key],
				FixHint:  hint,
			})
		}
		if t == nil && len(extra) == 0 {
			report.AddCheck(CheckResult{
				Category: category,
				Name:     "none",
				Status:   StatusWarn,
				Message:  "No JSON indexes found",
				FixHint:  "Every generated predicate will scan the table",
			})
		}
	}
	return nil
}

// createIndex renders a CREATE INDEX statement matching the expressions
// the translator emits for idx.
func (d *Doctor) createIndex(table string, idx declaredIndex) string {
	text := sqldsl.JSONPath{Column: d.column, Path: strings.Split(idx.field, "."), Text: true}
	folded := sqldsl.Lower(sqldsl.Unaccent(text))
	target := pq.QuoteIdentifier(table)

	switch idx.kind {
	case introspect.KindFullText:
		return fmt.Sprintf("CREATE INDEX ON %s USING gin (%s);",
			target, sqldsl.ToTSVector(sqldsl.Unaccent(text)).SQL())
	case introspect.KindGIN:
		return fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS pg_trgm; CREATE INDEX ON %s USING gin (%s gin_trgm_ops);",
			target, folded.SQL())
	}
	stmt := "CREATE INDEX"
	if idx.unique {
		stmt = "CREATE UNIQUE INDEX"
	}
	return fmt.Sprintf("%s ON %s ((%s));", stmt, target, folded.SQL())
}
