package doctor

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/cql2pgjson/internal/dbschema"
	"github.com/pthm/cql2pgjson/internal/introspect"
)

func init() {
	color.NoColor = true
}

type fakeCatalog struct {
	indexes  []introspect.Index
	unaccent bool
	err      error
}

func (f *fakeCatalog) Indexes(_ context.Context, _ ...string) ([]introspect.Index, error) {
	return f.indexes, f.err
}

func (f *fakeCatalog) FunctionExists(_ context.Context, _ string) (bool, error) {
	return f.unaccent, nil
}

const declaredJSON = `{
  "tables": [{
    "tableName": "users",
    "fullTextIndex": [{"fieldName": "personal.lastName"}],
    "ginIndex": [{"fieldName": "username"}],
    "uniqueIndex": [{"fieldName": "barcode"}]
  }]
}`

func declared(t *testing.T) *dbschema.DBSchema {
	t.Helper()
	s, err := dbschema.Parse([]byte(declaredJSON))
	require.NoError(t, err)
	return s
}

var (
	ftLastName = introspect.Index{Table: "users", Name: "users_lastname_ft",
		Def: `CREATE INDEX users_lastname_ft ON public.users USING gin (to_tsvector('simple'::regconfig, f_unaccent(((jsonb -> 'personal'::text) ->> 'lastName'::text))))`}
	ginUsername = introspect.Index{Table: "users", Name: "users_username_gin",
		Def: `CREATE INDEX users_username_gin ON public.users USING gin (lower(f_unaccent((jsonb ->> 'username'::text))) gin_trgm_ops)`}
	uniqueBarcode = introspect.Index{Table: "users", Name: "users_barcode_idx",
		Def: `CREATE UNIQUE INDEX users_barcode_idx ON public.users USING btree (lower(f_unaccent((jsonb ->> 'barcode'::text))))`}
	btreeEmail = introspect.Index{Table: "users", Name: "users_email_idx",
		Def: `CREATE INDEX users_email_idx ON public.users USING btree ((jsonb ->> 'email'::text))`}
	pkey = introspect.Index{Table: "users", Name: "users_pkey",
		Def: `CREATE UNIQUE INDEX users_pkey ON public.users USING btree (id)`}
)

func find(r *Report, name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

func TestRunAllPresent(t *testing.T) {
	cat := &fakeCatalog{unaccent: true, indexes: []introspect.Index{ftLastName, ginUsername, uniqueBarcode, pkey}}
	report, err := New(cat, declared(t)).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.HasErrors())
	assert.Equal(t, 0, report.Warnings)
	assert.Equal(t, 2, report.Passed)

	c, ok := find(report, "declared")
	require.True(t, ok)
	assert.Equal(t, "3 declared indexes present", c.Message)
}

func TestRunMissingAndUndeclared(t *testing.T) {
	cat := &fakeCatalog{unaccent: false, indexes: []introspect.Index{ftLastName, btreeEmail}}
	report, err := New(cat, declared(t)).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.HasErrors())
	assert.Equal(t, 3, report.Errors)
	assert.Equal(t, 1, report.Warnings)

	fn, ok := find(report, "f_unaccent")
	require.True(t, ok)
	assert.Equal(t, StatusFail, fn.Status)

	gin, ok := find(report, "ginIndex:username")
	require.True(t, ok)
	assert.Equal(t, StatusFail, gin.Status)
	assert.Equal(t,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm; CREATE INDEX ON "users" USING gin (lower(f_unaccent(jsonb->>'username')) gin_trgm_ops);`,
		gin.FixHint)

	uniq, ok := find(report, "index:barcode")
	require.True(t, ok)
	assert.Equal(t, `CREATE UNIQUE INDEX ON "users" ((lower(f_unaccent(jsonb->>'barcode'))));`, uniq.FixHint)

	extra, ok := find(report, "index:email")
	require.True(t, ok)
	assert.Equal(t, StatusWarn, extra.Status)
	assert.Equal(t, "Index users_email_idx", extra.Details)
}

func TestRunWithoutDescriptor(t *testing.T) {
	cat := &fakeCatalog{unaccent: true, indexes: []introspect.Index{btreeEmail}}
	report, err := New(cat, nil, WithTables("users", "groups")).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.HasErrors())
	assert.Equal(t, 1, report.Warnings)

	none, ok := find(report, "none")
	require.True(t, ok)
	assert.Equal(t, "Indexes: groups", none.Category)
}

func TestFullTextFixHint(t *testing.T) {
	cat := &fakeCatalog{unaccent: true}
	report, err := New(cat, declared(t), WithColumn("data")).Run(context.Background())
	require.NoError(t, err)

	ft, ok := find(report, "fullTextIndex:personal.lastName")
	require.True(t, ok)
	assert.Equal(t,
		`CREATE INDEX ON "users" USING gin (to_tsvector('simple', f_unaccent(data->'personal'->>'lastName')));`,
		ft.FixHint)
}

func TestRunCatalogError(t *testing.T) {
	cat := &fakeCatalog{unaccent: true, err: errors.New("boom")}
	_, err := New(cat, declared(t)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking indexes")
}

func TestRunAgainstCatalog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM "pg_proc"`).
		WithArgs("f_unaccent").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM "pg_indexes"`).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"tablename", "indexname", "indexdef"}).
			AddRow(ftLastName.Table, ftLastName.Name, ftLastName.Def).
			AddRow(ginUsername.Table, ginUsername.Name, ginUsername.Def).
			AddRow(uniqueBarcode.Table, uniqueBarcode.Name, uniqueBarcode.Def))

	cat := introspect.New(sqlx.NewDb(db, "postgres"))
	report, err := New(cat, declared(t)).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, report.HasErrors())
}

func TestReportPrint(t *testing.T) {
	r := &Report{}
	r.AddCheck(CheckResult{Category: "Functions", Name: "a", Status: StatusPass, Message: "ok", Details: "hidden"})
	r.AddCheck(CheckResult{Category: "Indexes: users", Name: "b", Status: StatusFail, Message: "missing", FixHint: "create it"})

	var buf bytes.Buffer
	r.Print(&buf, false)
	out := buf.String()
	assert.Contains(t, out, "\nFunctions\n  ✓ ok\n")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "  ✗ missing\n      Fix: create it\n")
	assert.Contains(t, out, "Summary: 1 passed, 0 warnings, 1 errors")

	buf.Reset()
	r.Print(&buf, true)
	assert.Contains(t, buf.String(), "      hidden\n")
}
