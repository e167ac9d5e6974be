package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/cql2pgjson"
	"github.com/pthm/cql2pgjson/internal/cli"
)

func testConfig() *cli.Config {
	return &cli.Config{
		Table:            "users",
		Fields:           []string{"jsonb"},
		Schema:           "../../testdata/userdata.json",
		TableSchemas:     map[string]string{"groups": "../../testdata/groups.json"},
		DBSchema:         "../../testdata/dbschema.json",
		MaxSubQueryDepth: 3,
		Folding:          "database",
	}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestBuildTranslator(t *testing.T) {
	tr, err := buildTranslator(context.Background(), testConfig(), nil, discard())
	require.NoError(t, err)
	assert.Equal(t, "users", tr.Table())

	var out bytes.Buffer
	require.NoError(t, translateOne(tr, `username==jo*`, &out))
	assert.Equal(t, "select * from users where lower(f_unaccent(jsonb->>'username')) LIKE lower(f_unaccent('jo%'))\n", out.String())
}

func TestBuildTranslatorErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*cli.Config)
		code   int
	}{
		{"no fields", func(c *cli.Config) { c.Fields = nil }, cli.ExitConfig},
		{"bad folding", func(c *cli.Config) { c.Folding = "icu" }, cli.ExitConfig},
		{"missing schema", func(c *cli.Config) { c.Schema = "nope.json" }, cli.ExitSchemaParse},
		{"missing table schema", func(c *cli.Config) { c.TableSchemas["groups"] = "nope.json" }, cli.ExitSchemaParse},
		{"bad descriptor", func(c *cli.Config) { c.DBSchema = `{"tables": 1}` }, cli.ExitSchemaParse},
		{"bad server choice", func(c *cli.Config) { c.ServerChoice = []string{`a"b`} }, cli.ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig()
			tt.mutate(c)
			_, err := buildTranslator(context.Background(), c, nil, discard())
			require.Error(t, err)
			assert.Equal(t, tt.code, cli.ExitCode(err))
		})
	}
}

func TestTranslatorFlagsApply(t *testing.T) {
	c := &cli.Config{Table: "users", Fields: []string{"jsonb"}, Folding: "database", MaxSubQueryDepth: 3}
	f := translatorFlags{
		table:        "items",
		schema:       "item.json",
		serverChoice: []string{"title"},
		folding:      "regexp",
		maxDepth:     -1,
	}
	f.apply(c)

	assert.Equal(t, "items", c.Table)
	assert.Equal(t, "item.json", c.ColumnSchema("jsonb"))
	assert.Equal(t, []string{"title"}, c.ServerChoice)
	assert.Equal(t, "regexp", c.Folding)
	assert.Equal(t, 3, c.MaxSubQueryDepth)
}

func TestTranslateBatch(t *testing.T) {
	tr, err := buildTranslator(context.Background(), testConfig(), nil, discard())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("# users\nusername==a\n\nusername==b\nid=*\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, translateBatch(context.Background(), tr, path, &out))
	assert.Equal(t,
		"select * from users where lower(f_unaccent(jsonb->>'username')) LIKE lower(f_unaccent('a'))\n"+
			"select * from users where lower(f_unaccent(jsonb->>'username')) LIKE lower(f_unaccent('b'))\n"+
			"select * from users where true\n",
		out.String())
}

func TestTranslateBatchError(t *testing.T) {
	tr, err := buildTranslator(context.Background(), testConfig(), nil, discard())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("username==a\nnosuchfield=x\n"), 0o644))

	var out bytes.Buffer
	err = translateBatch(context.Background(), tr, path, &out)
	require.Error(t, err)
	assert.Equal(t, cli.ExitQuery, cli.ExitCode(err))
	assert.Contains(t, err.Error(), "line 2")
	assert.Empty(t, out.String())
}

func TestTranslateBatchReportsFirstFailingLine(t *testing.T) {
	tr, err := buildTranslator(context.Background(), testConfig(), nil, discard())
	require.NoError(t, err)

	var sb strings.Builder
	sb.WriteString("username==a\n")
	for i := 0; i < 64; i++ {
		fmt.Fprintf(&sb, "nosuchfield%d=x\n", i)
	}
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	err = translateBatch(context.Background(), tr, path, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2:")
	assert.Contains(t, err.Error(), "nosuchfield0")
}

func TestQueryError(t *testing.T) {
	tr, err := cql2pgjson.NewWithFields([]string{"jsonb"})
	require.NoError(t, err)

	_, err = tr.TranslateString(`a=x prox b=y`)
	qe := queryError(err)
	assert.Equal(t, cli.ExitQuery, cli.ExitCode(qe))
	assert.Contains(t, qe.Error(), "unsupported feature error: ")

	_, err = tr.TranslateString(`(a=x`)
	qe = queryError(err)
	assert.Equal(t, cli.ExitQuery, cli.ExitCode(qe))
	assert.Contains(t, qe.Error(), "query validation error: CQL syntax error")
}

func TestConfigTables(t *testing.T) {
	c := &cli.Config{Table: "users", TableSchemas: map[string]string{"loans": "l.json", "groups": "g.json", "users": "u.json"}}
	assert.Equal(t, []string{"users", "groups", "loans"}, configTables(c))
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	assert.False(t, newLogger(0, false).Enabled(ctx, slog.LevelInfo))
	assert.True(t, newLogger(0, false).Enabled(ctx, slog.LevelWarn))
	assert.True(t, newLogger(1, false).Enabled(ctx, slog.LevelInfo))
	assert.True(t, newLogger(2, false).Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger(2, true).Enabled(ctx, slog.LevelWarn))
}
