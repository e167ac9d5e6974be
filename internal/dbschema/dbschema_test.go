package dbschema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
)

func TestLookup(t *testing.T) {
	s, err := Load("testdata/schema.json")
	require.NoError(t, err)

	tests := []struct {
		table string
		field string
		want  Descriptor
	}{
		{"users", "personal.lastName", Descriptor{FullText: true, GIN: true}},
		{"users", "username", Descriptor{GIN: true}},
		{"users", "barcode", Descriptor{Other: true}},
		{"users", "proxy.age", Descriptor{Other: true}},
		{"USERS", "barcode", Descriptor{Other: true}},
		{"users", "unknown", Descriptor{}},
		{"groups", "group", Descriptor{Other: true}},
		{"missing", "group", Descriptor{}},
	}
	for _, tt := range tests {
		t.Run(tt.table+"/"+tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Lookup(tt.table, tt.field))
		})
	}
}

func TestTableAccessors(t *testing.T) {
	s, err := Load("testdata/schema.json")
	require.NoError(t, err)

	users, ok := s.Table("users")
	require.True(t, ok)
	assert.Equal(t, "id", users.PK())

	fk, ok := users.ForeignKeyTo("groups")
	require.True(t, ok)
	assert.Equal(t, "patrongroup", fk.Column())

	_, ok = users.ForeignKeyTo("loans")
	assert.False(t, ok)

	groups, ok := s.Table("groups")
	require.True(t, ok)
	assert.Equal(t, "_id", groups.PK())
}

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(`
tables:
  - tableName: items
    ginIndex:
      - fieldName: title
    foreignKeys:
      - fieldName: holdingsRecordId
        targetTable: holdings
        columnName: holdingsrecordid
`))
	require.NoError(t, err)
	assert.True(t, s.Lookup("items", "title").GIN)
	items, _ := s.Table("items")
	fk, ok := items.ForeignKeyTo("holdings")
	require.True(t, ok)
	assert.Equal(t, "holdingsrecordid", fk.Column())
}

func TestParseOrLoadInline(t *testing.T) {
	s, err := ParseOrLoad(` {"tables": [{"tableName": "t", "fullTextIndex": [{"fieldName": "a"}]}]}`)
	require.NoError(t, err)
	assert.True(t, s.Lookup("t", "a").FullText)
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":          "tables: [",
		"missing tables":    `{}`,
		"missing tableName": `{"tables": [{"ginIndex": []}]}`,
		"missing fieldName": `{"tables": [{"tableName": "t", "ginIndex": [{}]}]}`,
		"bad fk":            `{"tables": [{"tableName": "t", "foreignKeys": [{"fieldName": "x"}]}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, cqlerr.ErrSchema))
		})
	}
}

func TestNilSchema(t *testing.T) {
	var s *DBSchema
	assert.Equal(t, Descriptor{}, s.Lookup("t", "f"))
	assert.False(t, s.Lookup("t", "f").Any())
}
