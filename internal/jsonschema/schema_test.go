package jsonschema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
)

func loadUsers(t *testing.T) *Schema {
	t.Helper()
	s, err := Load("testdata/users.json")
	require.NoError(t, err)
	return s
}

func TestResolve(t *testing.T) {
	s := loadUsers(t)

	tests := []struct {
		index string
		path  string
		typ   string
	}{
		{"username", "username", "string"},
		{"active", "active", "boolean"},
		{"firstName", "personal.firstName", "string"},
		{"personal.lastName", "personal.lastName", "string"},
		{"age", "proxy.age", "number"},
		{"city", "personal.address.city", "string"},
		{"address.zip", "personal.address.zip", "string"},
		{"tags", "tags", "array"},
	}
	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			f, err := s.Resolve(tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.path, f.Path)
			assert.Equal(t, tt.typ, f.Type)
		})
	}
}

func TestResolveArrayIsString(t *testing.T) {
	s := loadUsers(t)
	f, err := s.Resolve("scores")
	require.NoError(t, err)
	assert.Equal(t, "string", f.EffectiveType())
	assert.Equal(t, "number", f.ElementType)
}

func TestResolveUnknown(t *testing.T) {
	s := loadUsers(t)
	_, err := s.Resolve("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrValidation))
	assert.Contains(t, err.Error(), "field name not present in index")
}

func TestResolveAmbiguous(t *testing.T) {
	s := loadUsers(t)
	_, err := s.Resolve("lastName")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrAmbiguousField))
	assert.Contains(t, err.Error(), "personal.lastName, proxy.lastName")

	var cerr *cqlerr.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"personal.lastName", "proxy.lastName"}, cerr.Candidates)
}

func TestResolveTyped(t *testing.T) {
	s := loadUsers(t)

	f, err := s.ResolveTyped("age", "number")
	require.NoError(t, err)
	assert.Equal(t, "proxy.age", f.Path)

	f, err = s.ResolveTyped("scores", "number")
	require.NoError(t, err)
	assert.Equal(t, "scores", f.Path)

	_, err = s.ResolveTyped("username", "number")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")

	_, err = s.ResolveTyped("lastName", "string")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrAmbiguousField))

	f, err = s.ResolveTyped("firstName", "")
	require.NoError(t, err)
	assert.Equal(t, "personal.firstName", f.Path)
}

func TestSubfieldOfArrayNotResolvable(t *testing.T) {
	s := loadUsers(t)
	assert.False(t, s.Has("tags.value"))
}

func TestDeadEndReferences(t *testing.T) {
	s := loadUsers(t)
	assert.False(t, s.Has("remote"))
	assert.False(t, s.Has("missing"))
}

func TestParseItemsWithoutType(t *testing.T) {
	_, err := Parse([]byte(`{"properties": {"list": {"type": "array", "items": {}}}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrSchema))
	assert.Contains(t, err.Error(), "list")
}

func TestParseLocalDefinitions(t *testing.T) {
	s, err := Parse([]byte(`{
		"definitions": {"money": {"type": "object", "properties": {"amount": {"type": "number"}}}},
		"properties": {"price": {"$ref": "#/definitions/money"}}
	}`))
	require.NoError(t, err)
	f, err := s.Resolve("amount")
	require.NoError(t, err)
	assert.Equal(t, "price.amount", f.Path)
	assert.Equal(t, "number", f.Type)
}

func TestParseSelfReferenceTerminates(t *testing.T) {
	s, err := Parse([]byte(`{"properties": {"name": {"type": "string"}, "child": {"$ref": "#"}}}`))
	require.NoError(t, err)
	f, err := s.Resolve("child.name")
	require.NoError(t, err)
	assert.Equal(t, "child.name", f.Path)
}

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte("properties:\n  title:\n    type: string\n  count:\n    type: [integer, \"null\"]\n"))
	require.NoError(t, err)
	f, err := s.Resolve("count")
	require.NoError(t, err)
	assert.Equal(t, "number", f.Type)
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse([]byte(`[1, 2]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cqlerr.ErrSchema))
}
