// Package dbschema models the database index descriptor: per table, the
// indexes declared on JSON field paths, the primary-key column and the
// foreign keys to other tables.
package dbschema

import (
	_ "embed"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"sigs.k8s.io/yaml"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
)

// DefaultPKColumn is the primary-key column used when a table declares none.
const DefaultPKColumn = "id"

//go:embed metaschema.json
var metaSchema []byte

// DBSchema is the whole index descriptor document.
type DBSchema struct {
	Tables []Table `json:"tables"`
}

// Table lists the indexes and foreign keys of one table.
type Table struct {
	TableName     string       `json:"tableName"`
	PKColumnName  string       `json:"pkColumnName,omitempty"`
	FullTextIndex []Index      `json:"fullTextIndex,omitempty"`
	GinIndex      []Index      `json:"ginIndex,omitempty"`
	Index         []Index      `json:"index,omitempty"`
	UniqueIndex   []Index      `json:"uniqueIndex,omitempty"`
	LikeIndex     []Index      `json:"likeIndex,omitempty"`
	ForeignKeys   []ForeignKey `json:"foreignKeys,omitempty"`
}

// Index is a single index on a dotted JSON field path.
type Index struct {
	FieldName     string `json:"fieldName"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
	RemoveAccents bool   `json:"removeAccents,omitempty"`
	WhereClause   string `json:"whereClause,omitempty"`
}

// ForeignKey links FieldName on the declaring table to the primary key of
// TargetTable.
type ForeignKey struct {
	FieldName   string `json:"fieldName"`
	TargetTable string `json:"targetTable"`
	// ColumnName overrides the SQL column holding the key. It defaults to
	// the lower-cased field name.
	ColumnName string `json:"columnName,omitempty"`
}

// Column returns the SQL column that stores the key.
func (fk ForeignKey) Column() string {
	if fk.ColumnName != "" {
		return fk.ColumnName
	}
	return strings.ToLower(fk.FieldName)
}

// Descriptor reports which index kinds exist for one field.
type Descriptor struct {
	FullText bool
	GIN      bool
	Other    bool
}

// Any reports whether at least one index kind exists.
func (d Descriptor) Any() bool {
	return d.FullText || d.GIN || d.Other
}

// Parse decodes and validates a descriptor document given as JSON or YAML.
func Parse(data []byte) (*DBSchema, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, cqlerr.Schema("parse index descriptor: %v", err)
	}
	if err := validate(js); err != nil {
		return nil, err
	}
	var s DBSchema
	if err := yaml.Unmarshal(js, &s); err != nil {
		return nil, cqlerr.Schema("decode index descriptor: %v", err)
	}
	return &s, nil
}

// Load reads a descriptor document from path.
func Load(path string) (*DBSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cqlerr.Schema("read index descriptor %s: %v", path, err)
	}
	return Parse(data)
}

// ParseOrLoad accepts either an inline document (starting with '{') or a
// file path.
func ParseOrLoad(arg string) (*DBSchema, error) {
	trimmed := strings.TrimSpace(arg)
	if strings.HasPrefix(trimmed, "{") {
		return Parse([]byte(trimmed))
	}
	return Load(arg)
}

func validate(doc []byte) error {
	compiled, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewBytesLoader(metaSchema))
	if err != nil {
		return cqlerr.Schema("compile index descriptor schema: %v", err)
	}
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return cqlerr.Schema("validate index descriptor: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return cqlerr.Schema("invalid index descriptor: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Table returns the table named name. Table names compare case-insensitively.
func (s *DBSchema) Table(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].TableName, name) {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// Lookup reports the index kinds declared for field on table. An unknown
// table has no indexes.
func (s *DBSchema) Lookup(table, field string) Descriptor {
	t, ok := s.Table(table)
	if !ok {
		return Descriptor{}
	}
	return t.Lookup(field)
}

// Lookup reports the index kinds declared for field.
func (t *Table) Lookup(field string) Descriptor {
	return Descriptor{
		FullText: hasField(t.FullTextIndex, field),
		GIN:      hasField(t.GinIndex, field),
		Other:    hasField(t.Index, field) || hasField(t.UniqueIndex, field) || hasField(t.LikeIndex, field),
	}
}

// PK returns the primary-key column.
func (t *Table) PK() string {
	if t.PKColumnName != "" {
		return t.PKColumnName
	}
	return DefaultPKColumn
}

// ForeignKeyTo returns the foreign key on t that targets table.
func (t *Table) ForeignKeyTo(table string) (ForeignKey, bool) {
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.TargetTable, table) {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

func hasField(indexes []Index, field string) bool {
	for _, idx := range indexes {
		if idx.FieldName == field {
			return true
		}
	}
	return false
}
