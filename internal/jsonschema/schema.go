// Package jsonschema maps abbreviated dotted field names onto the leaf
// properties of a JSON schema.
//
// A schema is walked depth first with properties visited in document order,
// which makes candidate lists in ambiguity errors deterministic. Every leaf is
// registered under each right-hand suffix of its path, so "lastName" finds
// "personal.lastName". Array properties are leaves: paths below an array are
// never valid.
package jsonschema

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
)

// maxWalkDepth bounds nesting, including $ref indirections.
const maxWalkDepth = 64

// Declared types reported for leaves.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Field is a resolved schema leaf.
type Field struct {
	// Path is the full dotted path from the document root.
	Path string
	// Type is the declared type: string, number, boolean, array or empty.
	Type string
	// ElementType is the items type of an array leaf.
	ElementType string
}

// EffectiveType is the type the translator compares with. Arrays compare as
// strings.
func (f Field) EffectiveType() string {
	if f.Type == TypeArray {
		return TypeString
	}
	return f.Type
}

// Schema is a compiled suffix index over one root document.
type Schema struct {
	fields map[string][]Field
}

// Compile walks the document named root in set.
func Compile(set *Set, root string) (*Schema, error) {
	doc, ok := set.docs[root]
	if !ok {
		return nil, cqlerr.Schema("schema document %s not found", root)
	}
	w := &walker{set: set, schema: &Schema{fields: make(map[string][]Field)}}
	if err := w.walk(root, doc, nil, 0); err != nil {
		return nil, err
	}
	return w.schema, nil
}

// Parse compiles a single self-contained schema document. References to
// other documents are dead ends.
func Parse(data []byte) (*Schema, error) {
	set := NewSet()
	if err := set.Add("schema.json", data); err != nil {
		return nil, err
	}
	return Compile(set, "schema.json")
}

// Resolve maps index to its unique leaf.
func (s *Schema) Resolve(index string) (Field, error) {
	candidates, ok := s.fields[index]
	if !ok {
		return Field{}, cqlerr.Validation("field name not present in index: %s", index)
	}
	if len(candidates) > 1 {
		return Field{}, cqlerr.Ambiguous(index, paths(candidates))
	}
	return candidates[0], nil
}

// ResolveTyped maps index to the unique leaf whose declared type, or array
// element type, equals expectedType. An empty expectedType behaves like
// Resolve.
func (s *Schema) ResolveTyped(index, expectedType string) (Field, error) {
	if expectedType == "" {
		return s.Resolve(index)
	}
	candidates, ok := s.fields[index]
	if !ok {
		return Field{}, cqlerr.Validation("field name not present in index: %s", index)
	}
	var matching []Field
	for _, f := range candidates {
		if f.Type == expectedType || (f.Type == TypeArray && f.ElementType == expectedType) {
			matching = append(matching, f)
		}
	}
	switch len(matching) {
	case 0:
		return Field{}, cqlerr.Validation("type mismatch: field %s is not of type %s", index, expectedType)
	case 1:
		return matching[0], nil
	default:
		return Field{}, cqlerr.Ambiguous(index, paths(matching))
	}
}

// Has reports whether index names at least one leaf.
func (s *Schema) Has(index string) bool {
	_, ok := s.fields[index]
	return ok
}

func paths(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Path
	}
	return out
}

func (s *Schema) record(path []string, f Field) {
	for i := range path {
		suffix := strings.Join(path[i:], ".")
		existing := s.fields[suffix]
		dup := false
		for _, e := range existing {
			if e.Path == f.Path {
				dup = true
				break
			}
		}
		if !dup {
			s.fields[suffix] = append(existing, f)
		}
	}
}

type walker struct {
	set      *Set
	schema   *Schema
	visiting []string
}

func (w *walker) walk(doc string, node *yaml.Node, path []string, depth int) error {
	if depth > maxWalkDepth {
		return cqlerr.Schema("schema nesting exceeds %d levels at %s", maxWalkDepth, strings.Join(path, "."))
	}
	node = unwrap(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}

	if ref := child(node, "$ref"); ref != nil && ref.Kind == yaml.ScalarNode {
		targetDoc, target := w.set.resolveRef(doc, ref.Value)
		_, fragment := splitRef(ref.Value)
		key := targetDoc + "#" + fragment
		if target == nil || w.onStack(key) {
			return nil
		}
		w.visiting = append(w.visiting, key)
		defer func() { w.visiting = w.visiting[:len(w.visiting)-1] }()
		return w.walk(targetDoc, target, path, depth+1)
	}

	if props := child(node, "properties"); props != nil && props.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(props.Content); i += 2 {
			name := props.Content[i].Value
			next := make([]string, len(path), len(path)+1)
			copy(next, path)
			next = append(next, name)
			if err := w.walk(doc, props.Content[i+1], next, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if len(path) == 0 {
		return nil
	}
	field := Field{Path: strings.Join(path, "."), Type: declaredType(node)}
	if field.Type == TypeArray {
		items := unwrap(child(node, "items"))
		if items == nil || items.Kind != yaml.MappingNode || child(items, "type") == nil {
			return cqlerr.Schema("items of array %s must be an object with a type", field.Path)
		}
		field.ElementType = declaredType(items)
	}
	w.schema.record(path, field)
	return nil
}

func (w *walker) onStack(key string) bool {
	for _, k := range w.visiting {
		if k == key {
			return true
		}
	}
	return false
}

// declaredType normalizes the type keyword. Type lists use their first
// non-null entry; integer is reported as number.
func declaredType(node *yaml.Node) string {
	t := child(node, "type")
	if t == nil {
		return ""
	}
	var name string
	switch t.Kind {
	case yaml.ScalarNode:
		name = t.Value
	case yaml.SequenceNode:
		for _, entry := range t.Content {
			if entry.Value != "null" {
				name = entry.Value
				break
			}
		}
	}
	switch name {
	case TypeString, TypeNumber, TypeBoolean, TypeArray:
		return name
	case "integer":
		return TypeNumber
	default:
		return ""
	}
}

func unwrap(node *yaml.Node) *yaml.Node {
	for node != nil && (node.Kind == yaml.DocumentNode || node.Kind == yaml.AliasNode) {
		if node.Kind == yaml.AliasNode {
			node = node.Alias
			continue
		}
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	return node
}

// child returns the value of key in a mapping node.
func child(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
