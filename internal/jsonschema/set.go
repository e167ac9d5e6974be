package jsonschema

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
)

// Set is a collection of schema documents that may reference each other
// through $ref. Documents are keyed by slash-separated names.
type Set struct {
	docs map[string]*yaml.Node
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{docs: make(map[string]*yaml.Node)}
}

// Add parses data as JSON or YAML and stores it under name.
func (s *Set) Add(name string, data []byte) error {
	// JSON allows raw tabs between tokens; YAML does not.
	data = bytes.ReplaceAll(data, []byte("\t"), []byte(" "))
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cqlerr.Schema("parse schema %s: %v", name, err)
	}
	root := unwrap(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return cqlerr.Schema("schema %s is not an object", name)
	}
	s.docs[cleanName(name)] = &doc
	return nil
}

// Names returns the names of all documents in the set.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.docs))
	for n := range s.docs {
		names = append(names, n)
	}
	return names
}

// Load reads the schema at file and every local document it references,
// transitively, then compiles it.
func Load(file string) (*Schema, error) {
	set, root, err := LoadSet(file)
	if err != nil {
		return nil, err
	}
	return Compile(set, root)
}

// LoadSet reads file and its local $ref targets. It returns the set and the
// name of the root document within it.
func LoadSet(file string) (*Set, string, error) {
	dir := filepath.Dir(file)
	root := cleanName(filepath.Base(file))
	set := NewSet()
	queue := []string{root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := set.docs[name]; ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			if name == root {
				return nil, "", cqlerr.Schema("read schema %s: %v", file, err)
			}
			// Unreadable references are dead ends during the walk.
			continue
		}
		if err := set.Add(name, data); err != nil {
			return nil, "", err
		}
		for _, ref := range collectRefs(set.docs[name]) {
			target, _ := splitRef(ref)
			if target == "" || isRemote(target) {
				continue
			}
			queue = append(queue, cleanName(path.Join(path.Dir(name), target)))
		}
	}
	return set, root, nil
}

// resolveRef finds the node ref points at, relative to document from.
func (s *Set) resolveRef(from, ref string) (string, *yaml.Node) {
	target, fragment := splitRef(ref)
	if isRemote(target) {
		return "", nil
	}
	doc := from
	if target != "" {
		doc = s.lookupName(from, target)
		if doc == "" {
			return "", nil
		}
	}
	node := unwrap(s.docs[doc])
	if fragment == "" || fragment == "/" {
		return doc, node
	}
	for _, seg := range strings.Split(strings.TrimPrefix(fragment, "/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		node = unwrap(child(node, seg))
		if node == nil {
			return "", nil
		}
	}
	return doc, node
}

func (s *Set) lookupName(from, target string) string {
	for _, candidate := range []string{
		cleanName(path.Join(path.Dir(from), target)),
		cleanName(target),
	} {
		if _, ok := s.docs[candidate]; ok {
			return candidate
		}
	}
	base := path.Base(target)
	match := ""
	for name := range s.docs {
		if path.Base(name) == base {
			if match != "" {
				return ""
			}
			match = name
		}
	}
	return match
}

func splitRef(ref string) (target, fragment string) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

func isRemote(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "urn:")
}

func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "./")
}

func collectRefs(node *yaml.Node) []string {
	var refs []string
	var visit func(n *yaml.Node)
	visit = func(n *yaml.Node) {
		if n == nil {
			return
		}
		if n.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(n.Content); i += 2 {
				if n.Content[i].Value == "$ref" && n.Content[i+1].Kind == yaml.ScalarNode {
					refs = append(refs, n.Content[i+1].Value)
				}
			}
		}
		for _, c := range n.Content {
			visit(c)
		}
	}
	visit(node)
	return refs
}
