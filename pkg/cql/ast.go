// Package cql defines the CQL query tree consumed by the translator and a
// parser producing it from query text.
//
// The tree is a closed set of node types behind the Node interface: Term,
// Boolean and Sort cover what the translator compiles; Prefix is produced
// for prefix assignments and rejected downstream.
package cql

import "strings"

// Node is a CQL query tree node.
type Node interface {
	// Kind names the node type for diagnostics.
	Kind() string
	node()
}

// Comparator is the relation between an index and a search term.
type Comparator string

// Comparators understood by the translator.
const (
	Eq       Comparator = "="
	ExactEq  Comparator = "=="
	NotEq    Comparator = "<>"
	Lt       Comparator = "<"
	Lte      Comparator = "<="
	Gt       Comparator = ">"
	Gte      Comparator = ">="
	Adj      Comparator = "adj"
	All      Comparator = "all"
	Any      Comparator = "any"
	Within   Comparator = "within"
	Encloses Comparator = "encloses"
	Exact    Comparator = "exact"
)

// Normalize lower-cases named comparators.
func (c Comparator) Normalize() Comparator {
	return Comparator(strings.ToLower(string(c)))
}

// Modifier is a relation, boolean or sort modifier such as /respectCase or
// /sort.descending. Relation and Value are set for valued modifiers
// (/name=value).
type Modifier struct {
	Name     string
	Relation string
	Value    string
}

func (m Modifier) String() string {
	if m.Relation == "" {
		return m.Name
	}
	return m.Name + m.Relation + m.Value
}

// Term is a search clause: index relation term.
type Term struct {
	Index     string
	Relation  Comparator
	Term      string
	Modifiers []Modifier
}

// Kind implements Node.
func (*Term) Kind() string { return "term" }
func (*Term) node()        {}

// BooleanOp is a boolean connective.
type BooleanOp int

const (
	And BooleanOp = iota
	Or
	Not
	Prox
)

func (op BooleanOp) String() string {
	switch op {
	case And:
		return "and"
	case Or:
		return "or"
	case Not:
		return "not"
	case Prox:
		return "prox"
	default:
		return "unknown"
	}
}

// Boolean combines two subtrees.
type Boolean struct {
	Op        BooleanOp
	Left      Node
	Right     Node
	Modifiers []Modifier
}

// Kind implements Node.
func (*Boolean) Kind() string { return "boolean" }
func (*Boolean) node()        {}

// SortKey is one sortBy index with its modifiers.
type SortKey struct {
	Index     string
	Modifiers []Modifier
}

// Sort attaches an ordered list of sort keys to a query.
type Sort struct {
	Subtree Node
	Keys    []SortKey
}

// Kind implements Node.
func (*Sort) Kind() string { return "sort" }
func (*Sort) node()        {}

// Prefix is a prefix assignment (>name="uri") scoping a subtree.
type Prefix struct {
	Name    string
	URI     string
	Subtree Node
}

// Kind implements Node.
func (*Prefix) Kind() string { return "prefix" }
func (*Prefix) node()        {}
