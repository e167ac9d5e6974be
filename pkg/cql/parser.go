package cql

import (
	"fmt"
	"strings"
)

const (
	// MaxParserDepth limits parenthesis nesting to prevent stack overflow.
	MaxParserDepth = 100

	// ServerChoice is the implicit index of a bare search term.
	ServerChoice = "cql.serverChoice"
	// AllRecords is the special index matching every record.
	AllRecords = "cql.allRecords"
)

var namedRelations = map[string]bool{
	"adj":      true,
	"all":      true,
	"any":      true,
	"within":   true,
	"encloses": true,
	"exact":    true,
}

var booleans = map[string]BooleanOp{
	"and":  And,
	"or":   Or,
	"not":  Not,
	"prox": Prox,
}

// Parser consumes CQL tokens and produces a query tree.
type Parser struct {
	l *lexer

	cur  token
	peek token

	depth int
}

// NewParser returns a parser over query.
func NewParser(query string) *Parser {
	p := &Parser{l: newLexer(query)}
	p.advance()
	p.advance()
	return p
}

// Parse parses a complete CQL query, including prefix assignments and an
// optional sortBy clause.
func Parse(query string) (Node, error) {
	return NewParser(query).Parse()
}

// Parse parses the parser's whole input.
func (p *Parser) Parse() (Node, error) {
	if p.cur.typ == tokEOF {
		return nil, p.errorf(p.cur, "empty query")
	}
	node, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.isWord("sortby") {
		node, err = p.parseSort(node)
		if err != nil {
			return nil, err
		}
	}
	if p.cur.typ != tokEOF {
		return nil, p.errorf(p.cur, "unexpected %s %q", p.cur.typ, p.cur.literal)
	}
	return node, nil
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.next()
}

func (p *Parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) isWord(lower string) bool {
	return p.cur.typ == tokWord && strings.EqualFold(p.cur.literal, lower)
}

func (p *Parser) booleanOp() (BooleanOp, bool) {
	if p.cur.typ != tokWord {
		return 0, false
	}
	op, ok := booleans[strings.ToLower(p.cur.literal)]
	return op, ok
}

// parseQuery parses prefix assignments followed by a scoped clause.
func (p *Parser) parseQuery() (Node, error) {
	if p.cur.typ == tokCompare && p.cur.literal == ">" {
		return p.parsePrefix()
	}
	return p.parseScoped()
}

func (p *Parser) parsePrefix() (Node, error) {
	p.advance() // '>'
	prefix := &Prefix{}
	if p.cur.typ == tokWord && p.peek.typ == tokCompare && p.peek.literal == "=" {
		prefix.Name = p.cur.literal
		p.advance()
		p.advance()
	}
	if p.cur.typ != tokWord && p.cur.typ != tokQuoted {
		return nil, p.errorf(p.cur, "expected prefix URI, got %s", p.cur.typ)
	}
	prefix.URI = p.cur.literal
	p.advance()

	subtree, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	prefix.Subtree = subtree
	return prefix, nil
}

// parseScoped parses left-associative boolean combinations.
func (p *Parser) parseScoped() (Node, error) {
	left, err := p.parseSearchClause()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.booleanOp()
		if !ok {
			return left, nil
		}
		p.advance()
		mods, err := p.parseModifiers()
		if err != nil {
			return nil, err
		}
		right, err := p.parseSearchClause()
		if err != nil {
			return nil, err
		}
		left = &Boolean{Op: op, Left: left, Right: right, Modifiers: mods}
	}
}

func (p *Parser) parseSearchClause() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxParserDepth {
		return nil, p.errorf(p.cur, "query nesting exceeds %d levels", MaxParserDepth)
	}

	switch p.cur.typ {
	case tokLParen:
		p.advance()
		node, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokRParen {
			return nil, p.errorf(p.cur, "expected ')', got %s", p.cur.typ)
		}
		p.advance()
		return node, nil
	case tokCompare:
		if p.cur.literal == ">" {
			return p.parsePrefix()
		}
	case tokWord, tokQuoted:
		if p.startsRelation() {
			return p.parseIndexedTerm()
		}
		term := &Term{Index: ServerChoice, Relation: Eq, Term: p.cur.literal}
		p.advance()
		return term, nil
	case tokIllegal:
		return nil, p.errorf(p.cur, "%s", p.cur.literal)
	}
	return nil, p.errorf(p.cur, "expected search clause, got %s %q", p.cur.typ, p.cur.literal)
}

// startsRelation reports whether the current word is an index followed by a
// relation.
func (p *Parser) startsRelation() bool {
	if p.cur.typ != tokWord {
		return false
	}
	switch p.peek.typ {
	case tokCompare:
		return true
	case tokWord:
		return namedRelations[strings.ToLower(p.peek.literal)]
	}
	return false
}

func (p *Parser) parseIndexedTerm() (Node, error) {
	term := &Term{Index: p.cur.literal}
	p.advance()
	term.Relation = Comparator(p.cur.literal).Normalize()
	p.advance()

	mods, err := p.parseModifiers()
	if err != nil {
		return nil, err
	}
	term.Modifiers = mods

	if p.cur.typ == tokIllegal {
		return nil, p.errorf(p.cur, "%s", p.cur.literal)
	}
	if p.cur.typ != tokWord && p.cur.typ != tokQuoted {
		return nil, p.errorf(p.cur, "expected search term after %s %s, got %s", term.Index, term.Relation, p.cur.typ)
	}
	term.Term = p.cur.literal
	p.advance()
	return term, nil
}

// parseModifiers parses a possibly empty /name[relation value] list.
func (p *Parser) parseModifiers() ([]Modifier, error) {
	var mods []Modifier
	for p.cur.typ == tokSlash {
		p.advance()
		if p.cur.typ != tokWord {
			return nil, p.errorf(p.cur, "expected modifier name, got %s", p.cur.typ)
		}
		mod := Modifier{Name: p.cur.literal}
		p.advance()
		if p.cur.typ == tokCompare {
			mod.Relation = p.cur.literal
			p.advance()
			if p.cur.typ != tokWord && p.cur.typ != tokQuoted {
				return nil, p.errorf(p.cur, "expected value for modifier %s", mod.Name)
			}
			mod.Value = p.cur.literal
			p.advance()
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

func (p *Parser) parseSort(subtree Node) (Node, error) {
	p.advance() // sortBy
	sort := &Sort{Subtree: subtree}
	for p.cur.typ == tokWord || p.cur.typ == tokQuoted {
		key := SortKey{Index: p.cur.literal}
		p.advance()
		mods, err := p.parseModifiers()
		if err != nil {
			return nil, err
		}
		key.Modifiers = mods
		sort.Keys = append(sort.Keys, key)
	}
	if len(sort.Keys) == 0 {
		return nil, p.errorf(p.cur, "sortBy requires at least one index")
	}
	return sort, nil
}
