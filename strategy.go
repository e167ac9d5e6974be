package cql2pgjson

import (
	"regexp"
	"strings"

	"github.com/pthm/cql2pgjson/internal/cqlerr"
	"github.com/pthm/cql2pgjson/internal/dbschema"
	"github.com/pthm/cql2pgjson/internal/escape"
	"github.com/pthm/cql2pgjson/internal/fold"
	"github.com/pthm/cql2pgjson/internal/modifiers"
	"github.com/pthm/cql2pgjson/internal/sqlgen/sqldsl"
	"github.com/pthm/cql2pgjson/pkg/cql"
)

// numberPattern is the literal syntax accepted by the numeric cast.
var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// wordOperators joins tsquery lexemes per relation.
var wordOperators = map[cql.Comparator]string{
	cql.Eq:  " <-> ",
	cql.Adj: " <-> ",
	cql.All: " & ",
	cql.Any: " | ",
}

func (tr *translation) selectStrategy(f field, desc dbschema.Descriptor, mods modifiers.Effective, rel cql.Comparator, term string) (sqldsl.Expr, error) {
	switch rel {
	case cql.Eq:
		if f.number {
			if len(words(term)) == 0 {
				return sqldsl.Match{Left: f.text(), Pattern: sqldsl.Quoted("")}, nil
			}
			return tr.ordinal(f, desc, rel, term)
		}
		return tr.fullText(f, desc, mods, rel, term)
	case cql.Adj, cql.All, cql.Any:
		return tr.fullText(f, desc, mods, rel, term)
	case cql.ExactEq, cql.NotEq:
		if f.number {
			return tr.ordinal(f, desc, rel, term)
		}
		return tr.pattern(f, desc, mods, term, rel == cql.NotEq), nil
	case cql.Lt, cql.Lte, cql.Gt, cql.Gte:
		return tr.ordinal(f, desc, rel, term)
	default:
		return nil, cqlerr.Validation("CQL: Unsupported relation %s", rel)
	}
}

// words splits a term on whitespace and drops words that only mask.
func words(term string) []string {
	var out []string
	for _, w := range strings.Fields(term) {
		if strings.Trim(w, "*") == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (tr *translation) fullText(f field, desc dbschema.Descriptor, mods modifiers.Effective, rel cql.Comparator, term string) (sqldsl.Expr, error) {
	tr.advise(f, StrategyFullText, desc.FullText, "fullTextIndex")

	ws := words(term)
	lexemes := make([]string, 0, len(ws))
	for _, w := range ws {
		lx, err := escape.TSQuery(w)
		if err != nil {
			return nil, err
		}
		if lx != "" {
			lexemes = append(lexemes, lx)
		}
	}
	if len(lexemes) == 0 {
		// Any defined value. Unlike true this fails for missing fields.
		return sqldsl.Match{Left: f.text(), Pattern: sqldsl.Quoted("")}, nil
	}

	query := sqldsl.Expr(sqldsl.Quoted(strings.Join(lexemes, wordOperators[rel])))
	doc := f.text()
	if tr.folding == FoldDatabase {
		doc = sqldsl.Unaccent(doc)
		query = sqldsl.Unaccent(query)
	}
	fts := sqldsl.TSMatch{Doc: sqldsl.ToTSVector(doc), Query: sqldsl.ToTSQuery(query)}
	if mods.IsDefault() {
		return fts, nil
	}

	// The full-text index folds case and accents, so the modifier
	// semantics are enforced per word on top of it.
	checks := make([]sqldsl.Expr, 0, len(ws))
	for _, w := range ws {
		checks = append(checks, tr.contains(f, mods, w))
	}
	if rel == cql.Any {
		return sqldsl.And(fts, sqldsl.Paren{Expr: sqldsl.Or(checks...)}), nil
	}
	return sqldsl.And(append([]sqldsl.Expr{fts}, checks...)...), nil
}

// contains matches word anywhere in the field under the modifier folding.
func (tr *translation) contains(f field, mods modifiers.Effective, word string) sqldsl.Expr {
	if tr.folding == FoldRegexp {
		re := fold.Expand(escape.Regexp(word), mods.Case == modifiers.IgnoreCase, mods.Accents == modifiers.IgnoreAccents)
		return sqldsl.Match{Left: f.text(), Pattern: sqldsl.Quoted(re)}
	}
	pattern := sqldsl.Quoted("%" + escape.Like(word) + "%")
	return sqldsl.Like{Left: wrap(f.text(), mods), Pattern: wrap(pattern, mods)}
}

func (tr *translation) pattern(f field, desc dbschema.Descriptor, mods modifiers.Effective, term string, negate bool) sqldsl.Expr {
	tr.advise(f, StrategyPattern, desc.GIN, "ginIndex")

	if tr.folding == FoldRegexp {
		re := "^(" + fold.Expand(escape.Regexp(term), mods.Case == modifiers.IgnoreCase, mods.Accents == modifiers.IgnoreAccents) + ")$"
		return sqldsl.Match{Left: f.text(), Pattern: sqldsl.Quoted(re), Negate: negate}
	}

	like := sqldsl.Quoted(escape.Like(term))
	folded := sqldsl.Like{
		Left:    sqldsl.Lower(sqldsl.Unaccent(f.text())),
		Pattern: sqldsl.Lower(sqldsl.Unaccent(like)),
		Negate:  negate,
	}
	if mods.IsDefault() {
		return folded
	}
	exact := sqldsl.Like{Left: wrap(f.text(), mods), Pattern: wrap(like, mods), Negate: negate}
	if negate {
		// A folded NOT LIKE would reject values that differ only in case
		// or accents.
		return exact
	}
	return sqldsl.And(folded, exact)
}

// wrap applies the case and accent folding selected by mods.
func wrap(e sqldsl.Expr, mods modifiers.Effective) sqldsl.Expr {
	if mods.Accents == modifiers.IgnoreAccents {
		e = sqldsl.Unaccent(e)
	}
	if mods.Case == modifiers.IgnoreCase {
		e = sqldsl.Lower(e)
	}
	return e
}

func (tr *translation) ordinal(f field, desc dbschema.Descriptor, rel cql.Comparator, term string) (sqldsl.Expr, error) {
	tr.advise(f, StrategyOrdinal, desc.Other, "index")

	op := string(rel)
	if rel == cql.ExactEq {
		op = string(cql.Eq)
	}
	if f.number {
		if !numberPattern.MatchString(term) {
			return nil, cqlerr.Validation("CQL: %s requires a number, got %q", f.name, term)
		}
		return sqldsl.Compare{Left: sqldsl.Cast{Expr: f.text(), Type: "numeric"}, Op: op, Right: sqldsl.Raw(term)}, nil
	}
	return sqldsl.Compare{Left: f.text(), Op: op, Right: sqldsl.Quoted(escape.String(term))}, nil
}
