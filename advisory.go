package cql2pgjson

import (
	"fmt"
	"log/slog"
)

// Strategy is the SQL shape chosen for a search clause.
type Strategy string

const (
	StrategyFullText   Strategy = "fulltext"
	StrategyPattern    Strategy = "pattern"
	StrategyOrdinal    Strategy = "ordinal"
	StrategyPrimaryKey Strategy = "primarykey"
	StrategySubQuery   Strategy = "subquery"
)

// Advisory reports a strategy that runs without a supporting index. The
// query is still correct but will scan.
type Advisory struct {
	Table    string   `json:"table,omitempty"`
	Field    string   `json:"field"`
	Strategy Strategy `json:"strategy"`
	// Index is the descriptor list that would have to name the field, such
	// as fullTextIndex or ginIndex.
	Index string `json:"index"`
}

func (a Advisory) String() string {
	if a.Table == "" {
		return fmt.Sprintf("%s search on %s without %s", a.Strategy, a.Field, a.Index)
	}
	return fmt.Sprintf("%s search on %s.%s without %s", a.Strategy, a.Table, a.Field, a.Index)
}

// advise records a missing index. It only fires when an index descriptor is
// configured, since without one nothing is known about indexes.
func (tr *translation) advise(f field, s Strategy, present bool, index string) {
	if tr.db == nil || present {
		return
	}
	a := Advisory{Table: tr.table, Field: f.name, Strategy: s, Index: index}
	tr.advisories = append(tr.advisories, a)
	tr.logger.Warn("missing index",
		slog.String("table", tr.table),
		slog.String("field", f.name),
		slog.String("strategy", string(s)),
		slog.String("index", index),
	)
}
