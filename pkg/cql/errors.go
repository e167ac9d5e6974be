package cql

import "fmt"

// Position is a 1-based rune offset in the query text.
type Position struct {
	Offset int
}

// SyntaxError describes a parsing failure with source position context.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	if e == nil {
		return ""
	}
	if e.Pos.Offset > 0 {
		return fmt.Sprintf("CQL syntax error at position %d: %s", e.Pos.Offset, e.Msg)
	}
	return "CQL syntax error: " + e.Msg
}
