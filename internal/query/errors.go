package query

import (
	"fmt"
	"strings"
)

// TemplateSyntaxError reports a malformed template or an unknown element.
type TemplateSyntaxError struct {
	Pos Position
	Msg string
}

func (e *TemplateSyntaxError) Error() string {
	if e.Pos.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.File, e.Pos.Line, e.Pos.Column, e.Msg)
	}
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return e.Msg
}

func syntaxErrorf(pos Position, format string, args ...any) *TemplateSyntaxError {
	return &TemplateSyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// AnchorNotFoundError is returned when an injection targets a missing anchor.
type AnchorNotFoundError struct {
	Anchor    string
	Available []string
}

func (e *AnchorNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("injection anchor %q not found (document has no anchors)", e.Anchor)
	}
	return fmt.Sprintf("injection anchor %q not found (available: %s)", e.Anchor, strings.Join(e.Available, ", "))
}

// UnboundPlaceholderError lists placeholders referenced by enabled nodes
// that have no bound value.
type UnboundPlaceholderError struct {
	Names []string
}

func (e *UnboundPlaceholderError) Error() string {
	return "unbound placeholders: &" + strings.Join(e.Names, ", &")
}

// ColumnCollisionError is returned when two enabled select nodes share an alias.
type ColumnCollisionError struct {
	Alias     string
	Positions []Position
}

func (e *ColumnCollisionError) Error() string {
	locs := make([]string, 0, len(e.Positions))
	for _, p := range e.Positions {
		locs = append(locs, fmt.Sprintf("%d:%d", p.Line, p.Column))
	}
	return fmt.Sprintf("duplicate column alias %q (at %s)", e.Alias, strings.Join(locs, ", "))
}
