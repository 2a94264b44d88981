// Package query implements XML query templates: parsing into an immutable
// node arena, group toggling, fragment injection at named anchors,
// placeholder binding and rendering to literal SQL.
//
// Every mutating operation returns a new *Document snapshot and leaves the
// receiver untouched, so a parsed template can be shared read-only and each
// extraction run derives its own documents from it.
package query

import (
	"slices"
	"strings"
)

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// NodeID addresses a node inside a Document arena.
type NodeID int

// NoNode is the parent of the root node.
const NoNode NodeID = -1

// NodeKind identifies the element type of a node.
type NodeKind int

// NodeKind constants, one per template element.
const (
	KindQuery NodeKind = iota
	KindSelect
	KindFrom
	KindWhere
	KindIn
	KindGroupBy
	KindHaving
	KindOrderBy
	KindInjection
)

var kindNames = map[string]NodeKind{
	"query":     KindQuery,
	"select":    KindSelect,
	"from":      KindFrom,
	"where":     KindWhere,
	"in":        KindIn,
	"groupby":   KindGroupBy,
	"having":    KindHaving,
	"orderby":   KindOrderBy,
	"injection": KindInjection,
}

func (k NodeKind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// part is one piece of node content: literal text or a child node.
type part struct {
	text  string
	child NodeID // NoNode for text
}

func textPart(s string) part   { return part{text: s, child: NoNode} }
func childPart(id NodeID) part { return part{child: id} }
func (p part) isChild() bool   { return p.child != NoNode }

// node is one element of the arena. Nodes are never modified once a
// Document is published; copy-on-write helpers allocate fresh slices.
type node struct {
	kind   NodeKind
	attrs  map[string]string // attribute names lower-cased
	parts  []part
	groups []string
	parent NodeID
	pos    Position
}

func (n *node) attr(name string) string {
	return n.attrs[strings.ToLower(name)]
}

// types returns the comma separated values of the type attribute, lower-cased.
func (n *node) types() []string {
	return splitList(strings.ToLower(n.attr("type")), ",")
}

func (n *node) hasType(t string) bool {
	return slices.Contains(n.types(), t)
}

// text concatenates the literal text parts of the node.
func (n *node) text() string {
	var b strings.Builder
	for _, p := range n.parts {
		if !p.isChild() {
			b.WriteString(p.text)
		}
	}
	return b.String()
}

// Column describes one select node of a Document.
type Column struct {
	ID      NodeID
	Alias   string
	Visible bool
	Numeric bool
	Types   []string
	Groups  []string
}

// HasGroup reports whether the column carries the tag.
func (c Column) HasGroup(tag string) bool {
	return slices.Contains(c.Groups, tag)
}

// ColumnFilter selects columns for ColumnNames.
type ColumnFilter func(Column) bool

// Predefined column filters.
var (
	AllColumns  ColumnFilter = func(Column) bool { return true }
	Hidden      ColumnFilter = func(c Column) bool { return !c.Visible }
	Visible     ColumnFilter = func(c Column) bool { return c.Visible }
	NonNumeric  ColumnFilter = func(c Column) bool { return !c.Numeric }
	NumericOnly ColumnFilter = func(c Column) bool { return c.Numeric }
)

// splitList splits s on any of the separators and drops empty items.
func splitList(s, seps string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
