package query

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

// Root is the id of the <query> node of every Document.
const Root NodeID = 0

// Document is an immutable snapshot of a parsed query template together with
// its group states, bound values and rendering options.
type Document struct {
	name      string
	nodes     []node
	groups    map[string]bool
	binds     map[string]Value
	dialect   *dialect.Dialect
	lowercase bool
	version   int

	// afterCount tracks how many parts were spliced after each anchor so that
	// repeated injections accumulate in call order.
	afterCount map[NodeID]int
}

// clone returns a shallow copy whose maps and node slice may be modified.
// Node part slices are still shared and must be copied before mutation.
func (d *Document) clone() *Document {
	return &Document{
		name:       d.name,
		nodes:      slices.Clone(d.nodes),
		groups:     maps.Clone(d.groups),
		binds:      maps.Clone(d.binds),
		dialect:    d.dialect,
		lowercase:  d.lowercase,
		version:    d.version + 1,
		afterCount: maps.Clone(d.afterCount),
	}
}

// Name returns the source name given at parse time.
func (d *Document) Name() string { return d.name }

// Version counts the operations applied since parsing.
func (d *Document) Version() int { return d.version }

// Dialect returns the dialect used to render bound literals.
func (d *Document) Dialect() *dialect.Dialect { return d.dialect }

// WithDialect returns a snapshot rendering literals with dl.
func (d *Document) WithDialect(dl *dialect.Dialect) *Document {
	out := d.clone()
	out.dialect = dl
	return out
}

// Lowercase reports whether aliases are rendered in lower case.
func (d *Document) Lowercase() bool { return d.lowercase }

// WithLowercase returns a snapshot with the lowercase rendering option set.
func (d *Document) WithLowercase(enabled bool) *Document {
	out := d.clone()
	out.lowercase = enabled
	return out
}

// HasDistinctOption reports whether the root option attribute is "distinct".
func (d *Document) HasDistinctOption() bool {
	return strings.EqualFold(strings.TrimSpace(d.nodes[Root].attr("option")), "distinct")
}

// Kind returns the element kind of a node.
func (d *Document) Kind(id NodeID) NodeKind {
	return d.nodes[id].kind
}

// AttributeValue returns the value of an attribute of a node.
// With normalize set, the value is trimmed and lower-cased.
func (d *Document) AttributeValue(id NodeID, name string, normalize bool) (string, bool) {
	if id < 0 || int(id) >= len(d.nodes) {
		return "", false
	}
	v, ok := d.nodes[id].attrs[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	if normalize {
		v = strings.ToLower(strings.TrimSpace(v))
	}
	return v, true
}

// order returns the ids of all attached nodes in document order.
// Nodes detached by a replace injection are not visited.
func (d *Document) order() []NodeID {
	ids := make([]NodeID, 0, len(d.nodes))
	var walk func(NodeID)
	walk = func(id NodeID) {
		ids = append(ids, id)
		for _, p := range d.nodes[id].parts {
			if p.isChild() {
				walk(p.child)
			}
		}
	}
	walk(Root)
	return ids
}

// IsEnabled reports whether a node is rendered: all of its groups and all of
// its ancestors' groups must be enabled.
func (d *Document) IsEnabled(id NodeID) bool {
	for ; id != NoNode; id = d.nodes[id].parent {
		for _, tag := range d.nodes[id].groups {
			if !d.GroupEnabled(tag) {
				return false
			}
		}
	}
	return true
}

// GroupEnabled returns the state of a group. Tags never toggled are enabled.
func (d *Document) GroupEnabled(tag string) bool {
	enabled, ok := d.groups[tag]
	return !ok || enabled
}

// WithGroup returns a snapshot with a group enabled or disabled.
// Toggling is idempotent and order-independent.
func (d *Document) WithGroup(tag string, enabled bool) *Document {
	out := d.clone()
	out.groups[tag] = enabled
	return out
}

// WithGroups applies several group states at once.
func (d *Document) WithGroups(states map[string]bool) *Document {
	out := d.clone()
	for tag, enabled := range states {
		out.groups[tag] = enabled
	}
	return out
}

// Groups returns every tag used by attached nodes plus every toggled tag,
// with its current state.
func (d *Document) Groups() map[string]bool {
	states := make(map[string]bool)
	for _, id := range d.order() {
		for _, tag := range d.nodes[id].groups {
			states[tag] = d.GroupEnabled(tag)
		}
	}
	for tag, enabled := range d.groups {
		states[tag] = enabled
	}
	return states
}

// Anchors returns the names of the injection anchors in document order.
func (d *Document) Anchors() []string {
	var names []string
	for _, id := range d.order() {
		if d.nodes[id].kind == KindInjection {
			names = append(names, d.nodes[id].attr("name"))
		}
	}
	return names
}

func (d *Document) findAnchor(name string) (NodeID, bool) {
	for _, id := range d.order() {
		n := &d.nodes[id]
		if n.kind == KindInjection && n.attr("name") == name {
			return id, true
		}
	}
	return NoNode, false
}

// Columns returns the descriptors of every attached select node in document
// order, whether enabled or not.
func (d *Document) Columns() []Column {
	var cols []Column
	for _, id := range d.order() {
		n := &d.nodes[id]
		if n.kind != KindSelect {
			continue
		}
		cols = append(cols, Column{
			ID:      id,
			Alias:   n.attr("alias"),
			Visible: !n.hasType("hidden"),
			Numeric: n.hasType("number"),
			Types:   n.types(),
			Groups:  slices.Clone(n.groups),
		})
	}
	return cols
}

// ColumnNames returns the lower-cased aliases of the select nodes matching
// filter, in document order and without duplicates. Group states are ignored.
func (d *Document) ColumnNames(filter ColumnFilter) []string {
	if filter == nil {
		filter = AllColumns
	}
	var names []string
	seen := make(map[string]struct{})
	for _, c := range d.Columns() {
		if c.Alias == "" || !filter(c) {
			continue
		}
		name := strings.ToLower(c.Alias)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// OutputColumns returns the aliases of enabled, visible select nodes as they
// appear in the rendered SQL: the output row shape of the query.
func (d *Document) OutputColumns() []string {
	var names []string
	for _, c := range d.Columns() {
		if c.Alias == "" || !c.Visible || !d.IsEnabled(c.ID) {
			continue
		}
		names = append(names, d.renderAlias(c.Alias))
	}
	return names
}

// SelectNode returns the select node declaring alias (case-insensitive).
func (d *Document) SelectNode(alias string) (NodeID, bool) {
	for _, c := range d.Columns() {
		if strings.EqualFold(c.Alias, alias) {
			return c.ID, true
		}
	}
	return NoNode, false
}

// Placeholders returns the sorted names of all placeholders referenced by
// attached nodes, enabled or not.
func (d *Document) Placeholders() []string {
	set := make(map[string]struct{})
	for _, id := range d.order() {
		for _, name := range placeholderNames(d.nodes[id].text()) {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bound reports whether a placeholder has a value.
func (d *Document) Bound(name string) bool {
	_, ok := d.binds[name]
	return ok
}

func (d *Document) renderAlias(alias string) string {
	if d.lowercase {
		return strings.ToLower(alias)
	}
	return alias
}
