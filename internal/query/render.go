package query

import (
	"sort"
	"strings"
)

// Render turns the document into literal SQL.
//
// Only enabled nodes are rendered. It fails with *UnboundPlaceholderError if
// an enabled node references a placeholder without value and with
// *ColumnCollisionError if two enabled select nodes share an alias.
func (d *Document) Render() (string, error) {
	r := renderer{doc: d, unbound: make(map[string]struct{})}

	if err := d.checkCollisions(); err != nil {
		return "", err
	}

	var (
		selects, froms, groupBys, orderBys []string
		wheres, havings                    []string
	)
	for _, p := range d.nodes[Root].parts {
		if !p.isChild() || !d.IsEnabled(p.child) {
			continue
		}
		n := &d.nodes[p.child]
		switch n.kind {
		case KindSelect:
			selects = append(selects, r.selectItem(n))
		case KindFrom:
			froms = append(froms, r.fromItem(n, len(froms) == 0))
		case KindWhere:
			wheres = r.appendCondition(wheres, p.child)
		case KindHaving:
			havings = r.appendCondition(havings, p.child)
		case KindGroupBy:
			if s := r.text(n); s != "" {
				groupBys = append(groupBys, s)
			}
		case KindOrderBy:
			if s := r.text(n); s != "" {
				if dir := strings.ToUpper(n.attr("direction")); dir != "" {
					s += " " + dir
				}
				orderBys = append(orderBys, s)
			}
		}
	}

	if len(r.unbound) > 0 {
		names := make([]string, 0, len(r.unbound))
		for name := range r.unbound {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", &UnboundPlaceholderError{Names: names}
	}

	var b strings.Builder
	b.WriteString("SELECT")
	if d.HasDistinctOption() {
		b.WriteString(" DISTINCT")
	}
	if len(selects) == 0 {
		b.WriteString(" *")
	} else {
		b.WriteString("\n  ")
		b.WriteString(strings.Join(selects, ",\n  "))
	}
	if len(froms) > 0 {
		b.WriteString("\nFROM ")
		b.WriteString(strings.Join(froms, ""))
	}
	writeConditions(&b, "WHERE", wheres)
	if len(groupBys) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(groupBys, ", "))
	}
	writeConditions(&b, "HAVING", havings)
	if len(orderBys) > 0 {
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(orderBys, ", "))
	}
	return b.String(), nil
}

func writeConditions(b *strings.Builder, keyword string, conds []string) {
	if len(conds) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(keyword)
	b.WriteString(" ")
	b.WriteString(conds[0])
	for _, c := range conds[1:] {
		b.WriteString("\n  ")
		b.WriteString(c)
	}
}

// checkCollisions reports duplicate aliases among enabled select nodes.
func (d *Document) checkCollisions() error {
	seen := make(map[string]Position)
	for _, c := range d.Columns() {
		if c.Alias == "" || !d.IsEnabled(c.ID) {
			continue
		}
		key := strings.ToUpper(c.Alias)
		if prev, dup := seen[key]; dup {
			return &ColumnCollisionError{Alias: c.Alias, Positions: []Position{prev, d.nodes[c.ID].pos}}
		}
		seen[key] = d.nodes[c.ID].pos
	}
	return nil
}

type renderer struct {
	doc     *Document
	unbound map[string]struct{}
}

// text collapses whitespace of the node text and substitutes placeholders.
func (r *renderer) text(n *node) string {
	return r.doc.substitute(collapse(n.text()), r.unbound)
}

func (r *renderer) selectItem(n *node) string {
	expr := r.text(n)
	alias := n.attr("alias")
	if alias == "" {
		return expr
	}
	return expr + " AS " + r.doc.renderAlias(alias)
}

func (r *renderer) fromItem(n *node, first bool) string {
	s := r.text(n)
	if alias := n.attr("alias"); alias != "" {
		s += " " + alias
	}
	switch {
	case first:
		return s
	case strings.EqualFold(n.attr("join"), "true"):
		return "\n  " + s
	default:
		return ", " + s
	}
}

// appendCondition renders a top-level where or having node. The first
// condition carries no operator; later ones are prefixed by theirs and
// parenthesized.
func (r *renderer) appendCondition(conds []string, id NodeID) []string {
	inner := r.condition(id)
	if inner == "" {
		return conds
	}
	if len(conds) == 0 {
		return append(conds, inner)
	}
	return append(conds, operator(&r.doc.nodes[id])+" ("+inner+")")
}

// condition renders the content of a where or having node.
func (r *renderer) condition(id NodeID) string {
	n := &r.doc.nodes[id]
	var b strings.Builder
	for _, p := range n.parts {
		if !p.isChild() {
			s := r.doc.substitute(collapse(p.text), r.unbound)
			if s == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(s)
			continue
		}
		if !r.doc.IsEnabled(p.child) {
			continue
		}
		child := &r.doc.nodes[p.child]
		var s string
		switch child.kind {
		case KindIn:
			s = child.attr("field") + " IN (" + r.text(child) + ")"
		case KindWhere:
			inner := r.condition(p.child)
			if inner == "" {
				continue
			}
			s = "(" + inner + ")"
		default:
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
			if child.kind == KindWhere || child.attr("operator") != "" {
				b.WriteString(operator(child))
				b.WriteString(" ")
			}
		}
		b.WriteString(s)
	}
	return b.String()
}

func operator(n *node) string {
	if op := strings.ToUpper(n.attr("operator")); op != "" {
		return op
	}
	return "AND"
}

// collapse trims s and replaces whitespace runs with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
