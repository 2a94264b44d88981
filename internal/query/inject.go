package query

import (
	"fmt"
	"slices"
	"strings"
)

// InjectPosition selects where a fragment is spliced relative to its anchor.
type InjectPosition int

// InjectPosition constants. After is the default.
const (
	After InjectPosition = iota
	Before
	Replace
)

func (p InjectPosition) String() string {
	switch p {
	case Before:
		return "before"
	case Replace:
		return "replace"
	default:
		return "after"
	}
}

// ParseInjectPosition parses before, after or replace (case-insensitive).
// An empty string yields After.
func ParseInjectPosition(s string) (InjectPosition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "after":
		return After, nil
	case "before":
		return Before, nil
	case "replace":
		return Replace, nil
	default:
		return After, fmt.Errorf("invalid injection position %q (expected before, after or replace)", s)
	}
}

// ExpandVars substitutes %name% tokens of a fragment source with vars.
// Tokens without a matching key are left untouched.
func ExpandVars(src string, vars map[string]string) string {
	if len(vars) == 0 {
		return src
	}
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "%"+k+"%", v)
	}
	return strings.NewReplacer(pairs...).Replace(src)
}

// Inject parses fragment and splices its top-level elements at the named
// anchor. See InjectDocument.
func (d *Document) Inject(anchor, fragment string, pos InjectPosition) (*Document, error) {
	frag, err := Parse(fragment, WithName(d.name+"#"+anchor), WithDialect(d.dialect))
	if err != nil {
		return nil, fmt.Errorf("invalid fragment for anchor %q: %w", anchor, err)
	}
	return d.InjectDocument(anchor, frag, pos)
}

// InjectDocument splices the top-level elements of frag at the named anchor.
//
// Repeated injections at the same anchor accumulate in call order. Replace
// removes the anchor, so later injections at that name fail. Anchors,
// groups and placeholders of the fragment join the target namespace.
// It fails with *AnchorNotFoundError when the anchor is absent and with
// *TemplateSyntaxError when a fragment anchor already exists in d or a
// top-level fragment element may not appear where the anchor sits.
func (d *Document) InjectDocument(anchor string, frag *Document, pos InjectPosition) (*Document, error) {
	anchorID, ok := d.findAnchor(anchor)
	if !ok {
		return nil, &AnchorNotFoundError{Anchor: anchor, Available: d.Anchors()}
	}

	parentID := d.nodes[anchorID].parent
	for _, id := range frag.order()[1:] {
		n := &frag.nodes[id]
		if n.parent != Root {
			continue
		}
		if err := checkPlacement(n.kind, parentID, d.nodes, true, n.pos); err != nil {
			return nil, fmt.Errorf("fragment for anchor %q: %w", anchor, err)
		}
	}

	existing := make(map[string]struct{})
	for _, name := range d.Anchors() {
		if pos == Replace && name == anchor {
			continue
		}
		existing[name] = struct{}{}
	}
	for _, id := range frag.order() {
		n := &frag.nodes[id]
		if n.kind != KindInjection {
			continue
		}
		if _, dup := existing[n.attr("name")]; dup {
			return nil, syntaxErrorf(n.pos, "duplicate injection anchor %q", n.attr("name"))
		}
	}

	out := d.clone()

	// Copy the fragment arena (without its root) behind the target arena.
	base := NodeID(len(out.nodes)) - 1
	remap := func(id NodeID) NodeID { return base + id }
	var spliced []part
	for _, id := range frag.order()[1:] {
		n := frag.nodes[id]
		n.parts = slices.Clone(n.parts)
		for i, p := range n.parts {
			if p.isChild() {
				n.parts[i].child = remap(p.child)
			}
		}
		if n.parent == Root {
			n.parent = parentID
			spliced = append(spliced, childPart(remap(id)))
		} else {
			n.parent = remap(n.parent)
		}
		for len(out.nodes) <= int(remap(id)) {
			out.nodes = append(out.nodes, node{})
		}
		out.nodes[remap(id)] = n
	}

	for tag, enabled := range frag.groups {
		if _, set := out.groups[tag]; !set {
			out.groups[tag] = enabled
		}
	}

	parent := &out.nodes[parentID]
	parts := slices.Clone(parent.parts)
	idx := slices.IndexFunc(parts, func(p part) bool { return p.child == anchorID })

	switch pos {
	case Before:
		parts = slices.Insert(parts, idx, spliced...)
	case Replace:
		parts = slices.Replace(parts, idx, idx+1, spliced...)
		delete(out.afterCount, anchorID)
	default:
		at := idx + 1 + out.afterCount[anchorID]
		parts = slices.Insert(parts, at, spliced...)
		out.afterCount[anchorID] += len(spliced)
	}
	parent.parts = parts
	return out, nil
}
