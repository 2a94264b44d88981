package query

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

// Option configures Parse.
type Option func(*parseOptions)

type parseOptions struct {
	name    string
	dialect *dialect.Dialect
}

// WithName sets the source name reported in error positions.
func WithName(name string) Option {
	return func(o *parseOptions) { o.name = name }
}

// WithDialect sets the dialect used to render bound literals.
func WithDialect(d *dialect.Dialect) Option {
	return func(o *parseOptions) { o.dialect = d }
}

// Parse parses a template into a Document.
// It fails with *TemplateSyntaxError if the source is not well-formed,
// uses an unknown element or declares the same anchor twice.
func Parse(src string, opts ...Option) (*Document, error) {
	o := parseOptions{dialect: dialect.Default}
	for _, opt := range opts {
		opt(&o)
	}

	nodes, err := parseNodes(src, o.name)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		name:       o.name,
		nodes:      nodes,
		groups:     make(map[string]bool),
		binds:      make(map[string]Value),
		dialect:    o.dialect,
		afterCount: make(map[NodeID]int),
	}
	doc.lowercase = strings.EqualFold(nodes[0].attr("lowercase"), "true")

	seen := make(map[string]Position)
	for _, id := range doc.order() {
		n := &doc.nodes[id]
		if n.kind != KindInjection {
			continue
		}
		name := n.attr("name")
		if prev, dup := seen[name]; dup {
			return nil, syntaxErrorf(n.pos, "duplicate injection anchor %q (first declared at %d:%d)", name, prev.Line, prev.Column)
		}
		seen[name] = n.pos
	}
	return doc, nil
}

// MustParse is like Parse but panics on error.
// It is intended for templates embedded in the binary.
func MustParse(src string, opts ...Option) *Document {
	doc, err := Parse(src, opts...)
	if err != nil {
		panic(err)
	}
	return doc
}

// parseNodes decodes src into an arena whose first node is the <query> root.
func parseNodes(src, name string) ([]node, error) {
	dec := xml.NewDecoder(strings.NewReader(escapePlaceholders(src)))
	dec.Strict = true

	var (
		nodes  []node
		stack  []NodeID
		closed bool
	)
	for {
		line, col := dec.InputPos()
		pos := Position{File: name, Line: line, Column: col}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return nil, syntaxErrorf(Position{File: name, Line: se.Line}, "%s", se.Msg)
			}
			return nil, syntaxErrorf(pos, "%v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			kind, ok := kindNames[strings.ToLower(t.Name.Local)]
			if !ok {
				return nil, syntaxErrorf(pos, "unknown element <%s>", t.Name.Local)
			}
			parent := NoNode
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			if err := checkPlacement(kind, parent, nodes, closed, pos); err != nil {
				return nil, err
			}

			n := node{
				kind:   kind,
				attrs:  make(map[string]string, len(t.Attr)),
				parent: parent,
				pos:    pos,
			}
			for _, a := range t.Attr {
				n.attrs[strings.ToLower(a.Name.Local)] = a.Value
			}
			n.groups = splitList(n.attr("group"), ", \t\n")
			if err := checkAttributes(&n); err != nil {
				return nil, err
			}

			id := NodeID(len(nodes))
			nodes = append(nodes, n)
			if parent != NoNode {
				nodes[parent].parts = append(nodes[parent].parts, childPart(id))
			}
			stack = append(stack, id)

		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				closed = true
			}

		case xml.CharData:
			text := string(t)
			if len(stack) == 0 {
				if strings.TrimSpace(text) != "" {
					return nil, syntaxErrorf(pos, "text outside of <query>")
				}
				continue
			}
			top := &nodes[stack[len(stack)-1]]
			switch top.kind {
			case KindQuery, KindInjection:
				if strings.TrimSpace(text) != "" {
					return nil, syntaxErrorf(pos, "unexpected text in <%s>", top.kind)
				}
				continue
			}
			if k := len(top.parts); k > 0 && !top.parts[k-1].isChild() {
				top.parts[k-1].text += text
			} else {
				top.parts = append(top.parts, textPart(text))
			}
		}
	}

	if len(nodes) == 0 {
		return nil, syntaxErrorf(Position{File: name}, "empty template: missing <query> element")
	}
	return nodes, nil
}

// checkPlacement validates where an element of the given kind may appear.
func checkPlacement(kind NodeKind, parent NodeID, nodes []node, closed bool, pos Position) error {
	if parent == NoNode {
		if closed || len(nodes) > 0 {
			return syntaxErrorf(pos, "multiple root elements")
		}
		if kind != KindQuery {
			return syntaxErrorf(pos, "root element must be <query>, got <%s>", kind)
		}
		return nil
	}

	pk := nodes[parent].kind
	switch kind {
	case KindQuery:
		return syntaxErrorf(pos, "<query> cannot be nested")
	case KindIn:
		if pk != KindWhere && pk != KindHaving {
			return syntaxErrorf(pos, "<in> must be inside <where> or <having>, got <%s>", pk)
		}
	case KindWhere:
		if pk != KindQuery && pk != KindWhere {
			return syntaxErrorf(pos, "<where> must be inside <query> or <where>, got <%s>", pk)
		}
	case KindInjection:
		if pk != KindQuery && pk != KindWhere {
			return syntaxErrorf(pos, "<injection> must be inside <query> or <where>, got <%s>", pk)
		}
	default:
		if pk != KindQuery {
			return syntaxErrorf(pos, "<%s> must be a direct child of <query>, got <%s>", kind, pk)
		}
	}
	return nil
}

func checkAttributes(n *node) error {
	switch n.kind {
	case KindInjection:
		if strings.TrimSpace(n.attr("name")) == "" {
			return syntaxErrorf(n.pos, "<injection> requires a name attribute")
		}
	case KindIn:
		if strings.TrimSpace(n.attr("field")) == "" {
			return syntaxErrorf(n.pos, "<in> requires a field attribute")
		}
	case KindWhere, KindHaving:
		switch strings.ToUpper(n.attr("operator")) {
		case "", "AND", "OR":
		default:
			return syntaxErrorf(n.pos, "invalid operator %q (expected AND or OR)", n.attr("operator"))
		}
	case KindOrderBy:
		switch strings.ToUpper(n.attr("direction")) {
		case "", "ASC", "DESC":
		default:
			return syntaxErrorf(n.pos, "invalid direction %q (expected ASC or DESC)", n.attr("direction"))
		}
	}
	return nil
}

// escapePlaceholders rewrites bare &name tokens to &amp;name so that the XML
// decoder keeps them as text. Real entity references (&lt; &#38;) and
// CDATA or comment sections are left untouched.
func escapePlaceholders(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); {
		rest := src[i:]
		if skip := rawSectionLen(rest); skip > 0 {
			b.WriteString(rest[:skip])
			i += skip
			continue
		}
		if src[i] == '&' {
			j := i + 1
			for j < len(src) && isIdentByte(src[j], j == i+1) {
				j++
			}
			if j > i+1 && (j == len(src) || src[j] != ';') {
				b.WriteString("&amp;")
				i++
				continue
			}
		}
		b.WriteByte(src[i])
		i++
	}
	return b.String()
}

func rawSectionLen(s string) int {
	for _, delim := range [][2]string{{"<![CDATA[", "]]>"}, {"<!--", "-->"}} {
		if !strings.HasPrefix(s, delim[0]) {
			continue
		}
		end := strings.Index(s[len(delim[0]):], delim[1])
		if end < 0 {
			return len(s)
		}
		return len(delim[0]) + end + len(delim[1])
	}
	return 0
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}
