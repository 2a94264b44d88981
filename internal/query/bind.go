package query

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

// ValueKind classifies a bound value.
type ValueKind int

// ValueKind constants.
const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindStrings
	KindNumbers
	KindDate
	KindBool
	KindRaw
)

// Value is a typed literal bound to a placeholder.
// The zero Value is NULL.
type Value struct {
	kind ValueKind
	text string   // string, number, raw
	list []string // strings or numbers, sorted and deduplicated
	date time.Time
	b    bool
}

// Kind returns the kind of the value.
func (v Value) Kind() ValueKind { return v.kind }

// Null is the SQL NULL literal.
func Null() Value { return Value{kind: KindNull} }

// String binds a single-quoted string literal.
func String(s string) Value { return Value{kind: KindString, text: s} }

// StringPtr binds s, or NULL when s is nil.
func StringPtr(s *string) Value {
	if s == nil {
		return Null()
	}
	return String(*s)
}

// Int binds an integer literal.
func Int(n int64) Value { return Value{kind: KindNumber, text: strconv.FormatInt(n, 10)} }

// Float binds a decimal literal without exponent notation.
func Float(f float64) Value {
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// numeric is the set of types accepted by Number.
type numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Number binds any integer or floating point value.
func Number[T numeric](n T) Value {
	if T(0)-1 > 0 {
		// unsigned
		return Value{kind: KindNumber, text: strconv.FormatUint(uint64(n), 10)}
	}
	if v, ok := any(n).(float32); ok {
		return Value{kind: KindNumber, text: strconv.FormatFloat(float64(v), 'f', -1, 32)}
	}
	if float64(n) == float64(int64(n)) {
		return Int(int64(n))
	}
	return Float(float64(n))
}

// Ints binds a comma separated list of integers for IN lists.
// Values are deduplicated and sorted; an empty list binds to the empty string.
func Ints(ns ...int64) Value {
	sorted := slices.Clone(ns)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	list := make([]string, len(sorted))
	for i, n := range sorted {
		list[i] = strconv.FormatInt(n, 10)
	}
	return Value{kind: KindNumbers, list: list}
}

// Strings binds a comma separated list of quoted strings for IN lists.
// Values are deduplicated and sorted; an empty list binds to the empty string.
func Strings(ss ...string) Value {
	list := slices.Clone(ss)
	slices.Sort(list)
	return Value{kind: KindStrings, list: slices.Compact(list)}
}

// Date binds a timestamp rendered as the dialect's date cast expression.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Bool binds a boolean literal.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Raw binds a SQL fragment substituted verbatim (table names, expressions).
func Raw(sql string) Value { return Value{kind: KindRaw, text: sql} }

// Literal renders the value for dialect d.
func (v Value) Literal(d *dialect.Dialect) string {
	if d == nil {
		d = dialect.Default
	}
	switch v.kind {
	case KindString:
		return d.StringLiteral(v.text)
	case KindNumber, KindRaw:
		return v.text
	case KindNumbers:
		return strings.Join(v.list, ",")
	case KindStrings:
		quoted := make([]string, len(v.list))
		for i, s := range v.list {
			quoted[i] = d.StringLiteral(s)
		}
		return strings.Join(quoted, ",")
	case KindDate:
		return d.DateLiteral(v.date)
	case KindBool:
		return d.BoolLiteral(v.b)
	default:
		return "NULL"
	}
}

// Bind returns a snapshot where placeholder name renders as v.
func (d *Document) Bind(name string, v Value) *Document {
	out := d.clone()
	out.binds[strings.TrimPrefix(name, "&")] = v
	return out
}

// BindAll binds several placeholders at once.
func (d *Document) BindAll(values map[string]Value) *Document {
	out := d.clone()
	for name, v := range values {
		out.binds[strings.TrimPrefix(name, "&")] = v
	}
	return out
}

var placeholderRe = regexp.MustCompile(`^&([A-Za-z_][A-Za-z0-9_]*)`)

// scanPlaceholders calls fn for every &name token of text outside single-quoted
// SQL literals and replaces the token with fn's result.
func scanPlaceholders(text string, fn func(token, name string) string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	quoted := false
	for i := 0; i < len(text); {
		switch c := text[i]; {
		case c == '\'':
			quoted = !quoted
		case c == '&' && !quoted:
			if m := placeholderRe.FindStringSubmatch(text[i:]); m != nil {
				b.WriteString(fn(m[0], m[1]))
				i += len(m[0])
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

func placeholderNames(text string) []string {
	var names []string
	scanPlaceholders(text, func(token, name string) string {
		names = append(names, name)
		return token
	})
	return names
}

// substitute replaces bound placeholders of text and records unbound names.
// Text inside single-quoted literals is never substituted, so 'R&D' stays as is.
func (d *Document) substitute(text string, unbound map[string]struct{}) string {
	return scanPlaceholders(text, func(token, name string) string {
		v, ok := d.binds[name]
		if !ok {
			unbound[name] = struct{}{}
			return token
		}
		return v.Literal(d.dialect)
	})
}
