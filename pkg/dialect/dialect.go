// Package dialect provides SQL dialect configuration and literal rendering.
//
// This package contains the public contract for dialect definitions used by the
// query binder and the extraction engine. Concrete dialect implementations
// are registered from pkg/dialects/*/ packages.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string // Default schema name ("main" for DuckDB, "public" for Postgres)

	dateLiteral   string
	dateLayout    string
	limit         core.LimitStyle
	trueLiteral   string
	falseLiteral  string
	reservedWords map[string]struct{} // All keywords that need quoting as identifiers
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	reserved := make([]string, 0, len(d.reservedWords))
	for w := range d.reservedWords {
		reserved = append(reserved, w)
	}
	return &core.DialectConfig{
		Name:          d.Name,
		Identifiers:   d.Identifiers,
		DefaultSchema: d.DefaultSchema,
		DateLiteral:   d.dateLiteral,
		DateLayout:    d.dateLayout,
		Limit:         d.limit,
		TrueLiteral:   d.trueLiteral,
		FalseLiteral:  d.falseLiteral,
		ReservedWords: reserved,
	}
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return strings.ToUpper(name)
	default:
		return strings.ToLower(name)
	}
}

// IsReservedWord returns true if the word needs quoting as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., " -> "")
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// StringLiteral renders s as a single-quoted SQL string literal.
func (d *Dialect) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// DateLiteral renders t as a timestamp literal in this dialect.
func (d *Dialect) DateLiteral(t time.Time) string {
	return fmt.Sprintf(d.dateLiteral, t.Format(d.dateLayout))
}

// BoolLiteral renders a boolean literal.
func (d *Dialect) BoolLiteral(b bool) string {
	if b {
		return d.trueLiteral
	}
	return d.falseLiteral
}

// IntLiteral renders an integer literal.
func (d *Dialect) IntLiteral(n int64) string {
	return strconv.FormatInt(n, 10)
}

// FloatLiteral renders a floating point literal without exponent notation.
func (d *Dialect) FloatLiteral(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WithLimit wraps a query so that it returns at most n rows.
// A non-positive n returns the query unchanged.
func (d *Dialect) WithLimit(query string, n int) string {
	if n <= 0 {
		return query
	}
	switch d.limit {
	case core.LimitRownum:
		return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", query, n)
	case core.LimitFetchFirst:
		return fmt.Sprintf("SELECT * FROM (%s) T FETCH FIRST %d ROWS ONLY", query, n)
	default:
		return fmt.Sprintf("SELECT * FROM (%s) T LIMIT %d", query, n)
	}
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	d *Dialect
}

// NewDialect creates a new dialect builder with ANSI defaults.
func NewDialect(name string) *Builder {
	return &Builder{
		d: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			dateLiteral:   "TIMESTAMP '%s'",
			dateLayout:    time.DateTime,
			limit:         core.LimitFetchFirst,
			trueLiteral:   "TRUE",
			falseLiteral:  "FALSE",
			reservedWords: make(map[string]struct{}),
		},
	}
}

// New creates a builder from a static dialect configuration.
// Empty fields keep the ANSI defaults.
func New(cfg *core.DialectConfig) *Builder {
	b := NewDialect(cfg.Name)
	if cfg.Identifiers.Quote != "" {
		b.d.Identifiers = cfg.Identifiers
	}
	b.d.DefaultSchema = cfg.DefaultSchema
	if cfg.DateLiteral != "" {
		b.DateLiteral(cfg.DateLiteral, cfg.DateLayout)
	}
	b.d.limit = cfg.Limit
	if cfg.TrueLiteral != "" {
		b.Booleans(cfg.TrueLiteral, cfg.FalseLiteral)
	}
	return b.ReservedWords(cfg.ReservedWords...)
}

// DateLiteral sets the timestamp literal pattern and the Go layout it receives.
func (b *Builder) DateLiteral(pattern, layout string) *Builder {
	b.d.dateLiteral = pattern
	if layout != "" {
		b.d.dateLayout = layout
	}
	return b
}

// Limit sets the row limit style.
func (b *Builder) Limit(style core.LimitStyle) *Builder {
	b.d.limit = style
	return b
}

// Booleans sets the boolean literals.
func (b *Builder) Booleans(t, f string) *Builder {
	b.d.trueLiteral = t
	b.d.falseLiteral = f
	return b
}

// ReservedWords adds words that need quoting as identifiers.
func (b *Builder) ReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.d.reservedWords[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}
