// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import (
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// Config is the DuckDB dialect configuration.
var Config = &core.DialectConfig{
	Name:          "duckdb",
	DefaultSchema: "main",
	DateLiteral:   "strptime('%s','%%Y-%%m-%%d %%H:%%M:%%S')",
	DateLayout:    "2006-01-02 15:04:05",
	Limit:         core.LimitClause,
	TrueLiteral:   "true",
	FalseLiteral:  "false",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	ReservedWords: []string{
		"all", "analyse", "analyze", "and", "any", "array", "as", "asc",
		"both", "case", "cast", "check", "collate", "column", "constraint",
		"create", "default", "desc", "distinct", "do", "else", "end", "except",
		"false", "fetch", "for", "foreign", "from", "group", "having", "in",
		"initially", "intersect", "into", "lateral", "leading", "limit",
		"not", "null", "offset", "on", "only", "or", "order", "pivot",
		"placing", "primary", "qualify", "references", "returning", "select",
		"some", "summarize", "symmetric", "table", "then", "to", "trailing",
		"true", "union", "unique", "unpivot", "using", "variadic", "when",
		"where", "window", "with",
	},
}

// DuckDB is the DuckDB dialect.
var DuckDB = dialect.New(Config).Build()
