// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import (
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Config is the PostgreSQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "postgres",
	DefaultSchema: "public",
	DateLiteral:   "TO_TIMESTAMP('%s','YYYY-MM-DD HH24:MI:SS')",
	DateLayout:    "2006-01-02 15:04:05",
	Limit:         core.LimitClause,
	TrueLiteral:   "TRUE",
	FalseLiteral:  "FALSE",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase, // Postgres normalizes unquoted to lowercase
	},
	// A manually maintained list of frequently problematic identifiers.
	ReservedWords: []string{
		"user", "order", "group", "table", "select", "from", "where", "index",
		"all", "and", "any", "array", "as", "asc", "between", "both", "case",
		"cast", "check", "column", "constraint", "create", "current_date",
		"current_timestamp", "current_user", "default", "desc", "distinct",
		"else", "end", "except", "false", "fetch", "for", "foreign", "full",
		"having", "in", "inner", "intersect", "into", "is", "join", "leading",
		"left", "like", "limit", "natural", "not", "null", "offset", "on",
		"only", "or", "outer", "primary", "references", "right", "some", "then",
		"to", "true", "union", "unique", "using", "when", "window", "with",
	},
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.New(Config).Build()
