// Package sqlite provides the SQLite SQL dialect definition.
package sqlite

import (
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

// Config is the SQLite dialect configuration.
var Config = &core.DialectConfig{
	Name:          "sqlite",
	DefaultSchema: "main",
	DateLiteral:   "datetime('%s')",
	DateLayout:    "2006-01-02 15:04:05",
	Limit:         core.LimitClause,
	TrueLiteral:   "1",
	FalseLiteral:  "0",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	ReservedWords: []string{
		"all", "and", "as", "between", "by", "case", "check", "collate",
		"column", "constraint", "create", "default", "delete", "desc",
		"distinct", "drop", "else", "escape", "except", "exists", "from",
		"group", "having", "in", "index", "insert", "intersect", "into", "is",
		"join", "limit", "not", "null", "on", "or", "order", "primary",
		"references", "select", "set", "table", "then", "to", "union",
		"unique", "update", "using", "values", "when", "where",
	},
}

// SQLite is the SQLite dialect.
var SQLite = dialect.New(Config).Build()
