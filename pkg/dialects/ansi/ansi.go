// Package ansi provides the base ANSI SQL dialect.
//
// This dialect is used when no target dialect is configured. Its timestamp
// literals use the standard TIMESTAMP 'YYYY-MM-DD HH:MM:SS' form.
package ansi

import (
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

func init() {
	dialect.Register(ANSI)
}

// Config is the ANSI dialect configuration.
var Config = &core.DialectConfig{
	Name:         "ansi",
	DateLiteral:  "TIMESTAMP '%s'",
	DateLayout:   "2006-01-02 15:04:05",
	Limit:        core.LimitFetchFirst,
	TrueLiteral:  "TRUE",
	FalseLiteral: "FALSE",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormUppercase,
	},
	ReservedWords: []string{
		"all", "and", "as", "between", "by", "case", "date", "distinct", "from",
		"group", "having", "in", "month", "not", "null", "or", "order", "select",
		"table", "time", "timestamp", "union", "user", "where", "year",
	},
}

// ANSI is the base ANSI SQL dialect.
var ANSI = dialect.New(Config).Build()
