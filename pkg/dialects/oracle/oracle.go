// Package oracle provides the Oracle SQL dialect definition.
//
// Oracle is the historical home of the extraction schema. Templates rendered
// with this dialect use TO_DATE literals and ROWNUM-based preview limits.
package oracle

import (
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

func init() {
	dialect.Register(Oracle)
}

// Config is the Oracle dialect configuration.
var Config = &core.DialectConfig{
	Name:         "oracle",
	DateLiteral:  "TO_DATE('%s','YYYY-MM-DD HH24:MI:SS')",
	DateLayout:   "2006-01-02 15:04:05",
	Limit:        core.LimitRownum,
	TrueLiteral:  "1",
	FalseLiteral: "0",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormUppercase, // Oracle normalizes unquoted to uppercase
	},
	ReservedWords: []string{
		"access", "add", "all", "alter", "and", "any", "as", "asc", "audit",
		"between", "by", "char", "check", "cluster", "column", "comment",
		"compress", "connect", "create", "current", "date", "decimal", "default",
		"delete", "desc", "distinct", "drop", "else", "exclusive", "exists",
		"file", "float", "for", "from", "grant", "group", "having", "identified",
		"in", "index", "insert", "integer", "intersect", "into", "is", "level",
		"like", "lock", "long", "minus", "mode", "not", "null", "number", "of",
		"on", "option", "or", "order", "prior", "public", "raw", "rename",
		"resource", "revoke", "row", "rownum", "rows", "select", "session",
		"set", "share", "size", "start", "synonym", "table", "then", "to",
		"trigger", "uid", "union", "unique", "update", "user", "values",
		"varchar", "varchar2", "view", "where", "with",
	},
}

// Oracle is the Oracle dialect.
var Oracle = dialect.New(Config).Build()
