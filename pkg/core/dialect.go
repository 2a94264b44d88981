package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data, no rendering functions.
//
// The runtime behavior (literal rendering, limits, quoting) lives in
// pkg/dialect.Dialect, which embeds this config.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "duckdb", "oracle")
	Name string

	// Identifiers defines quoting and normalization rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// DateLiteral is a fmt pattern receiving the formatted timestamp,
	// e.g. "TO_DATE('%s','YYYY-MM-DD HH24:MI:SS')".
	DateLiteral string

	// DateLayout is the Go time layout used to format timestamps for DateLiteral.
	DateLayout string

	// Limit selects how row limits are expressed.
	Limit LimitStyle

	// TrueLiteral and FalseLiteral render booleans.
	TrueLiteral  string
	FalseLiteral string

	// ReservedWords are identifiers that must be quoted when used as aliases.
	ReservedWords []string
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Oracle).
	NormUppercase
	// NormCaseInsensitive normalizes to lowercase for comparison (DuckDB, SQLite).
	NormCaseInsensitive
)

// LimitStyle defines how a row limit is appended to a query.
type LimitStyle int

const (
	// LimitClause uses a trailing LIMIT n (Postgres, DuckDB, SQLite).
	LimitClause LimitStyle = iota
	// LimitFetchFirst uses FETCH FIRST n ROWS ONLY (ANSI).
	LimitFetchFirst
	// LimitRownum wraps the query with WHERE ROWNUM <= n (Oracle).
	LimitRownum
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `, [
	QuoteEnd      string                // End quote character (usually same as Quote, ] for [)
	Escape        string                // Escape sequence: "", ``, ]]
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}
