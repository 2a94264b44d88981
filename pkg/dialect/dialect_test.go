package dialect

import (
	"testing"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringLiteral(t *testing.T) {
	d := NewDialect("test").Build()

	tests := []struct {
		in   string
		want string
	}{
		{"abc", "'abc'"},
		{"", "''"},
		{"O'Brien", "'O''Brien'"},
		{"''", "''''''"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, d.StringLiteral(tt.in))
		})
	}
}

func TestDateLiteral(t *testing.T) {
	ts := time.Date(2024, 3, 7, 8, 9, 10, 0, time.UTC)

	d := NewDialect("test").Build()
	assert.Equal(t, "TIMESTAMP '2024-03-07 08:09:10'", d.DateLiteral(ts))

	custom := NewDialect("custom").
		DateLiteral("TO_DATE('%s','YYYY-MM-DD')", "2006-01-02").
		Build()
	assert.Equal(t, "TO_DATE('2024-03-07','YYYY-MM-DD')", custom.DateLiteral(ts))
}

func TestWithLimit(t *testing.T) {
	tests := []struct {
		name  string
		style core.LimitStyle
		n     int
		want  string
	}{
		{"no limit", core.LimitClause, 0, "SELECT 1"},
		{"negative", core.LimitRownum, -4, "SELECT 1"},
		{"limit clause", core.LimitClause, 5, "SELECT * FROM (SELECT 1) T LIMIT 5"},
		{"fetch first", core.LimitFetchFirst, 5, "SELECT * FROM (SELECT 1) T FETCH FIRST 5 ROWS ONLY"},
		{"rownum", core.LimitRownum, 5, "SELECT * FROM (SELECT 1) WHERE ROWNUM <= 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDialect("test").Limit(tt.style).Build()
			assert.Equal(t, tt.want, d.WithLimit("SELECT 1", tt.n))
		})
	}
}

func TestQuoteIdentifierIfNeeded(t *testing.T) {
	d := NewDialect("test").ReservedWords("DATE", "order").Build()

	assert.True(t, d.IsReservedWord("date"))
	assert.True(t, d.IsReservedWord("ORDER"))
	assert.False(t, d.IsReservedWord("vessel"))

	assert.Equal(t, `"date"`, d.QuoteIdentifierIfNeeded("date"))
	assert.Equal(t, "vessel", d.QuoteIdentifierIfNeeded("vessel"))
	assert.Equal(t, `"a""b"`, d.QuoteIdentifier(`a"b`))
}

func TestLiterals(t *testing.T) {
	d := NewDialect("test").Booleans("1", "0").Build()

	assert.Equal(t, "1", d.BoolLiteral(true))
	assert.Equal(t, "0", d.BoolLiteral(false))
	assert.Equal(t, "-42", d.IntLiteral(-42))
	assert.Equal(t, "0.5", d.FloatLiteral(0.5))
	assert.Equal(t, "1000000", d.FloatLiteral(1e6))
}

func TestNormalizeName(t *testing.T) {
	upper := New(&core.DialectConfig{
		Name: "upper",
		Identifiers: core.IdentifierConfig{
			Quote: `"`, QuoteEnd: `"`, Escape: `""`,
			Normalization: core.NormUppercase,
		},
	}).Build()
	assert.Equal(t, "TRIP", upper.NormalizeName("trip"))

	lower := NewDialect("lower").Build()
	assert.Equal(t, "trip", lower.NormalizeName("TRIP"))
}

func TestConfigRoundTrip(t *testing.T) {
	d := NewDialect("test").
		DateLiteral("datetime('%s')", "").
		Limit(core.LimitClause).
		ReservedWords("select").
		Build()

	cfg := d.Config()
	assert.Equal(t, "test", cfg.Name)
	assert.Equal(t, "datetime('%s')", cfg.DateLiteral)
	assert.Equal(t, time.DateTime, cfg.DateLayout)
	assert.Equal(t, []string{"select"}, cfg.ReservedWords)

	rebuilt := New(cfg).Build()
	assert.Equal(t, d.WithLimit("SELECT 1", 2), rebuilt.WithLimit("SELECT 1", 2))
}

func TestRegistry(t *testing.T) {
	d := NewDialect("registry_test").Build()
	Register(d)

	got, ok := Get("REGISTRY_TEST")
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.Contains(t, List(), "registry_test")

	resolved, err := Resolve("")
	require.NoError(t, err)
	assert.Same(t, Default, resolved)

	_, err = Resolve("nope")
	var unknown *UnknownDialectError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
	assert.Contains(t, unknown.Available, "registry_test")
}
