package query

import (
	"testing"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Literal(t *testing.T) {
	d := dialect.NewDialect("test").
		DateLiteral("TO_DATE('%s','YYYY-MM-DD HH24:MI:SS')", "").
		Booleans("1", "0").
		Build()
	label := "O'Neil"

	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"string", String("RDB"), "'RDB'"},
		{"string with quote", String("it's"), "'it''s'"},
		{"empty string is not null", String(""), "''"},
		{"null", Null(), "NULL"},
		{"zero value is null", Value{}, "NULL"},
		{"nil pointer", StringPtr(nil), "NULL"},
		{"pointer", StringPtr(&label), "'O''Neil'"},
		{"int", Int(-12), "-12"},
		{"float", Float(2.5), "2.5"},
		{"generic int", Number(int32(9)), "9"},
		{"generic float", Number(0.25), "0.25"},
		{"generic whole float", Number(3.0), "3"},
		{"generic max uint64", Number(uint64(18446744073709551615)), "18446744073709551615"},
		{"generic uint8", Number(uint8(200)), "200"},
		{"generic float32", Number(float32(0.1)), "0.1"},
		{"generic min int64", Number(int64(-9223372036854775808)), "-9223372036854775808"},
		{"ints dedup sorted", Ints(3, 1, 3, 2), "1,2,3"},
		{"ints empty", Ints(), ""},
		{"strings dedup sorted", Strings("SIH", "ADAP", "SIH"), "'ADAP','SIH'"},
		{"strings escaped", Strings("a'b"), "'a''b'"},
		{"strings empty", Strings(), ""},
		{"date", Date(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)), "TO_DATE('2020-01-31 00:00:00','YYYY-MM-DD HH24:MI:SS')"},
		{"bool", Bool(true), "1"},
		{"raw", Raw("EXT_TR_42"), "EXT_TR_42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Literal(d))
		})
	}
}

func TestValue_LiteralDefaultDialect(t *testing.T) {
	assert.Equal(t, "TIMESTAMP '2021-05-06 07:08:09'", Date(time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC)).Literal(nil))
}

func TestBind_StringRoundTrip(t *testing.T) {
	doc := MustParse(`<query><select alias="L">&label</select></query>`)

	for _, s := range []string{"plain", "it's", "''", "a'b'c"} {
		t.Run(s, func(t *testing.T) {
			sql, err := doc.Bind("label", String(s)).Render()
			require.NoError(t, err)

			lit := sql[len("SELECT\n  ") : len(sql)-len(" AS L")]
			require.True(t, len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'')
			assert.Equal(t, s, unquote(lit))
		})
	}
}

func unquote(lit string) string {
	inner := lit[1 : len(lit)-1]
	var out []byte
	for i := 0; i < len(inner); i++ {
		out = append(out, inner[i])
		if inner[i] == '\'' {
			i++ // skip the doubled quote
		}
	}
	return string(out)
}

func TestBind_UnboundPlaceholders(t *testing.T) {
	doc := MustParse(`<query>
  <select alias="A">&colA</select>
  <from alias="T">TRIP</from>
  <where>1=1</where>
  <where group="vesselFilter"><in field="T.VESSEL_FK">&vesselIds</in></where>
  <where group="programFilter"><in field="P.LABEL">&progLabels</in></where>
</query>`)

	_, err := doc.Render()
	var unbound *UnboundPlaceholderError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, []string{"colA", "progLabels", "vesselIds"}, unbound.Names)

	// Placeholders in disabled groups need no value.
	sql, err := doc.
		WithGroup("vesselFilter", false).
		WithGroup("programFilter", false).
		Bind("colA", Int(1)).
		Render()
	require.NoError(t, err)
	assert.NotContains(t, sql, "&")
	assert.Equal(t, []string{"colA", "progLabels", "vesselIds"}, doc.Placeholders())
}

func TestBind_DoesNotSubstituteValues(t *testing.T) {
	doc := MustParse(`<query><select alias="A">&a</select><select alias="B">&b</select></query>`)

	sql, err := doc.BindAll(map[string]Value{
		"a":  String("&b"),
		"&b": Int(2),
	}).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  '&b' AS A,\n  2 AS B", sql)
}

func TestBind_QuotedLiteralsKeepAmpersand(t *testing.T) {
	doc := MustParse(`<query>
  <select alias="DEPT">'R&amp;D'</select>
  <select alias="NAME">'Fish &amp; Chips' || &suffix</select>
  <from alias="T">TRIP</from>
  <where>T.COMMENTS = 'it''s &amp;here' AND T.ID = &tripId</where>
</query>`)

	assert.Equal(t, []string{"suffix", "tripId"}, doc.Placeholders())

	sql, err := doc.BindAll(map[string]Value{"suffix": String("!"), "tripId": Int(4)}).Render()
	require.NoError(t, err)
	assert.Contains(t, sql, "'R&D' AS DEPT")
	assert.Contains(t, sql, "'Fish & Chips' || '!' AS NAME")
	assert.Contains(t, sql, "T.COMMENTS = 'it''s &here' AND T.ID = 4")
}

func TestBind_DialectDates(t *testing.T) {
	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := MustParse(`<query><where>T.D &gt;= &startDate</where></query>`).Bind("startDate", Date(ts))

	sqlite := dialect.NewDialect("sqlite").DateLiteral("datetime('%s')", "").Build()

	sql, err := doc.WithDialect(sqlite).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nWHERE T.D >= datetime('2023-01-02 03:04:05')", sql)

	sql, err = doc.Render()
	require.NoError(t, err)
	assert.Contains(t, sql, "TIMESTAMP '2023-01-02 03:04:05'")
}
