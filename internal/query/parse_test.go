package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		checkFunc func(t *testing.T, doc *Document)
	}{
		{
			name:  "minimal",
			input: `<query><select alias="ID">T.ID</select><from alias="T">TRIP</from></query>`,
			checkFunc: func(t *testing.T, doc *Document) {
				assert.Equal(t, []string{"id"}, doc.ColumnNames(AllColumns))
				assert.False(t, doc.HasDistinctOption())
				assert.Equal(t, 0, doc.Version())
			},
		},
		{
			name:  "xml declaration and comments",
			input: "<?xml version=\"1.0\"?>\n<!-- trips -->\n<query><select alias=\"A\">1</select></query>",
			checkFunc: func(t *testing.T, doc *Document) {
				assert.Equal(t, []string{"a"}, doc.ColumnNames(nil))
			},
		},
		{
			name:  "case-insensitive element names",
			input: `<QUERY option="Distinct"><SELECT alias="X">1</SELECT><GroupBy>1</GroupBy></QUERY>`,
			checkFunc: func(t *testing.T, doc *Document) {
				assert.True(t, doc.HasDistinctOption())
				assert.Equal(t, KindSelect, doc.Kind(1))
				assert.Equal(t, KindGroupBy, doc.Kind(2))
			},
		},
		{
			name:  "bare placeholder outside cdata",
			input: `<query><where>T.ID = &tripId AND T.X &lt; 3</where></query>`,
			checkFunc: func(t *testing.T, doc *Document) {
				assert.Equal(t, []string{"tripId"}, doc.Placeholders())
				sql, err := doc.Bind("tripId", Int(4)).Render()
				require.NoError(t, err)
				assert.Contains(t, sql, "WHERE T.ID = 4 AND T.X < 3")
			},
		},
		{
			name:  "placeholder inside cdata",
			input: `<query><where><![CDATA[T.D >= &startDate && 1 < 2]]></where></query>`,
			checkFunc: func(t *testing.T, doc *Document) {
				assert.Equal(t, []string{"startDate"}, doc.Placeholders())
			},
		},
		{
			name:  "escaped placeholder",
			input: `<query><where>P.LABEL = &amp;label</where></query>`,
			checkFunc: func(t *testing.T, doc *Document) {
				assert.Equal(t, []string{"label"}, doc.Placeholders())
			},
		},
		{
			name:  "group tags with commas and spaces",
			input: `<query><select alias="A" group="sex, agg tech">1</select></query>`,
			checkFunc: func(t *testing.T, doc *Document) {
				cols := doc.Columns()
				require.Len(t, cols, 1)
				assert.Equal(t, []string{"sex", "agg", "tech"}, cols[0].Groups)
			},
		},
		{
			name:  "lowercase root option",
			input: `<query lowercase="true"><select alias="TRIP_CODE">1</select></query>`,
			checkFunc: func(t *testing.T, doc *Document) {
				assert.True(t, doc.Lowercase())
				assert.Equal(t, []string{"trip_code"}, doc.OutputColumns())
			},
		},
		{
			name:  "nested where and anchors",
			input: `<query><where>1=1<where operator="OR"><injection name="inner"/></where></where><injection name="outer"/></query>`,
			checkFunc: func(t *testing.T, doc *Document) {
				assert.Equal(t, []string{"inner", "outer"}, doc.Anchors())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.input)
			require.NoError(t, err)
			tt.checkFunc(t, doc)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty", "", "empty template"},
		{"not well-formed", `<query><select alias="A">1</query>`, ""},
		{"unknown element", `<query><union>1</union></query>`, "unknown element <union>"},
		{"wrong root", `<select alias="A">1</select>`, "root element must be <query>"},
		{"nested query", `<query><where><query/></where></query>`, "cannot be nested"},
		{"two roots", `<query/><query/>`, "multiple root elements"},
		{"text outside root", `<query/>SELECT`, "text outside of <query>"},
		{"text in query", `<query>SELECT 1</query>`, "unexpected text in <query>"},
		{"select inside where", `<query><where><select>1</select></where></query>`, "must be a direct child of <query>"},
		{"in outside where", `<query><in field="X">1</in></query>`, "<in> must be inside"},
		{"in without field", `<query><where><in>1</in></where></query>`, "requires a field attribute"},
		{"anchor without name", `<query><injection/></query>`, "requires a name attribute"},
		{"duplicate anchor", `<query><injection name="a"/><injection name="a"/></query>`, `duplicate injection anchor "a"`},
		{"bad operator", `<query><where operator="XOR">1</where></query>`, "invalid operator"},
		{"bad direction", `<query><orderby direction="UP">1</orderby></query>`, "invalid direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, WithName("trip.xml"))
			require.Error(t, err)

			var syntaxErr *TemplateSyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse("<query>\n  <select alias=\"A\">1</select>\n  <bogus/>\n</query>", WithName("trip.xml"))

	var syntaxErr *TemplateSyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "trip.xml", syntaxErr.Pos.File)
	assert.Equal(t, 3, syntaxErr.Pos.Line)
	assert.Contains(t, err.Error(), "trip.xml:3:")
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("<nope/>") })
	assert.NotPanics(t, func() { MustParse("<query/>") })
}

func TestEscapePlaceholders(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a = &x", "a = &amp;x"},
		{"&lt; &amp; &#38;", "&lt; &amp; &#38;"},
		{"&1 & b", "&1 & b"},
		{"<![CDATA[&x]]> &y", "<![CDATA[&x]]> &amp;y"},
		{"<!-- &x --> &y", "<!-- &x --> &amp;y"},
		{"<![CDATA[&x", "<![CDATA[&x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapePlaceholders(tt.in))
		})
	}
}
