package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	return NewRenderer(out, errOut, mode), out, errOut
}

func TestNewRenderer_AutoWithoutTerminal(t *testing.T) {
	r, _, _ := newTestRenderer(ModeAuto)
	assert.Equal(t, ModeJSON, r.Mode())

	r, _, _ = newTestRenderer("")
	assert.Equal(t, ModeJSON, r.Mode())
}

func TestRenderer_Render(t *testing.T) {
	type sheet struct {
		Sheet string `json:"sheet" yaml:"sheet"`
		Rows  int    `json:"rows" yaml:"rows"`
	}
	data := Table{
		Header: []string{"SHEET", "ROWS"},
		Rows:   [][]any{{"TR", 2}, {"HH", 3}},
		Value:  []sheet{{"TR", 2}, {"HH", 3}},
		Footer: "2 sheets",
	}

	tests := []struct {
		name string
		mode Mode
		want []string
	}{
		{name: "table", mode: ModeTable, want: []string{"SHEET", "ROWS", "TR", "HH", "2 sheets"}},
		{name: "json", mode: ModeJSON, want: []string{`"sheet": "TR"`, `"rows": 3`}},
		{name: "yaml", mode: ModeYAML, want: []string{"- sheet: TR", "  rows: 3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out, _ := newTestRenderer(tt.mode)
			require.NoError(t, r.Render(data))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRenderer_Infof(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeJSON)
	r.Infof("dropped %d tables", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "dropped 3 tables\n", errOut.String())
}

func TestRenderer_MessagesWithoutTerminal(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeTable)
	r.Successf("dropped %d tables", 3)
	r.Warnf("slow")
	r.Errorf("error: %s", "boom")
	r.Headingf("HH (p_x_hh)")

	assert.Empty(t, out.String())
	assert.Equal(t, "dropped 3 tables\nslow\nerror: boom\nHH (p_x_hh)\n", errOut.String(), "no escape sequences off a terminal")
}

func TestRenderer_Status(t *testing.T) {
	statuses := []string{"success", "error", "running", "pending"}

	t.Run("plain", func(t *testing.T) {
		r, _, _ := newTestRenderer(ModeTable)
		for _, s := range statuses {
			assert.Equal(t, s, r.Status(s))
		}
	})

	t.Run("colored", func(t *testing.T) {
		out, errOut := new(bytes.Buffer), new(bytes.Buffer)
		r := NewRenderer(out, errOut, ModeTable, WithColorProfile(termenv.ANSI))
		seen := make(map[string]string)
		for _, s := range statuses {
			cell := r.Status(s)
			assert.Contains(t, cell, s)
			assert.Contains(t, cell, "\x1b[", "status %s is styled", s)
			seen[cell] = s
		}
		assert.Len(t, seen, len(statuses), "every status has its own style")

		r.Successf("done")
		assert.Contains(t, errOut.String(), "\x1b[")
		assert.Contains(t, errOut.String(), "done")
	})

	t.Run("json keeps cells plain", func(t *testing.T) {
		r := NewRenderer(new(bytes.Buffer), new(bytes.Buffer), ModeJSON, WithColorProfile(termenv.ANSI))
		assert.Equal(t, "success", r.Status("success"))
	})
}

func TestRenderer_TableWithStyledCells(t *testing.T) {
	out := new(bytes.Buffer)
	r := NewRenderer(out, new(bytes.Buffer), ModeTable, WithColorProfile(termenv.ANSI))
	require.NoError(t, r.Render(Table{
		Header: []string{"ID", "STATUS"},
		Rows:   [][]any{{"job-1", r.Status("success")}, {"job-2", r.Status("error")}},
	}))
	assert.Contains(t, out.String(), r.Styles().Success.Render("success"))
	assert.Contains(t, out.String(), r.Styles().Error.Render("error"))
}

func TestRenderer_Rows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"TRIP_CODE", "PROJECT"}).
			AddRow(int64(1), []byte("SIH-OBSMER")).
			AddRow(int64(2), nil),
	)
	rows, err := db.Query("SELECT TRIP_CODE, PROJECT FROM EXT_TR")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	r, out, _ := newTestRenderer(ModeTable)
	require.NoError(t, r.Rows(rows))
	assert.Contains(t, out.String(), "SIH-OBSMER")
	assert.Contains(t, out.String(), "NULL")
	assert.Contains(t, out.String(), "(2 rows)")
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2020, 3, 1, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"RDB", "RDB"},
		{[]byte("COST"), "COST"},
		{ts, "2020-03-01 08:30:00"},
		{&ts, "2020-03-01 08:30:00"},
		{(*time.Time)(nil), ""},
		{12.5, "12.5"},
		{int64(42), "42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}
