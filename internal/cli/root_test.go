package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapextract/internal/extraction"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// execute runs the CLI in a fresh project directory and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append(args, "--state", filepath.Join(dir, "state.db")))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapExtract v"+Version)
}

func TestHelpListsCommands(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	for _, want := range []string{"formats", "render", "run", "jobs", "products", "version"} {
		assert.Contains(t, out, want)
	}
}

func TestFormatsCommand(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		labels []string
	}{
		{
			name:   "all formats",
			args:   []string{"formats"},
			labels: []string{"RDB", "COST", "FREE1", "SURVIVAL_TEST", "PMFM_TRIP", "RJB_TRIP", "AGG_RDB", "AGG_COST", "AGG_PMFM_TRIP", "RDB"},
		},
		{
			name:   "products",
			args:   []string{"formats", "--category", "product"},
			labels: []string{"AGG_RDB", "AGG_COST", "AGG_PMFM_TRIP", "RDB"},
		},
		{
			name:   "family fallback",
			args:   []string{"formats", "RDB_OBSMER"},
			labels: []string{"RDB"},
		},
		{
			name:   "fallback within category",
			args:   []string{"formats", "my_agg_rdb", "--category", "product"},
			labels: []string{"AGG_RDB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append(tt.args, "-o", "json")...)
			require.NoError(t, err)

			var formats []core.Format
			require.NoError(t, json.Unmarshal([]byte(out), &formats))
			labels := make([]string, len(formats))
			for i, f := range formats {
				labels[i] = f.Label
			}
			assert.Equal(t, tt.labels, labels)
		})
	}
}

func TestFormatsCommand_Unknown(t *testing.T) {
	_, _, err := execute(t, "formats", "UNKNOWN", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN")

	_, _, err = execute(t, "formats", "--category", "archived")
	assert.Error(t, err)
}

func TestFormatsCommand_Table(t *testing.T) {
	out, _, err := execute(t, "formats", "--category", "product", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "AGG_HH, AGG_SL, AGG_HL")
	assert.Contains(t, out, "(4 formats)")
}

func TestRenderCommand(t *testing.T) {
	out, _, err := execute(t, "render", "RDB",
		"--target-type", "sqlite", "--database", ":memory:",
		"--program", "SIH-OBSMER", "--start", "2020-01-01", "--sheet", "hh",
		"-o", "json")
	require.NoError(t, err)

	var sheets []extraction.SheetResult
	require.NoError(t, json.Unmarshal([]byte(out), &sheets))
	require.NotEmpty(t, sheets)

	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Sheet
	}
	assert.Equal(t, []string{"TR", "HH"}, names, "a sheet brings the sheets it depends on")
	assert.Contains(t, sheets[0].SQL, "'SIH-OBSMER'")
	assert.Contains(t, sheets[0].SQL, "datetime('2020-01-01 00:00:00')")
	assert.True(t, strings.HasPrefix(sheets[1].SQL, "SELECT"))
}

func TestRenderCommand_BadDate(t *testing.T) {
	_, _, err := execute(t, "render", "RDB", "--target-type", "sqlite", "--start", "01/01/2020")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start")
}

func TestJobsAndProducts_Empty(t *testing.T) {
	for _, args := range [][]string{{"jobs", "list"}, {"products", "list"}} {
		out, _, err := execute(t, append(args, "-o", "json")...)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", out)
	}

	_, _, err := execute(t, "jobs", "show", "missing")
	assert.Error(t, err)
	_, _, err = execute(t, "products", "show", "missing")
	assert.Error(t, err)
}

func TestInvalidConfiguration(t *testing.T) {
	_, _, err := execute(t, "formats", "--target-type", "snowflake")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snowflake")

	_, _, err = execute(t, "formats", "-o", "xml")
	assert.Error(t, err)
}
