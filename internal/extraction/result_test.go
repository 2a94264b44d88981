package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapextract/internal/registry"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

func TestResult_ProductRoundTrip(t *testing.T) {
	ectx := core.NewExtractionContext("RUN1", registry.ProductAggRDB, "obsmer")
	strata := core.Strata{SpaceColumn: "rect", TimeColumn: "quarter"}
	ectx.Strata = &strata

	res := &Result{
		RunID:   "RUN1",
		Format:  registry.ProductAggRDB,
		Context: ectx,
		Sheets: []SheetResult{
			{Sheet: "AGG_HH", Table: "p_obsmer_agg_hh", Columns: []string{"YEAR", "STATION_COUNT"}, RowCount: 4},
			{Sheet: "AGG_SL", Table: "p_obsmer_agg_sl", Columns: []string{"YEAR", "SPECIES"}, RowCount: 9},
		},
	}

	p := res.Product()
	assert.Equal(t, "obsmer", p.Label)
	assert.Equal(t, &strata, p.Strata)
	assert.Equal(t, map[string]string{"AGG_HH": "p_obsmer_agg_hh", "AGG_SL": "p_obsmer_agg_sl"}, p.SheetTables)

	back := ProductResult(p)
	assert.Equal(t, []string{"AGG_HH", "AGG_SL"}, back.SheetNames(), "sheets follow the format order")
	hh, ok := back.Sheet("agg_hh")
	require.True(t, ok)
	assert.Equal(t, "p_obsmer_agg_hh", hh.Table)
	assert.Equal(t, []string{"YEAR", "STATION_COUNT"}, hh.Columns)

	table, ok := back.Context.TableName("AGG_SL")
	require.True(t, ok)
	assert.Equal(t, "p_obsmer_agg_sl", table)
}

func TestJobResult(t *testing.T) {
	job := &core.Job{
		ID:     "job-1",
		Format: core.FormatRef{Label: "RDB", Version: "1.3"},
		Status: core.JobStatusSuccess,
		Sheets: []core.JobSheet{
			{Sheet: "TR", TableName: "EXT_TR_ABC", RowCount: 2, ColumnCount: 2, Columns: []string{"TRIP_CODE", "YEAR"}},
			{Sheet: "HH", TableName: "EXT_HH_ABC", RowCount: 3},
		},
	}

	res := JobResult(job)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, []string{"TR", "HH"}, res.Format.SheetNames)
	tr, ok := res.Sheet("TR")
	require.True(t, ok)
	assert.Equal(t, "EXT_TR_ABC", tr.Table)
	assert.Equal(t, []string{"TRIP_CODE", "YEAR"}, tr.Columns)

	job.Status = core.JobStatusError
	assert.Equal(t, StateFailed, JobResult(job).State)
}
