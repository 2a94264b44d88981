package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// queryInt runs a single-value query.
func queryInt(t *testing.T, adp *Adapter, sql string) int64 {
	t.Helper()
	rows, err := adp.Query(context.Background(), sql)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())

	var n int64
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Err())
	return n
}

func TestAdapter_ProductTablesPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "extract.duckdb")

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: path}))
	_, err := adp.Exec(ctx, "CREATE TABLE p_obsmer_agg_hh AS SELECT * FROM (VALUES ('24E4', 2), ('25E4', 1)) T(STATISTICAL_RECTANGLE, STATION_COUNT)")
	require.NoError(t, err)
	require.NoError(t, adp.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "database file was not created")

	reopened := New(nil)
	require.NoError(t, reopened.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = reopened.Close() }()
	assert.Equal(t, int64(3), queryInt(t, reopened, "SELECT SUM(STATION_COUNT) FROM p_obsmer_agg_hh"))
}

func TestAdapter_DefaultsToMemory(t *testing.T) {
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{}))
	defer func() { _ = adp.Close() }()

	assert.True(t, adp.IsConnected())
	assert.Equal(t, "duckdb", adp.DialectName())
	assert.Equal(t, int64(1), queryInt(t, adp, "SELECT 1"))
}

func TestAdapter_CreateTableAsAndCount(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	_, err := adp.Exec(ctx, "CREATE TABLE TRIP AS SELECT * FROM (VALUES (1, 'A'), (2, 'B')) T(ID, LABEL)")
	require.NoError(t, err)

	_, err = adp.Exec(ctx, "CREATE TABLE P_TR AS SELECT ID AS TRIP_CODE FROM TRIP WHERE LABEL = 'A'")
	require.NoError(t, err)

	assert.Equal(t, int64(1), queryInt(t, adp, "SELECT COUNT(*) FROM P_TR"))
}

func TestAdapter_DateLiteral(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	assert.Equal(t, int64(2023), queryInt(t, adp, "SELECT year(TIMESTAMP '2023-06-01 10:00:00')"))
}

func TestConnect_WithSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	cfg := core.AdapterConfig{
		Path: ":memory:",
		Params: map[string]any{
			"settings": map[string]any{
				"threads": "2",
			},
		},
	}

	require.NoError(t, adp.Connect(ctx, cfg))
	defer func() { _ = adp.Close() }()

	rows, err := adp.Query(ctx, "SELECT current_setting('threads')")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())

	var threads string
	require.NoError(t, rows.Scan(&threads))
	assert.Equal(t, "2", threads)
}

func TestConnect_InvalidParams(t *testing.T) {
	adp := New(nil)

	err := adp.Connect(context.Background(), core.AdapterConfig{
		Path:   ":memory:",
		Params: map[string]any{"bogus": true},
	})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}
