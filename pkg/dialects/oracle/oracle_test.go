package oracle

import (
	"testing"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRegistration(t *testing.T) {
	d, ok := dialect.Get("oracle")
	require.True(t, ok, "oracle dialect should be registered")
	assert.Same(t, Oracle, d)
}

func TestLiterals(t *testing.T) {
	ts := time.Date(2023, 1, 31, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "TO_DATE('2023-01-31 23:59:00','YYYY-MM-DD HH24:MI:SS')", Oracle.DateLiteral(ts))
	assert.Equal(t, "SELECT * FROM (SELECT X FROM T) WHERE ROWNUM <= 10", Oracle.WithLimit("SELECT X FROM T", 10))
	assert.Equal(t, "1", Oracle.BoolLiteral(true))
	assert.True(t, Oracle.IsReservedWord("DATE"))
	assert.Equal(t, "TRIP", Oracle.NormalizeName("trip"))
}
