package extraction

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapextract/internal/testutil"
	"github.com/leapstack-labs/leapextract/pkg/adapter"
	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/leapstack-labs/leapextract/pkg/dialects/duckdb"
)

// newMockExtractor returns an extractor over a sqlmock datastore with the
// DuckDB dialect and run id RUN1.
func newMockExtractor(t *testing.T, configure ...func(*Config)) (*Extractor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := Config{
		Datastore: adapter.NewDBAdapter(db, "duckdb", nil),
		Dialect:   duckdb.DuckDB,
		Pmfms:     noPmfms,
		NewRunID:  func() string { return "RUN1" },
		Logger:    testutil.NewTestLogger(t),
	}
	for _, c := range configure {
		c(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e, mock
}

var noPmfms = PmfmSourceFunc(func(context.Context, *core.Filter, AcquisitionLevel) ([]Pmfm, error) {
	return nil, nil
})

// expectSheet expects the creation and count of one sheet table.
func expectSheet(mock sqlmock.Sqlmock, table string, rows int64) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE " + table + " AS ")).
		WillReturnResult(sqlmock.NewResult(0, rows))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM " + table)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(rows))
}

func expectDrop(mock sqlmock.Sqlmock, table string) {
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE " + table)).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

// stateRecorder collects state changes as "STATE" or "STATE:SHEET".
type stateRecorder struct {
	mu      sync.Mutex
	changes []StateChange
}

func (r *stateRecorder) observe(c StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *stateRecorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.State.String()
		if c.Sheet != "" {
			out[i] += ":" + c.Sheet
		}
	}
	return out
}

// sheetStates returns the BUILDING, RENDERED, EXECUTED sequence of sheets.
func sheetStates(sheets ...string) []string {
	var out []string
	for _, s := range sheets {
		out = append(out, "BUILDING:"+s, "RENDERED:"+s, "EXECUTED:"+s)
	}
	return out
}

type memoryProducts struct {
	saved []*core.Product
}

func (m *memoryProducts) SaveProduct(_ context.Context, p *core.Product) error {
	m.saved = append(m.saved, p)
	return nil
}
