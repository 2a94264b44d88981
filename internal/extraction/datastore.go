package extraction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// exec runs a statement through the datastore.
func (e *Extractor) exec(ctx context.Context, sqlText string) (int64, error) {
	n, err := e.ds.Exec(ctx, sqlText)
	if err != nil {
		return 0, &DatastoreExecutionError{SQL: sqlText, Cause: err}
	}
	return n, nil
}

// countRows counts the rows of a table. A missing, NULL or non-numeric
// count is a DatastoreExecutionError, never zero.
func (e *Extractor) countRows(ctx context.Context, table string) (int64, error) {
	sqlText := "SELECT COUNT(*) FROM " + table
	rows, err := e.ds.Query(ctx, sqlText)
	if err != nil {
		return 0, &DatastoreExecutionError{SQL: sqlText, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		cause := rows.Err()
		if cause == nil {
			cause = errors.New("count query returned no row")
		}
		return 0, &DatastoreExecutionError{SQL: sqlText, Cause: cause}
	}
	var n sql.NullInt64
	if err := rows.Scan(&n); err != nil {
		return 0, &DatastoreExecutionError{SQL: sqlText, Cause: err}
	}
	if !n.Valid {
		return 0, &DatastoreExecutionError{SQL: sqlText, Cause: errNullCount}
	}
	if err := rows.Err(); err != nil {
		return 0, &DatastoreExecutionError{SQL: sqlText, Cause: err}
	}
	return n.Int64, nil
}

// dropTables drops tables in reverse creation order and reports every failure.
func (e *Extractor) dropTables(ctx context.Context, tables []string) error {
	var errs []error
	for _, table := range slices.Backward(tables) {
		if _, err := e.exec(ctx, "DROP TABLE "+table); err != nil {
			e.logger.Warn("failed to drop table", slog.String("table", table), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("drop %s: %w", table, err))
			continue
		}
		e.logger.Debug("table dropped", slog.String("table", table))
	}
	return errors.Join(errs...)
}

// Read returns the visible columns of a produced sheet, at most limit rows
// when limit is positive. The caller must close the returned rows.
func (e *Extractor) Read(ctx context.Context, res *Result, sheet string, limit int) (*core.Rows, error) {
	s, ok := res.Sheet(sheet)
	if !ok {
		return nil, &UnknownSheetError{Sheet: sheet, Available: res.SheetNames()}
	}

	columns := "*"
	if len(s.Columns) > 0 {
		quoted := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			quoted[i] = e.dialect.QuoteIdentifierIfNeeded(c)
		}
		columns = strings.Join(quoted, ", ")
	}
	sqlText := e.dialect.WithLimit("SELECT "+columns+" FROM "+s.Table, limit)

	rows, err := e.ds.Query(ctx, sqlText)
	if err != nil {
		return nil, &DatastoreExecutionError{SQL: sqlText, Cause: err}
	}
	return rows, nil
}

// Drop drops every table produced by a run.
func (e *Extractor) Drop(ctx context.Context, res *Result) error {
	tables := make([]string, len(res.Sheets))
	for i, s := range res.Sheets {
		tables[i] = s.Table
	}
	if err := e.dropTables(ctx, tables); err != nil {
		return err
	}
	e.logger.Info("extraction dropped", slog.String("run_id", res.RunID), slog.Int("tables", len(tables)))
	res.Sheets = nil
	return nil
}
