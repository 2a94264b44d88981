package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

const jobColumns = `id, format_label, format_version, format_category, filter, label, strata,
	status, created_at, started_at, completed_at, error`

// CreateJob inserts a new job record with its sheets.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *core.Job) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	filterJSON, err := serializeJSON(job.Filter)
	if err != nil {
		return fmt.Errorf("failed to encode job filter: %w", err)
	}
	strataJSON, err := serializeJSONPtr(job.Strata)
	if err != nil {
		return fmt.Errorf("failed to encode job strata: %w", err)
	}

	s.logger.Debug("creating job", slog.String("id", job.ID), slog.String("format", job.Format.String()))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.Format.Label, job.Format.Version, string(job.Format.Category),
			filterJSON, job.Label, strataJSON, string(job.Status),
			formatTime(job.CreatedAt), formatTimePtr(job.StartedAt), formatTimePtr(job.CompletedAt),
			nullString(job.Error),
		)
		if err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		return insertJobSheets(ctx, tx, job)
	})
}

// UpdateJob updates the status, timestamps, error and sheets of a job.
func (s *SQLiteStore) UpdateJob(ctx context.Context, job *core.Job) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, started_at = ?, completed_at = ?, error = ? WHERE id = ?`,
			string(job.Status), formatTimePtr(job.StartedAt), formatTimePtr(job.CompletedAt),
			nullString(job.Error), job.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM job_sheets WHERE job_id = ?`, job.ID); err != nil {
			return fmt.Errorf("failed to clear job sheets: %w", err)
		}
		return insertJobSheets(ctx, tx, job)
	})
}

// GetJob retrieves a job by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*core.Job, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	sheets, err := s.jobSheets(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Sheets = sheets
	return job, nil
}

// ListJobs returns the most recent jobs first, at most limit when limit is
// positive.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]*core.Job, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*core.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	for _, job := range jobs {
		if job.Sheets, err = s.jobSheets(ctx, job.ID); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

func (s *SQLiteStore) jobSheets(ctx context.Context, jobID string) ([]core.JobSheet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sheet, table_name, row_count, column_count, columns FROM job_sheets WHERE job_id = ? ORDER BY position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job sheets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sheets []core.JobSheet
	for rows.Next() {
		var (
			js      core.JobSheet
			columns string
		)
		if err := rows.Scan(&js.Sheet, &js.TableName, &js.RowCount, &js.ColumnCount, &columns); err != nil {
			return nil, fmt.Errorf("failed to scan job sheet: %w", err)
		}
		if err := json.Unmarshal([]byte(columns), &js.Columns); err != nil {
			return nil, fmt.Errorf("invalid job sheet columns: %w", err)
		}
		sheets = append(sheets, js)
	}
	return sheets, rows.Err()
}

func insertJobSheets(ctx context.Context, tx *sql.Tx, job *core.Job) error {
	for i, js := range job.Sheets {
		columns, err := serializeJSON(js.Columns)
		if err != nil {
			return fmt.Errorf("failed to encode job sheet columns: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO job_sheets (job_id, position, sheet, table_name, row_count, column_count, columns) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			job.ID, i, js.Sheet, js.TableName, js.RowCount, js.ColumnCount, columns,
		)
		if err != nil {
			return fmt.Errorf("failed to record job sheet %s: %w", js.Sheet, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*core.Job, error) {
	var (
		job                    core.Job
		category, status       string
		filterJSON, createdAt  string
		strataJSON, errMsg     sql.NullString
		startedAt, completedAt sql.NullString
	)
	err := row.Scan(&job.ID, &job.Format.Label, &job.Format.Version, &category,
		&filterJSON, &job.Label, &strataJSON, &status,
		&createdAt, &startedAt, &completedAt, &errMsg)
	if err != nil {
		return nil, err
	}

	job.Format.Category = core.Category(category)
	job.Status = core.JobStatus(status)
	job.Error = errMsg.String
	if err := json.Unmarshal([]byte(filterJSON), &job.Filter); err != nil {
		return nil, fmt.Errorf("invalid job filter: %w", err)
	}
	if job.Strata, err = deserializeJSONPtr[core.Strata](strataJSON); err != nil {
		return nil, fmt.Errorf("invalid job strata: %w", err)
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return nil, err
	}
	if job.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

// withTx runs fn in a transaction, committing on success.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
