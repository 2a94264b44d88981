package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows and returns the
// number of affected rows (-1 when the driver cannot report it).
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) (int64, error) {
	if b.DB == nil {
		return 0, fmt.Errorf("database connection not established")
	}
	res, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return 0, fmt.Errorf("failed to execute SQL: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil //nolint:nilerr // drivers without row counts are not an error
	}
	return n, nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// DBAdapter wraps an already opened *sql.DB as an Adapter.
// It is used for embedded databases and in tests.
type DBAdapter struct {
	BaseSQLAdapter
	Dialect string
}

// NewDBAdapter wraps db; dialectName selects literal rendering.
func NewDBAdapter(db *sql.DB, dialectName string, logger *slog.Logger) *DBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DBAdapter{
		BaseSQLAdapter: BaseSQLAdapter{DB: db, Logger: logger},
		Dialect:        dialectName,
	}
}

// Connect is a no-op: the database is already open.
func (a *DBAdapter) Connect(_ context.Context, cfg core.AdapterConfig) error {
	a.Cfg = cfg
	return nil
}

// DialectName returns the configured dialect name.
func (a *DBAdapter) DialectName() string {
	return a.Dialect
}
