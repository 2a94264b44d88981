package core

import (
	"context"
	"database/sql"
)

// Datastore is the capability the extraction core needs from a database.
type Datastore interface {
	// Query executes a SQL statement that returns rows.
	// The caller must close the returned Rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// Exec executes a SQL statement that doesn't return rows and reports
	// the number of affected rows (-1 when the driver cannot tell).
	Exec(ctx context.Context, sql string) (int64, error)
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	Datastore

	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// DialectName returns the SQL dialect used to render literals for this adapter.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
