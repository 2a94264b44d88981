package core

import "time"

// JobStatus is the lifecycle state of a background extraction job.
type JobStatus string

// JobStatus constants.
const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusError   JobStatus = "error"
)

// IsFinal reports whether the status is terminal.
func (s JobStatus) IsFinal() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// Job is the record tracking one asynchronous extraction.
type Job struct {
	ID          string     `json:"id"`
	Format      FormatRef  `json:"format"`
	Filter      Filter     `json:"filter"`
	Label       string     `json:"label,omitempty"`
	Strata      *Strata    `json:"strata,omitempty"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	Sheets      []JobSheet `json:"sheets,omitempty"`
}

// JobSheet records the outcome of one sheet of a job.
type JobSheet struct {
	Sheet       string `json:"sheet"`
	TableName   string `json:"tableName"`
	RowCount    int64  `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
	// Columns are the visible columns of the sheet table.
	Columns []string `json:"columns,omitempty"`
}

// Product is the stored metadata of a persisted extraction product.
type Product struct {
	Label       string            `json:"label"`
	Format      Format            `json:"format"`
	SheetTables map[string]string `json:"sheetTables"`
	// SheetColumns holds the visible columns of each sheet table.
	SheetColumns map[string][]string `json:"sheetColumns,omitempty"`
	Strata       *Strata             `json:"strata,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}
