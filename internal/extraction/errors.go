package extraction

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStrata is matched by errors reporting an unsupported strata column.
var ErrInvalidStrata = errors.New("invalid aggregation strata")

// ErrInvalidFilter is matched by errors reporting inconsistent filter criteria.
var ErrInvalidFilter = errors.New("invalid extraction filter")

// errNullCount is the cause of a DatastoreExecutionError raised by a count
// query that returned NULL.
var errNullCount = errors.New("count query returned NULL")

// DatastoreExecutionError wraps a failure reported by the datastore, including
// count queries that return no row, NULL or a non-numeric value.
type DatastoreExecutionError struct {
	SQL   string
	Cause error
}

func (e *DatastoreExecutionError) Error() string {
	return fmt.Sprintf("datastore execution failed: %v", e.Cause)
}

func (e *DatastoreExecutionError) Unwrap() error {
	return e.Cause
}

// UnknownSheetError is returned when a sheet is not part of a format or result.
type UnknownSheetError struct {
	Sheet     string
	Available []string
}

func (e *UnknownSheetError) Error() string {
	return fmt.Sprintf("unknown sheet %q (available: %s)", e.Sheet, strings.Join(e.Available, ", "))
}

// SheetError reports the sheet that made a run fail.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %s: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}
