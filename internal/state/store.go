// Package state persists extraction jobs and product metadata in SQLite.
//
// The schema is managed with goose migrations embedded in the binary.
package state

import (
	"errors"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// Store is an alias for core.Store.
type Store = core.Store

// ErrNotFound is returned when a job or product does not exist.
var ErrNotFound = errors.New("not found")
