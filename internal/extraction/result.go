package extraction

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// SheetResult describes one produced sheet.
type SheetResult struct {
	Sheet string `json:"sheet"`
	Table string `json:"table"`
	SQL   string `json:"sql,omitempty"`

	// Columns are the visible output columns; hidden columns may exist in
	// the table but are never exposed.
	Columns  []string `json:"columns"`
	RowCount int64    `json:"rowCount"`
}

// Result is the outcome of an extraction run.
type Result struct {
	RunID   string                  `json:"runId"`
	Format  core.Format             `json:"format"`
	Context *core.ExtractionContext `json:"-"`
	Sheets  []SheetResult           `json:"sheets"`
	State   RunState                `json:"-"`

	// Stopped is set when a sheet marked StopIfEmpty produced no row and
	// the remaining sheets were skipped.
	Stopped bool `json:"stopped,omitempty"`
}

// Sheet returns the result of a sheet (case-insensitive).
func (r *Result) Sheet(name string) (SheetResult, bool) {
	for _, s := range r.Sheets {
		if strings.EqualFold(s.Sheet, name) {
			return s, true
		}
	}
	return SheetResult{}, false
}

// SheetNames returns the produced sheet names in production order.
func (r *Result) SheetNames() []string {
	names := make([]string, len(r.Sheets))
	for i, s := range r.Sheets {
		names[i] = s.Sheet
	}
	return names
}

// JobSheets returns the per-sheet outcome recorded on a job.
func (r *Result) JobSheets() []core.JobSheet {
	sheets := make([]core.JobSheet, len(r.Sheets))
	for i, s := range r.Sheets {
		sheets[i] = core.JobSheet{
			Sheet:       s.Sheet,
			TableName:   s.Table,
			RowCount:    s.RowCount,
			ColumnCount: len(s.Columns),
			Columns:     slices.Clone(s.Columns),
		}
	}
	return sheets
}

// Product returns the metadata persisted for a product run.
func (r *Result) Product() *core.Product {
	p := &core.Product{
		Label:        r.Format.Label,
		Format:       r.Format,
		SheetTables:  make(map[string]string, len(r.Sheets)),
		SheetColumns: make(map[string][]string, len(r.Sheets)),
		CreatedAt:    time.Now().UTC(),
	}
	for _, s := range r.Sheets {
		p.SheetTables[s.Sheet] = s.Table
		p.SheetColumns[s.Sheet] = slices.Clone(s.Columns)
	}
	if r.Context != nil {
		p.Label = r.Context.Label
		p.CreatedAt = r.Context.StartedAt
		if r.Context.Strata != nil {
			strata := *r.Context.Strata
			p.Strata = &strata
		}
	}
	return p
}

// ProductResult rebuilds a readable result from stored product metadata.
// Sheets stored without columns read every table column.
func ProductResult(p *core.Product) *Result {
	ectx := core.NewExtractionContext("", p.Format, p.Label)
	ectx.StartedAt = p.CreatedAt
	ectx.Strata = p.Strata

	res := &Result{Format: p.Format, Context: ectx, State: StateCompleted}
	tables := maps.Clone(p.SheetTables)
	for _, sheet := range p.Format.SheetNames {
		table, ok := tables[sheet]
		if !ok {
			continue
		}
		ectx.AddTable(sheet, table)
		res.Sheets = append(res.Sheets, SheetResult{Sheet: sheet, Table: table, Columns: p.SheetColumns[sheet]})
	}
	return res
}

// JobResult rebuilds a readable result from the sheets recorded on a job.
func JobResult(job *core.Job) *Result {
	res := &Result{
		RunID:  job.ID,
		Format: core.Format{Label: job.Format.Label, Version: job.Format.Version, Category: job.Format.Category},
		State:  StateCompleted,
	}
	if job.Status == core.JobStatusError {
		res.State = StateFailed
	}
	for _, js := range job.Sheets {
		res.Format.SheetNames = append(res.Format.SheetNames, js.Sheet)
		res.Sheets = append(res.Sheets, SheetResult{
			Sheet:    js.Sheet,
			Table:    js.TableName,
			Columns:  js.Columns,
			RowCount: js.RowCount,
		})
	}
	return res
}
