package core

import (
	"strings"
	"time"
)

// Filter holds the runtime criteria of one extraction run.
// Empty fields are ignored.
type Filter struct {
	StartDate             *time.Time `json:"startDate,omitempty"`
	EndDate               *time.Time `json:"endDate,omitempty"`
	ProgramLabels         []string   `json:"programLabels,omitempty"`
	VesselIDs             []int64    `json:"vesselIds,omitempty"`
	LocationIDs           []int64    `json:"locationIds,omitempty"`
	TripIDs               []int64    `json:"tripIds,omitempty"`
	RecorderDepartmentIDs []int64    `json:"recorderDepartmentIds,omitempty"`
	SpeciesLabels         []string   `json:"speciesLabels,omitempty"`

	// Sheet restricts the run to one sheet (and the sheets it depends on).
	Sheet string `json:"sheet,omitempty"`

	// PreviewLimit caps the number of rows produced per sheet (0 = no limit).
	PreviewLimit int `json:"previewLimit,omitempty"`

	// ExcludedPmfmIDs lists measurement columns that must never be injected.
	ExcludedPmfmIDs []int64 `json:"excludedPmfmIds,omitempty"`
}

// HasPrograms reports whether the filter restricts programs.
func (f *Filter) HasPrograms() bool {
	return f != nil && len(f.ProgramLabels) > 0
}

// Strata are the aggregation dimensions of a product.
type Strata struct {
	// SpaceColumn is one of area, rect, square.
	SpaceColumn string `json:"spaceColumn,omitempty" yaml:"spaceColumn,omitempty"`
	// TimeColumn is one of year, quarter, month.
	TimeColumn string `json:"timeColumn,omitempty" yaml:"timeColumn,omitempty"`
	// TechColumn is an optional technical dimension (e.g. gear_type).
	TechColumn string `json:"techColumn,omitempty" yaml:"techColumn,omitempty"`
}

// DefaultStrata returns the strata used when a product run does not specify any.
func DefaultStrata() Strata {
	return Strata{SpaceColumn: "area", TimeColumn: "year"}
}

// ExtractionContext associates a resolved format with the tables produced
// for each sheet during one run.
type ExtractionContext struct {
	ID        string
	Format    Format
	Label     string
	StartedAt time.Time
	Strata    *Strata

	// SheetTables maps sheet name to physical table name.
	SheetTables map[string]string
	// sheetOrder keeps SheetTables in production order.
	sheetOrder []string
}

// NewExtractionContext creates a context for a run of the given format.
func NewExtractionContext(id string, f Format, label string) *ExtractionContext {
	if label == "" {
		label = f.Label
	}
	return &ExtractionContext{
		ID:          id,
		Format:      f,
		Label:       label,
		StartedAt:   time.Now().UTC(),
		SheetTables: make(map[string]string),
	}
}

// AddTable records the table produced for a sheet.
func (c *ExtractionContext) AddTable(sheet, table string) {
	key := strings.ToUpper(sheet)
	if _, ok := c.SheetTables[key]; !ok {
		c.sheetOrder = append(c.sheetOrder, key)
	}
	c.SheetTables[key] = table
}

// TableName returns the table produced for a sheet, if any.
func (c *ExtractionContext) TableName(sheet string) (string, bool) {
	if c == nil {
		return "", false
	}
	t, ok := c.SheetTables[strings.ToUpper(sheet)]
	return t, ok
}

// TableNames returns produced table names in production order.
func (c *ExtractionContext) TableNames() []string {
	names := make([]string, 0, len(c.sheetOrder))
	for _, s := range c.sheetOrder {
		names = append(names, c.SheetTables[s])
	}
	return names
}

// Sheets returns the produced sheet names in production order.
func (c *ExtractionContext) Sheets() []string {
	return append([]string(nil), c.sheetOrder...)
}

// RemoveTable forgets the table of a sheet.
func (c *ExtractionContext) RemoveTable(sheet string) {
	key := strings.ToUpper(sheet)
	if _, ok := c.SheetTables[key]; !ok {
		return
	}
	delete(c.SheetTables, key)
	for i, s := range c.sheetOrder {
		if s == key {
			c.sheetOrder = append(c.sheetOrder[:i:i], c.sheetOrder[i+1:]...)
			break
		}
	}
}
