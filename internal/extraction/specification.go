package extraction

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapextract/internal/dag"
	"github.com/leapstack-labs/leapextract/internal/query"
	"github.com/leapstack-labs/leapextract/internal/registry"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// Extension is a template fragment injected into a sheet template.
type Extension struct {
	Anchor   string
	Template string
	Position query.InjectPosition
}

// SheetPlan describes how one sheet is built.
type SheetPlan struct {
	Sheet    string
	Template string

	// Sources maps a placeholder to the sheet whose table it names.
	Sources map[string]string

	// StopIfEmpty ends the run when the sheet produces no row.
	StopIfEmpty bool

	Extensions []Extension

	// PmfmLevel enables PMFM column injection at PmfmAnchor.
	PmfmLevel  AcquisitionLevel
	PmfmAnchor string
}

// With returns a copy of the plan with extensions appended.
func (p SheetPlan) With(ext ...Extension) SheetPlan {
	p.Extensions = append(slices.Clone(p.Extensions), ext...)
	return p
}

// WithPmfms returns a copy of the plan injecting PMFM columns.
func (p SheetPlan) WithPmfms(level AcquisitionLevel, anchor string) SheetPlan {
	p.PmfmLevel, p.PmfmAnchor = level, anchor
	return p
}

// dependencies returns the sheets whose tables the plan reads, sorted.
func (p SheetPlan) dependencies() []string {
	deps := slices.Collect(maps.Values(p.Sources))
	slices.Sort(deps)
	return slices.Compact(deps)
}

// Specification is the build recipe of a format.
type Specification struct {
	Format core.Format

	// Source is the live format a product is computed from.
	Source *core.Format

	Sheets []SheetPlan

	// Groups are applied to every sheet document.
	Groups map[string]bool

	Lowercase bool

	// Aggregated products honour strata.
	Aggregated bool
}

// Plan returns the plan of a sheet.
func (s *Specification) Plan(sheet string) (SheetPlan, bool) {
	for _, p := range s.Sheets {
		if strings.EqualFold(p.Sheet, sheet) {
			return p, true
		}
	}
	return SheetPlan{}, false
}

// SheetNames returns the sheet names in build order.
func (s *Specification) SheetNames() []string {
	names := make([]string, len(s.Sheets))
	for i, p := range s.Sheets {
		names[i] = p.Sheet
	}
	return names
}

// graph returns the dependency graph between the sheets of a live format.
// Products read their source format, so their graph has no edge.
func (s *Specification) graph() (*dag.Graph, error) {
	g := dag.NewGraph()
	for _, p := range s.Sheets {
		g.AddNode(p.Sheet)
	}
	if s.Source != nil {
		return g, nil
	}
	for _, p := range s.Sheets {
		for _, dep := range p.dependencies() {
			if err := g.AddEdge(dep, p.Sheet); err != nil {
				return nil, fmt.Errorf("format %s: %w", s.Format, err)
			}
		}
	}
	return g, nil
}

// Validate checks that the recipe matches its format and that every sheet is
// produced after the sheets it reads.
func (s *Specification) Validate() error {
	if !slices.EqualFunc(s.SheetNames(), s.Format.SheetNames, strings.EqualFold) {
		return fmt.Errorf("format %s: plans %v do not match sheets %v", s.Format, s.SheetNames(), s.Format.SheetNames)
	}
	if s.Format.IsProduct() != (s.Source != nil) {
		return fmt.Errorf("format %s: only products have a source format", s.Format)
	}
	if s.Source != nil {
		for _, sheet := range sourceSheets(s.Sheets) {
			if !s.Source.HasSheet(sheet) {
				return fmt.Errorf("format %s: source %s has no sheet %s", s.Format, s.Source, sheet)
			}
		}
	}
	g, err := s.graph()
	if err != nil {
		return err
	}
	if err := g.CheckOrder(); err != nil {
		return fmt.Errorf("format %s: %w", s.Format, err)
	}
	return nil
}

// closure returns, in build order, the plans of the wanted sheets and, when
// follow is set, of every sheet they read from. An empty wanted list selects
// every sheet.
func (s *Specification) closure(wanted []string, follow bool) ([]SheetPlan, error) {
	if len(wanted) == 0 {
		return slices.Clone(s.Sheets), nil
	}
	names := make([]string, 0, len(wanted))
	for _, w := range wanted {
		p, ok := s.Plan(w)
		if !ok {
			return nil, &UnknownSheetError{Sheet: w, Available: s.SheetNames()}
		}
		names = append(names, p.Sheet)
	}
	if follow {
		g, err := s.graph()
		if err != nil {
			return nil, err
		}
		names = g.Upstream(names...)
	}

	plans := make([]SheetPlan, 0, len(names))
	for _, p := range s.Sheets {
		if slices.Contains(names, p.Sheet) {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

// sourceSheets returns the source sheets read by plans, sorted.
func sourceSheets(plans []SheetPlan) []string {
	var sheets []string
	for _, p := range plans {
		sheets = append(sheets, p.dependencies()...)
	}
	slices.Sort(sheets)
	return slices.Compact(sheets)
}

// Base sheet plans shared by the live formats.
var (
	TripPlan = SheetPlan{
		Sheet:       registry.SheetTrip,
		Template:    "live/trip.xml",
		StopIfEmpty: true,
	}
	StationPlan = SheetPlan{
		Sheet:       registry.SheetStation,
		Template:    "live/station.xml",
		Sources:     map[string]string{"tripTableName": registry.SheetTrip},
		StopIfEmpty: true,
	}
	SpeciesListPlan = SheetPlan{
		Sheet:    registry.SheetSpeciesList,
		Template: "live/species_list.xml",
		Sources:  map[string]string{"stationTableName": registry.SheetStation},
	}
	SpeciesLengthPlan = SheetPlan{
		Sheet:    registry.SheetSpeciesLen,
		Template: "live/species_length.xml",
		Sources:  map[string]string{"speciesListTableName": registry.SheetSpeciesList},
	}
	CatchAgePlan = SheetPlan{
		Sheet:    registry.SheetCatchAge,
		Template: "live/catch_age.xml",
		Sources:  map[string]string{"stationTableName": registry.SheetStation},
	}
	SurvivalTestPlan = SheetPlan{
		Sheet:    registry.SheetSurvival,
		Template: "live/survival_test.xml",
		Sources:  map[string]string{"stationTableName": registry.SheetStation},
	}
	ReleasePlan = SheetPlan{
		Sheet:    registry.SheetRelease,
		Template: "live/release.xml",
		Sources:  map[string]string{"stationTableName": registry.SheetStation},
	}
)

// Aggregation sheet plans shared by the products.
var (
	AggStationPlan = SheetPlan{
		Sheet:    registry.SheetAggStation,
		Template: "product/agg_station.xml",
		Sources:  map[string]string{"stationTableName": registry.SheetStation},
	}
	AggSpeciesListPlan = SheetPlan{
		Sheet:    registry.SheetAggSpeciesList,
		Template: "product/agg_species_list.xml",
		Sources:  map[string]string{"speciesListTableName": registry.SheetSpeciesList},
	}
	AggSpeciesLengthPlan = SheetPlan{
		Sheet:    registry.SheetAggSpeciesLen,
		Template: "product/agg_species_length.xml",
		Sources:  map[string]string{"speciesLengthTableName": registry.SheetSpeciesLen},
	}
)

// copyPlan persists a source sheet unchanged.
func copyPlan(sheet string) SheetPlan {
	return SheetPlan{
		Sheet:    sheet,
		Template: "product/copy.xml",
		Sources:  map[string]string{"sourceTableName": sheet},
	}
}

// Anchors of the live templates.
const (
	AnchorTripColumns        = "injectionTripColumns"
	AnchorTripPmfm           = "injectionTripPmfm"
	AnchorStationColumns     = "injectionStationColumns"
	AnchorOperationPmfm      = "injectionOperationPmfm"
	AnchorSpeciesListColumns = "injectionSpeciesListColumns"
	AnchorSpeciesListFilter  = "injectionSpeciesListFilter"
)

func ext(anchor, template string) Extension {
	return Extension{Anchor: anchor, Template: template, Position: query.After}
}

// builtinSpecifications returns the recipes of the built-in formats.
func builtinSpecifications() []*Specification {
	live := []*Specification{
		{
			Format: registry.LiveRDB,
			Sheets: []SheetPlan{TripPlan, StationPlan, SpeciesListPlan, SpeciesLengthPlan, CatchAgePlan},
		},
		{
			Format: registry.LiveCOST,
			Sheets: []SheetPlan{
				TripPlan.With(ext(AnchorTripColumns, "ext/cost_trip.xml")),
				StationPlan.With(ext(AnchorStationColumns, "ext/cost_station.xml")),
				SpeciesListPlan.With(ext(AnchorSpeciesListColumns, "ext/cost_species_list.xml")),
				SpeciesLengthPlan,
				CatchAgePlan,
			},
		},
		{
			Format:    registry.LiveFREE1,
			Sheets:    []SheetPlan{TripPlan, StationPlan, SpeciesListPlan, SpeciesLengthPlan},
			Groups:    map[string]bool{"recordType": false, "sex": false},
			Lowercase: true,
		},
		{
			Format: registry.LiveSurvivalTest,
			Sheets: []SheetPlan{TripPlan, StationPlan, SpeciesListPlan, SpeciesLengthPlan, SurvivalTestPlan, ReleasePlan},
		},
		{
			Format: registry.LivePmfmTrip,
			Sheets: []SheetPlan{
				TripPlan.WithPmfms(LevelTrip, AnchorTripPmfm),
				StationPlan.WithPmfms(LevelOperation, AnchorOperationPmfm),
				SpeciesListPlan,
				SpeciesLengthPlan,
			},
		},
		{
			Format: registry.LiveRJBTrip,
			Sheets: []SheetPlan{
				TripPlan,
				StationPlan,
				SpeciesListPlan.With(ext(AnchorSpeciesListFilter, "ext/rjb_species_filter.xml")),
				SpeciesLengthPlan,
			},
		},
	}

	products := []*Specification{
		{
			Format:     registry.ProductAggRDB,
			Source:     &registry.LiveRDB,
			Sheets:     []SheetPlan{AggStationPlan, AggSpeciesListPlan, AggSpeciesLengthPlan},
			Aggregated: true,
		},
		{
			Format:     registry.ProductAggCOST,
			Source:     &registry.LiveCOST,
			Sheets:     []SheetPlan{AggStationPlan, AggSpeciesListPlan, AggSpeciesLengthPlan},
			Aggregated: true,
		},
		{
			Format:     registry.ProductAggPmfmTrip,
			Source:     &registry.LivePmfmTrip,
			Sheets:     []SheetPlan{AggStationPlan, AggSpeciesListPlan},
			Aggregated: true,
		},
		{
			Format: registry.ProductRDB,
			Source: &registry.LiveRDB,
			Sheets: []SheetPlan{
				copyPlan(registry.SheetTrip),
				copyPlan(registry.SheetStation),
				copyPlan(registry.SheetSpeciesList),
				copyPlan(registry.SheetSpeciesLen),
				copyPlan(registry.SheetCatchAge),
			},
		},
	}
	return append(live, products...)
}

// Specifications indexes recipes by format key.
type Specifications map[string]*Specification

// DefaultSpecifications returns the recipes of the built-in formats.
func DefaultSpecifications() Specifications {
	specs := make(Specifications)
	for _, s := range builtinSpecifications() {
		specs[s.Format.Key()] = s
	}
	return specs
}

// Validate checks every recipe.
func (s Specifications) Validate() error {
	var errs []error
	for _, spec := range s {
		if err := spec.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// For returns the recipe of a format.
func (s Specifications) For(f core.Format) (*Specification, error) {
	spec, ok := s[f.Key()]
	if !ok {
		return nil, fmt.Errorf("no specification for format %s: %w", f, registry.ErrUnsupportedFormat)
	}
	return spec, nil
}
