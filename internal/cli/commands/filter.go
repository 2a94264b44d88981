package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapextract/internal/config"
	"github.com/leapstack-labs/leapextract/internal/extraction"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// dateLayouts are the accepted --start and --end formats.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// filterFlags holds the extraction filter flags.
type filterFlags struct {
	start, end    string
	programs      []string
	species       []string
	vessels       []int64
	locations     []int64
	trips         []int64
	departments   []int64
	sheet         string
	previewLimit  int
	excludedPmfms []int64
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD or RFC3339)")
	fs.StringVar(&f.end, "end", "", "End date (YYYY-MM-DD or RFC3339)")
	fs.StringSliceVar(&f.programs, "program", nil, "Program labels")
	fs.StringSliceVar(&f.species, "species", nil, "Species labels")
	fs.Int64SliceVar(&f.vessels, "vessel", nil, "Vessel ids")
	fs.Int64SliceVar(&f.locations, "location", nil, "Location ids")
	fs.Int64SliceVar(&f.trips, "trip", nil, "Trip ids")
	fs.Int64SliceVar(&f.departments, "department", nil, "Recorder department ids")
	fs.StringVar(&f.sheet, "sheet", "", "Only produce this sheet and the sheets it depends on")
	fs.IntVar(&f.previewLimit, "preview-limit", 0, "Cap the rows produced per sheet")
	fs.Int64SliceVar(&f.excludedPmfms, "exclude-pmfm", nil, "PMFM ids never exposed as columns")
}

// filter builds the run filter; unset fields take the configured defaults.
func (f *filterFlags) filter(cfg *config.Config) (*core.Filter, error) {
	filter := &core.Filter{
		ProgramLabels:         f.programs,
		SpeciesLabels:         f.species,
		VesselIDs:             f.vessels,
		LocationIDs:           f.locations,
		TripIDs:               f.trips,
		RecorderDepartmentIDs: f.departments,
		Sheet:                 strings.ToUpper(f.sheet),
		PreviewLimit:          f.previewLimit,
		ExcludedPmfmIDs:       f.excludedPmfms,
	}

	var err error
	if filter.StartDate, err = parseDate("start", f.start); err != nil {
		return nil, err
	}
	if filter.EndDate, err = parseDate("end", f.end); err != nil {
		return nil, err
	}

	cfg.ApplyFilterDefaults(filter)
	return filter, nil
}

func parseDate(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s date %q (expected YYYY-MM-DD or RFC3339)", flag, value)
}

// productFlags holds the product naming and aggregation flags.
type productFlags struct {
	label string
	space string
	time  string
	tech  string
}

func (p *productFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.label, "label", "", "Product label (products only)")
	fs.StringVar(&p.space, "space", "", "Spatial stratum: area, rect or square (aggregations only)")
	fs.StringVar(&p.time, "time", "", "Temporal stratum: year, quarter or month (aggregations only)")
	fs.StringVar(&p.tech, "tech", "", "Technical stratum (aggregations only)")
}

// strata returns the requested strata, or nil to use the defaults.
func (p *productFlags) strata() *core.Strata {
	if p.space == "" && p.time == "" && p.tech == "" {
		return nil
	}
	s := core.DefaultStrata()
	if p.space != "" {
		s.SpaceColumn = p.space
	}
	if p.time != "" {
		s.TimeColumn = p.time
	}
	s.TechColumn = p.tech
	return &s
}

// runOptions converts the flags into extraction options.
func (p *productFlags) runOptions() []extraction.RunOption {
	var opts []extraction.RunOption
	if p.label != "" {
		opts = append(opts, extraction.WithLabel(p.label))
	}
	if s := p.strata(); s != nil {
		opts = append(opts, extraction.WithStrata(*s))
	}
	return opts
}

// parseFormatRefs parses LABEL[:VERSION[:CATEGORY]] arguments.
func parseFormatRefs(args []string) ([]core.FormatRef, error) {
	refs := make([]core.FormatRef, 0, len(args))
	for _, arg := range args {
		ref, err := core.ParseFormatRef(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
