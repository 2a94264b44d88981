package extraction

import (
	"fmt"

	"github.com/leapstack-labs/leapextract/internal/query"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

// Filter groups toggled by the runtime criteria of a run.
const (
	groupStartDate  = "startDateFilter"
	groupEndDate    = "endDateFilter"
	groupProgram    = "programFilter"
	groupVessel     = "vesselFilter"
	groupLocation   = "locationFilter"
	groupTrip       = "tripFilter"
	groupDepartment = "departmentFilter"
	groupSpecies    = "speciesFilter"
)

// validateFilter rejects criteria no template can honour.
func validateFilter(f *core.Filter) error {
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidFilter,
			f.StartDate.Format("2006-01-02"), f.EndDate.Format("2006-01-02"))
	}
	if f.PreviewLimit < 0 {
		return fmt.Errorf("%w: negative preview limit %d", ErrInvalidFilter, f.PreviewLimit)
	}
	return nil
}

// filterParams maps the filter to group states and bind values. A present
// criterion enables its group and binds its placeholder; an absent one
// disables the group, so its placeholder never needs a value.
func filterParams(f *core.Filter) (map[string]bool, map[string]query.Value) {
	groups := make(map[string]bool)
	values := make(map[string]query.Value)

	groups[groupStartDate] = f.StartDate != nil
	if f.StartDate != nil {
		values["startDate"] = query.Date(*f.StartDate)
	}
	groups[groupEndDate] = f.EndDate != nil
	if f.EndDate != nil {
		values["endDate"] = query.Date(*f.EndDate)
	}

	groups[groupProgram] = len(f.ProgramLabels) > 0
	if len(f.ProgramLabels) > 0 {
		values["progLabels"] = query.Strings(f.ProgramLabels...)
	}
	groups[groupVessel] = len(f.VesselIDs) > 0
	if len(f.VesselIDs) > 0 {
		values["vesselIds"] = query.Ints(f.VesselIDs...)
	}
	groups[groupLocation] = len(f.LocationIDs) > 0
	if len(f.LocationIDs) > 0 {
		values["locationIds"] = query.Ints(f.LocationIDs...)
	}
	groups[groupTrip] = len(f.TripIDs) > 0
	if len(f.TripIDs) > 0 {
		values["tripIds"] = query.Ints(f.TripIDs...)
	}
	groups[groupDepartment] = len(f.RecorderDepartmentIDs) > 0
	if len(f.RecorderDepartmentIDs) > 0 {
		values["recDepIds"] = query.Ints(f.RecorderDepartmentIDs...)
	}
	groups[groupSpecies] = len(f.SpeciesLabels) > 0
	if len(f.SpeciesLabels) > 0 {
		values["speciesLabels"] = query.Strings(f.SpeciesLabels...)
	}
	return groups, values
}
