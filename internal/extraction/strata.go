package extraction

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// Strata groups of the aggregation templates.
const (
	groupQuarter  = "quarter"
	groupMonth    = "month"
	groupRect     = "rect"
	groupSquare   = "square"
	groupGearType = "gear_type"
)

// strataGroups maps strata to the group states of the aggregation templates.
// Finer strata imply the coarser ones: month implies quarter and square
// implies rect. Year and area are always aggregated on.
func strataGroups(s core.Strata) (map[string]bool, error) {
	groups := map[string]bool{
		groupQuarter:  false,
		groupMonth:    false,
		groupRect:     false,
		groupSquare:   false,
		groupGearType: false,
	}

	switch strings.ToLower(s.TimeColumn) {
	case "", "year":
	case "quarter":
		groups[groupQuarter] = true
	case "month":
		groups[groupQuarter] = true
		groups[groupMonth] = true
	default:
		return nil, fmt.Errorf("%w: time column %q (expected year, quarter or month)", ErrInvalidStrata, s.TimeColumn)
	}

	switch strings.ToLower(s.SpaceColumn) {
	case "", "area":
	case "rect":
		groups[groupRect] = true
	case "square":
		groups[groupRect] = true
		groups[groupSquare] = true
	default:
		return nil, fmt.Errorf("%w: space column %q (expected area, rect or square)", ErrInvalidStrata, s.SpaceColumn)
	}

	switch strings.ToLower(s.TechColumn) {
	case "":
	case groupGearType:
		groups[groupGearType] = true
	default:
		return nil, fmt.Errorf("%w: tech column %q (expected gear_type)", ErrInvalidStrata, s.TechColumn)
	}
	return groups, nil
}
