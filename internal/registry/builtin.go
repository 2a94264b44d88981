package registry

import "github.com/leapstack-labs/leapextract/pkg/core"

// Sheet names shared by the built-in formats.
const (
	SheetTrip        = "TR" // trips
	SheetStation     = "HH" // fishing operations (hauls)
	SheetSpeciesList = "SL" // catch per species
	SheetSpeciesLen  = "HL" // length frequencies
	SheetCatchAge    = "CA" // individual biological samples
	SheetSurvival    = "ST" // survival test
	SheetRelease     = "RL" // release

	SheetAggStation     = "AGG_HH"
	SheetAggSpeciesList = "AGG_SL"
	SheetAggSpeciesLen  = "AGG_HL"
)

// Built-in live formats.
var (
	LiveRDB          = core.Format{Label: "RDB", Version: "1.3", Category: core.CategoryLive, SheetNames: []string{SheetTrip, SheetStation, SheetSpeciesList, SheetSpeciesLen, SheetCatchAge}}
	LiveCOST         = core.Format{Label: "COST", Version: "1.4", Category: core.CategoryLive, SheetNames: []string{SheetTrip, SheetStation, SheetSpeciesList, SheetSpeciesLen, SheetCatchAge}}
	LiveFREE1        = core.Format{Label: "FREE1", Version: "1.0", Category: core.CategoryLive, SheetNames: []string{SheetTrip, SheetStation, SheetSpeciesList, SheetSpeciesLen}}
	LiveSurvivalTest = core.Format{Label: "SURVIVAL_TEST", Version: "1.0", Category: core.CategoryLive, SheetNames: []string{SheetTrip, SheetStation, SheetSpeciesList, SheetSpeciesLen, SheetSurvival, SheetRelease}}
	LivePmfmTrip     = core.Format{Label: "PMFM_TRIP", Version: "0.1", Category: core.CategoryLive, SheetNames: []string{SheetTrip, SheetStation, SheetSpeciesList, SheetSpeciesLen}}
	LiveRJBTrip      = core.Format{Label: "RJB_TRIP", Version: "1.0", Category: core.CategoryLive, SheetNames: []string{SheetTrip, SheetStation, SheetSpeciesList, SheetSpeciesLen}}
)

// Built-in product formats.
var (
	ProductAggRDB      = core.Format{Label: "AGG_RDB", Version: "1.3", Category: core.CategoryProduct, SheetNames: []string{SheetAggStation, SheetAggSpeciesList, SheetAggSpeciesLen}}
	ProductAggCOST     = core.Format{Label: "AGG_COST", Version: "1.4", Category: core.CategoryProduct, SheetNames: []string{SheetAggStation, SheetAggSpeciesList, SheetAggSpeciesLen}}
	ProductAggPmfmTrip = core.Format{Label: "AGG_PMFM_TRIP", Version: "0.1", Category: core.CategoryProduct, SheetNames: []string{SheetAggStation, SheetAggSpeciesList}}
	ProductRDB         = core.Format{Label: "RDB", Version: "1.3", Category: core.CategoryProduct, SheetNames: []string{SheetTrip, SheetStation, SheetSpeciesList, SheetSpeciesLen, SheetCatchAge}}
)

// Builtin returns the built-in catalogue in registration order.
func Builtin() []core.Format {
	return []core.Format{
		LiveRDB, LiveCOST, LiveFREE1, LiveSurvivalTest, LivePmfmTrip, LiveRJBTrip,
		ProductAggRDB, ProductAggCOST, ProductAggPmfmTrip, ProductRDB,
	}
}

// SourceOf returns the live format an aggregated product is computed from.
// A product that is not an aggregation is its own live counterpart.
func SourceOf(product core.Format) (core.Format, bool) {
	switch product.Key() {
	case ProductAggRDB.Key():
		return LiveRDB, true
	case ProductAggCOST.Key():
		return LiveCOST, true
	case ProductAggPmfmTrip.Key():
		return LivePmfmTrip, true
	case ProductRDB.Key():
		return LiveRDB, true
	}
	return core.Format{}, false
}
