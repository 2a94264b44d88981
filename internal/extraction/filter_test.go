package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapextract/internal/query"
	"github.com/leapstack-labs/leapextract/pkg/core"
)

func TestValidateFilter(t *testing.T) {
	d1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  core.Filter
		wantErr bool
	}{
		{"empty", core.Filter{}, false},
		{"ordered dates", core.Filter{StartDate: &d1, EndDate: &d2}, false},
		{"same day", core.Filter{StartDate: &d1, EndDate: &d1}, false},
		{"start only", core.Filter{StartDate: &d2}, false},
		{"inverted dates", core.Filter{StartDate: &d2, EndDate: &d1}, true},
		{"preview", core.Filter{PreviewLimit: 100}, false},
		{"negative preview", core.Filter{PreviewLimit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFilter(&tt.filter)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilterParams(t *testing.T) {
	t.Run("empty filter disables every criterion", func(t *testing.T) {
		groups, values := filterParams(&core.Filter{})
		assert.Len(t, groups, 8)
		for g, enabled := range groups {
			assert.False(t, enabled, g)
		}
		assert.Empty(t, values)
	})

	t.Run("present criteria are bound", func(t *testing.T) {
		start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
		groups, values := filterParams(&core.Filter{
			StartDate:     &start,
			ProgramLabels: []string{"B", "A", "B"},
			VesselIDs:     []int64{3, 1},
			SpeciesLabels: []string{"COD"},
		})

		assert.True(t, groups[groupStartDate])
		assert.False(t, groups[groupEndDate])
		assert.True(t, groups[groupProgram])
		assert.True(t, groups[groupVessel])
		assert.False(t, groups[groupTrip])
		assert.True(t, groups[groupSpecies])

		assert.Equal(t, query.KindDate, values["startDate"].Kind())
		assert.Equal(t, "'A','B'", values["progLabels"].Literal(nil))
		assert.Equal(t, "1,3", values["vesselIds"].Literal(nil))
		assert.Equal(t, "'COD'", values["speciesLabels"].Literal(nil))
		assert.NotContains(t, values, "endDate")
	})
}
