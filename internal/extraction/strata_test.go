package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

func TestStrataGroups(t *testing.T) {
	tests := []struct {
		name   string
		strata core.Strata
		want   []string // enabled groups
	}{
		{"default", core.DefaultStrata(), nil},
		{"empty", core.Strata{}, nil},
		{"quarter", core.Strata{TimeColumn: "quarter"}, []string{groupQuarter}},
		{"month implies quarter", core.Strata{TimeColumn: "MONTH"}, []string{groupQuarter, groupMonth}},
		{"rect", core.Strata{SpaceColumn: "rect"}, []string{groupRect}},
		{"square implies rect", core.Strata{SpaceColumn: "square"}, []string{groupRect, groupSquare}},
		{"gear", core.Strata{TechColumn: "gear_type"}, []string{groupGearType}},
		{"all", core.Strata{SpaceColumn: "square", TimeColumn: "month", TechColumn: "gear_type"},
			[]string{groupQuarter, groupMonth, groupRect, groupSquare, groupGearType}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := strataGroups(tt.strata)
			require.NoError(t, err)
			assert.Len(t, groups, 5, "every strata group is set explicitly")
			var enabled []string
			for _, g := range []string{groupQuarter, groupMonth, groupRect, groupSquare, groupGearType} {
				if groups[g] {
					enabled = append(enabled, g)
				}
			}
			assert.Equal(t, tt.want, enabled)
		})
	}
}

func TestStrataGroups_Invalid(t *testing.T) {
	for _, s := range []core.Strata{
		{TimeColumn: "week"},
		{SpaceColumn: "planet"},
		{TechColumn: "vessel"},
	} {
		_, err := strataGroups(s)
		assert.ErrorIs(t, err, ErrInvalidStrata)
	}
}
