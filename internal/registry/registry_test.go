package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/leapextract/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRegistry_Register(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register(LiveRDB))
	assert.Equal(t, 1, r.Count(), "expected count 1")

	got, ok := r.Lookup("rdb", "1.3", core.CategoryLive)
	require.True(t, ok, "expected to find format by key")
	assert.Equal(t, LiveRDB.Key(), got.Key())

	// Same key twice
	err := r.Register(LiveRDB)
	var dup *DuplicateFormatError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "RDB", dup.Format.Label)

	// Same label, other category
	require.NoError(t, r.Register(ProductRDB))
	assert.Equal(t, 2, r.Count())
}

func TestFormatRegistry_RegisterInvalid(t *testing.T) {
	r := New(nil)

	tests := []struct {
		name   string
		format core.Format
	}{
		{"empty label", core.Format{Version: "1", Category: core.CategoryLive, SheetNames: []string{"A"}}},
		{"no sheet", core.Format{Label: "X", Version: "1", Category: core.CategoryLive}},
		{"bad category", core.Format{Label: "X", Version: "1", Category: "OTHER", SheetNames: []string{"A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.Register(tt.format))
		})
	}
	assert.Equal(t, 0, r.Count())
}

func TestFormatRegistry_Resolve(t *testing.T) {
	r := NewDefault(nil)

	tests := []struct {
		name         string
		ref          core.FormatRef
		wantLabel    string
		wantVersion  string
		wantCategory core.Category
	}{
		{
			name:         "exact live",
			ref:          core.FormatRef{Label: "RDB", Version: "1.3", Category: core.CategoryLive},
			wantLabel:    "RDB",
			wantVersion:  "1.3",
			wantCategory: core.CategoryLive,
		},
		{
			name:         "category picks product",
			ref:          core.FormatRef{Label: "RDB", Category: core.CategoryProduct},
			wantLabel:    "RDB",
			wantVersion:  "1.3",
			wantCategory: core.CategoryProduct,
		},
		{
			name:         "case-insensitive label, first registered wins",
			ref:          core.FormatRef{Label: "rdb"},
			wantLabel:    "RDB",
			wantVersion:  "1.3",
			wantCategory: core.CategoryLive,
		},
		{
			name:         "family fallback",
			ref:          core.FormatRef{Label: "RDB-2019"},
			wantLabel:    "RDB",
			wantVersion:  "1.3",
			wantCategory: core.CategoryLive,
		},
		{
			name:         "longest family wins",
			ref:          core.FormatRef{Label: "MY_AGG_COST_V2"},
			wantLabel:    "AGG_COST",
			wantVersion:  "1.4",
			wantCategory: core.CategoryProduct,
		},
		{
			name:         "product with version",
			ref:          core.FormatRef{Label: "agg_pmfm_trip", Version: "0.1"},
			wantLabel:    "AGG_PMFM_TRIP",
			wantVersion:  "0.1",
			wantCategory: core.CategoryProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.Equal(t, tt.wantVersion, got.Version)
			assert.Equal(t, tt.wantCategory, got.Category)
		})
	}
}

func TestFormatRegistry_ResolveUnknown(t *testing.T) {
	r := NewDefault(nil)

	tests := []core.FormatRef{
		{Label: "UNKNOWN"},
		{Label: "FREE1", Category: core.CategoryProduct},
		{Label: ""},
	}
	for _, ref := range tests {
		t.Run(ref.String(), func(t *testing.T) {
			_, err := r.Resolve(ref)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedFormat))
			var unknown *UnknownFormatError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, ref.Label, unknown.Label)
		})
	}
}

func TestFormatRegistry_FallbackLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewDefault(logger)

	_, err := r.Resolve(core.FormatRef{Label: "RDB", Version: "1.3", Category: core.CategoryLive})
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "exact match logs nothing")

	got, err := r.Resolve(core.FormatRef{Label: "RDB-2019"})
	require.NoError(t, err)
	assert.Equal(t, "RDB", got.Label)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "expected exactly one log line, got %q", buf.String())
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "extraction format resolved by family fallback", entry["msg"])
	assert.Equal(t, "RDB", entry["family"])
	assert.Contains(t, entry["requested"], "RDB-2019")
	assert.Equal(t, got.String(), entry["resolved"])
}

func TestFormatRegistry_WithFallbackFamilies(t *testing.T) {
	r := NewDefault(nil, WithFallbackFamilies("cost"))

	got, err := r.Resolve(core.FormatRef{Label: "OLD_COST"})
	require.NoError(t, err)
	assert.Equal(t, "COST", got.Label)

	_, err = r.Resolve(core.FormatRef{Label: "RDB-2019"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatRegistry_List(t *testing.T) {
	r := NewDefault(nil)

	all := r.List("")
	require.Len(t, all, len(Builtin()))
	assert.Equal(t, "RDB", all[0].Label, "registration order is kept")

	live := r.List(core.CategoryLive)
	products := r.List(core.CategoryProduct)
	assert.Len(t, live, 6)
	assert.Len(t, products, 4)
	for _, f := range products {
		assert.True(t, f.IsProduct())
	}
}

func TestFormatRegistry_RegisterCopiesSheets(t *testing.T) {
	r := New(nil)
	sheets := []string{"A", "B"}
	require.NoError(t, r.Register(core.Format{Label: "X", Version: "1", Category: core.CategoryLive, SheetNames: sheets}))

	sheets[0] = "Z"
	got, ok := r.Lookup("X", "1", core.CategoryLive)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, got.SheetNames)
}

func TestSourceOf(t *testing.T) {
	src, ok := SourceOf(ProductAggRDB)
	require.True(t, ok)
	assert.Equal(t, LiveRDB.Key(), src.Key())

	_, ok = SourceOf(LiveFREE1)
	assert.False(t, ok)
}
