package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapextract/pkg/adapter"
	"github.com/leapstack-labs/leapextract/pkg/core"

	// Adapters register themselves in init()
	_ "github.com/leapstack-labs/leapextract/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapextract/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapextract/pkg/adapters/sqlite"
)

func TestBuiltinAdapters_SelfRegister(t *testing.T) {
	tests := []struct {
		target  string
		dialect string
	}{
		{"duckdb", "duckdb"},
		{"postgres", "postgres"},
		{"sqlite", "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			require.True(t, adapter.IsRegistered(tt.target))

			a, err := adapter.NewAdapter(core.AdapterConfig{Type: tt.target}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, a.DialectName(), "the target type selects the dialect")
			assert.NoError(t, a.Close(), "closing an unconnected adapter is a no-op")
		})
	}

	assert.Subset(t, adapter.ListAdapters(), []string{"duckdb", "postgres", "sqlite"})
}

func TestNewAdapter_UnknownListsBuiltins(t *testing.T) {
	_, err := adapter.NewAdapter(core.AdapterConfig{Type: "oracle"}, nil)

	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Subset(t, unknown.Available, []string{"duckdb", "postgres", "sqlite"})
}
