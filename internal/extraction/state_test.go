package extraction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapextract/internal/registry"
	"github.com/leapstack-labs/leapextract/internal/testutil"
)

func TestRunState_String(t *testing.T) {
	assert.Equal(t, "CREATED", StateCreated.String())
	assert.Equal(t, "COMPLETED", StateCompleted.String())
	assert.Equal(t, "FAILED", StateFailed.String())
	assert.True(t, StateFailed.IsFinal())
	assert.False(t, StateExecuted.IsFinal())
}

func TestTracker_Transitions(t *testing.T) {
	rec := &stateRecorder{}
	tr := newTracker("R1", registry.LiveRDB, rec.observe, testutil.NewTestLogger(t))

	require.NoError(t, tr.advance(StateChange{State: StateBuilding, Sheet: "TR"}))
	assert.Error(t, tr.advance(StateChange{State: StateExecuted, Sheet: "TR"}), "rendering cannot be skipped")
	require.NoError(t, tr.advance(StateChange{State: StateRendered, Sheet: "TR"}))
	require.NoError(t, tr.advance(StateChange{State: StateExecuted, Sheet: "TR", Rows: 4}))
	require.NoError(t, tr.advance(StateChange{State: StateCompleted}))
	assert.Error(t, tr.advance(StateChange{State: StateBuilding}), "completed is final")

	tr.fail("", errors.New("late"))
	assert.Equal(t, []string{"CREATED", "BUILDING:TR", "RENDERED:TR", "EXECUTED:TR", "COMPLETED"}, rec.states())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, c := range rec.changes {
		assert.Equal(t, "R1", c.RunID)
		assert.Equal(t, "RDB", c.Format.Label)
		assert.False(t, c.At.IsZero())
	}
	assert.Equal(t, int64(4), rec.changes[3].Rows)
}

func TestTracker_Fail(t *testing.T) {
	rec := &stateRecorder{}
	tr := newTracker("R1", registry.LiveRDB, rec.observe, testutil.NewTestLogger(t))
	require.NoError(t, tr.advance(StateChange{State: StateBuilding, Sheet: "TR"}))

	boom := errors.New("boom")
	tr.fail("TR", boom)
	tr.fail("TR", boom)

	assert.Equal(t, []string{"CREATED", "BUILDING:TR", "FAILED:TR"}, rec.states())
	assert.ErrorIs(t, rec.changes[2].Err, boom)
}
