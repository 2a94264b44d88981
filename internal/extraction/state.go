package extraction

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// RunState is the state of one extraction run.
type RunState int

// RunState constants.
const (
	StateCreated RunState = iota
	StateBuilding
	StateRendered
	StateExecuted
	StateCompleted
	StateFailed
)

var runStateNames = [...]string{
	StateCreated:   "CREATED",
	StateBuilding:  "BUILDING",
	StateRendered:  "RENDERED",
	StateExecuted:  "EXECUTED",
	StateCompleted: "COMPLETED",
	StateFailed:    "FAILED",
}

func (s RunState) String() string {
	if int(s) < len(runStateNames) {
		return runStateNames[s]
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// IsFinal reports whether no transition leaves the state.
func (s RunState) IsFinal() bool {
	return s == StateCompleted || s == StateFailed
}

// transitions lists the legal successors of each state.
var transitions = map[RunState][]RunState{
	StateCreated:  {StateBuilding, StateCompleted, StateFailed},
	StateBuilding: {StateRendered, StateFailed},
	StateRendered: {StateExecuted, StateFailed},
	StateExecuted: {StateBuilding, StateCompleted, StateFailed},
}

// StateChange is emitted to the Observer on every transition of a run.
type StateChange struct {
	RunID  string
	Format core.Format
	State  RunState
	Sheet  string
	Table  string
	Rows   int64
	Err    error
	At     time.Time
}

// Observer receives run state changes. It is called synchronously from the
// goroutine driving the run.
type Observer func(StateChange)

// tracker drives the state machine of one run.
type tracker struct {
	runID    string
	format   core.Format
	state    RunState
	observer Observer
	logger   *slog.Logger
}

func newTracker(runID string, f core.Format, observer Observer, logger *slog.Logger) *tracker {
	t := &tracker{runID: runID, format: f, state: StateCreated, observer: observer, logger: logger}
	t.emit(StateChange{State: StateCreated})
	return t
}

// advance moves the run to change.State.
func (t *tracker) advance(change StateChange) error {
	if !slices.Contains(transitions[t.state], change.State) {
		return fmt.Errorf("illegal run state transition %s -> %s", t.state, change.State)
	}
	t.state = change.State
	t.emit(change)
	return nil
}

// fail moves the run to FAILED unless it is already final.
func (t *tracker) fail(sheet string, err error) {
	if t.state.IsFinal() {
		return
	}
	t.state = StateFailed
	t.emit(StateChange{State: StateFailed, Sheet: sheet, Err: err})
}

func (t *tracker) emit(change StateChange) {
	change.RunID = t.runID
	change.Format = t.format
	change.At = time.Now().UTC()
	t.logger.Debug("extraction run state",
		slog.String("run_id", t.runID),
		slog.String("state", change.State.String()),
		slog.String("sheet", change.Sheet))
	if t.observer != nil {
		t.observer(change)
	}
}
