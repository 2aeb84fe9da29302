package planning

import (
	"context"
	"math"

	. "gridmdp/grid_world"
)

// ValueBuffers double-buffers the value grid. A sweep reads only Current and writes only Next,
// then swaps, so every read within one sweep sees the same pre-sweep values regardless of
// the order in which cells are visited.
type ValueBuffers struct {
	cur, next Grid
}

// NewValueBuffers starts both buffers from a copy of initial. Terminal cells are never written
// by a sweep, so they keep their fixed values in both buffers.
func NewValueBuffers(initial Grid) *ValueBuffers {
	return &ValueBuffers{
		cur:  initial.Clone(),
		next: initial.Clone(),
	}
}

func (vb *ValueBuffers) Current() Grid { return vb.cur }
func (vb *ValueBuffers) Next() Grid    { return vb.next }

// Swap commits Next as the current values.
func (vb *ValueBuffers) Swap() {
	vb.cur, vb.next = vb.next, vb.cur
}

type sweepStatus int

const (
	continuing sweepStatus = iota
	converged
)

type sweepResult struct {
	status sweepStatus
	delta  float64
}

// sweep writes update(c) for every cell into the next buffer, swaps, and reports whether the max
// absolute change is below threshold. The sweep is committed either way.
func sweep(
	cells []Cell,
	values *ValueBuffers,
	threshold float64,
	update func(c Cell, cur Grid) float64,
) (result sweepResult) {
	cur, next := values.Current(), values.Next()
	for _, c := range cells {
		val := update(c, cur)
		result.delta = math.Max(result.delta, math.Abs(val-cur.At(c)))
		next[c.Row][c.Col] = val
	}
	values.Swap()

	if result.delta < threshold {
		result.status = converged
	}
	return
}

// SweepFunc is notified after each evaluation sweep with its 1-based count and max change.
type SweepFunc func(sweep int, delta float64)

// Status is the terminal state of a run.
type Status int

const (
	Running Status = iota
	// Converged: value iteration's max change fell below the threshold.
	Converged
	// Stable: policy improvement changed no cell.
	Stable
	// CapExceeded: the iteration cap was reached first.
	CapExceeded
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case Stable:
		return "stable"
	case CapExceeded:
		return "cap exceeded"
	}
	return "unknown"
}

// Result is the outcome of a run. The grids are owned by the caller once returned.
type Result struct {
	Values Grid
	Policy Policy
	// Sweeps counts value-iteration sweeps, or for policy iteration the evaluation passes
	// over all rounds (an exact solve counts as one).
	Sweeps int
	// Rounds counts policy iteration's evaluate/improve rounds, including the final stable one.
	Rounds int
	Status Status
}

// Phase names the step that produced a Snapshot.
type Phase string

const (
	PhaseValueIteration Phase = "value-iteration"
	PhaseEvaluation     Phase = "evaluation"
	PhaseImprovement    Phase = "improvement"
)

// Snapshot is a copy of the engine's grids at a point in a run, for reporting.
type Snapshot struct {
	Phase  Phase
	Round  int
	Sweep  int
	Delta  float64
	Values Grid
	// Policy is nil during value iteration, whose policy is only derived at the end.
	Policy Policy
}

// ProgressFunc is a callback by which a run lends progress details. It is synchronous,
// so it should complete quickly and must not retain the context beyond the call.
type ProgressFunc func(context.Context, Snapshot)
