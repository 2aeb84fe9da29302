package planning

import (
	"context"
	"fmt"
	"math"

	. "gridmdp/grid_world"

	"gonum.org/v1/gonum/mat"
)

// PolicyEvaluator computes the values of a fixed policy into values' current buffer.
// It returns the number of evaluation passes made.
type PolicyEvaluator interface {
	Evaluate(
		ctx context.Context,
		board *Board,
		policy Policy,
		values *ValueBuffers,
		onSweep SweepFunc,
	) (sweeps int, err error)
}

// IterativeEvaluator repeats Bellman policy sweeps, starting from the current values, until the max
// change falls below Threshold. Only each cell's policy direction is considered; there is no max.
type IterativeEvaluator struct {
	Threshold float64
	MaxSweeps int
}

func (e *IterativeEvaluator) Evaluate(
	ctx context.Context,
	board *Board,
	policy Policy,
	values *ValueBuffers,
	onSweep SweepFunc,
) (sweeps int, err error) {
	cells := board.NonTerminalCells()
	bellmanPolicy := func(c Cell, cur Grid) float64 {
		return QValue(board, c, policy.At(c), cur)
	}

	for {
		if err = ctx.Err(); err != nil {
			return sweeps, fmt.Errorf("policy evaluation sweep %d: %w", sweeps+1, err)
		}
		if sweeps >= e.MaxSweeps {
			return sweeps, fmt.Errorf("policy evaluation after %d sweeps: %w", sweeps, ErrDidNotConverge)
		}

		sr := sweep(cells, values, e.Threshold, bellmanPolicy)
		sweeps++
		if onSweep != nil {
			onSweep(sweeps, sr.delta)
		}
		if sr.status == converged {
			return sweeps, nil
		}
	}
}

// LinearEvaluator solves for the exact values of a fixed policy in one shot, as the dense
// system A·v = b over the row-major flattened cells:
//
//	terminal k:     A[k][k] = 1, b[k] = fixed value
//	non-terminal k: A[k][k] = 1, A[k][dest] -= noise·gamma per outcome, b[k] = 0
//
// where a bounced outcome's dest is k itself, folding into the diagonal.
// A is N²xN² and is LU factorized, so this is O(N⁶) time and O(N⁴) memory.
type LinearEvaluator struct{}

func (e *LinearEvaluator) Evaluate(
	ctx context.Context,
	board *Board,
	policy Policy,
	values *ValueBuffers,
	onSweep SweepFunc,
) (sweeps int, err error) {
	if err = ctx.Err(); err != nil {
		return 0, fmt.Errorf("linear policy evaluation: %w", err)
	}

	if math.Abs(1-board.Gamma) <= NOISE_TOLERANCE {
		if c, ok := strandedCell(board, policy); ok {
			return 0, fmt.Errorf("%w: gamma is 1 and (%d,%d) cannot reach a terminal under the policy",
				ErrSingularSystem, c.Row, c.Col)
		}
	}

	a, b := buildPolicySystem(board, policy)

	var lu mat.LU
	lu.Factorize(a)
	var v mat.VecDense
	if err = lu.SolveVecTo(&v, false, b); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}

	cur, next := values.Current(), values.Next()
	delta := 0.0
	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			c := Cell{Row: i, Col: j}
			if board.IsTerminal(c) {
				next[i][j] = board.Values.At(c)
				continue
			}
			val := v.AtVec(board.Index(c))
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return 0, fmt.Errorf("%w: non-finite value at (%d,%d)", ErrSingularSystem, i, j)
			}
			delta = math.Max(delta, math.Abs(val-cur[i][j]))
			next[i][j] = val
		}
	}
	values.Swap()

	if onSweep != nil {
		onSweep(1, delta)
	}
	return 1, nil
}

// buildPolicySystem returns A and b of the policy's linear system.
func buildPolicySystem(board *Board, policy Policy) (*mat.Dense, *mat.VecDense) {
	n := board.Size * board.Size
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)

	Visit(board.Size, func(c Cell) {
		k := board.Index(c)
		a.Set(k, k, 1)
		if board.IsTerminal(c) {
			b.SetVec(k, board.Values.At(c))
			return
		}
		for _, outcome := range Transitions(board, c, policy.At(c)) {
			weight := outcome.Prob * board.Gamma
			dest := board.Index(outcome.Dest)
			a.Set(k, dest, a.At(k, dest)-weight)
		}
	})
	return a, b
}

// strandedCell returns the first non-terminal cell, in row-major order, from which no terminal is
// reachable via the positive-probability outcomes of the policy. Undiscounted, such a cell sits in
// a closed set of non-terminals whose rows of A sum to zero.
func strandedCell(board *Board, policy Policy) (Cell, bool) {
	cells := board.NonTerminalCells()
	reaches := make(map[Cell]bool, len(cells))
	for changed := true; changed; {
		changed = false
		for _, c := range cells {
			if reaches[c] {
				continue
			}
			for _, outcome := range Transitions(board, c, policy.At(c)) {
				if outcome.Prob > 0 && (board.IsTerminal(outcome.Dest) || reaches[outcome.Dest]) {
					reaches[c], changed = true, true
					break
				}
			}
		}
	}
	for _, c := range cells {
		if !reaches[c] {
			return c, true
		}
	}
	return Cell{}, false
}
