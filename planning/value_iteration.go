package planning

import (
	"context"
	"fmt"

	. "gridmdp/grid_world"
)

// ValueIteration repeats Bellman optimality sweeps until the value grid converges, then derives
// the greedy policy once from the converged values.
type ValueIteration struct {
	opts Options
}

func NewValueIteration(opts Options) (*ValueIteration, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &ValueIteration{opts: opts}, nil
}

// Run solves the board. A board without non-terminal cells converges on the first sweep.
// If the sweep cap is reached, the result (with Status CapExceeded) is returned together with
// an error wrapping ErrDidNotConverge.
func (vi *ValueIteration) Run(ctx context.Context, board *Board) (*Result, error) {
	if err := board.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	cells := board.NonTerminalCells()
	values := NewValueBuffers(board.InitialValues())
	bellmanOptimality := func(c Cell, cur Grid) float64 {
		_, maxQ := greedy(board, c, cur, vi.opts.TieEpsilon)
		return maxQ
	}

	result := &Result{Status: Running}
	for result.Status == Running {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("value iteration sweep %d: %w", result.Sweeps+1, err)
		}
		if result.Sweeps >= vi.opts.MaxIterations {
			result.Status = CapExceeded
			break
		}

		sr := sweep(cells, values, vi.opts.Threshold, bellmanOptimality)
		result.Sweeps++
		vi.opts.publish(ctx, func() Snapshot {
			return Snapshot{
				Phase:  PhaseValueIteration,
				Sweep:  result.Sweeps,
				Delta:  sr.delta,
				Values: values.Current().Clone(),
			}
		})

		if sr.status == converged {
			result.Status = Converged
		}
	}

	result.Values = values.Current()
	result.Policy = GreedyPolicy(board, result.Values, vi.opts.TieEpsilon)
	if result.Status == CapExceeded {
		return result, fmt.Errorf("value iteration after %d sweeps: %w", result.Sweeps, ErrDidNotConverge)
	}
	return result, nil
}
