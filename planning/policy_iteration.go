package planning

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	. "gridmdp/grid_world"
)

// PolicyIteration alternates policy evaluation and policy improvement until improvement changes
// no cell. The evaluation and improvement strategies are fixed at construction.
type PolicyIteration struct {
	opts      Options
	evaluator PolicyEvaluator
	improver  PolicyImprover
}

// NewPolicyIteration builds the evaluator and improver selected by opts.
func NewPolicyIteration(opts Options) (*PolicyIteration, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var evaluator PolicyEvaluator
	switch opts.Evaluation {
	case Iterative:
		evaluator = &IterativeEvaluator{
			Threshold: opts.Threshold,
			MaxSweeps: opts.MaxIterations,
		}
	case Exact:
		evaluator = &LinearEvaluator{}
	}

	var improver PolicyImprover
	switch opts.Improvement {
	case PolicyOnly:
		improver = &GreedyImprover{TieEpsilon: opts.TieEpsilon}
	case PolicyAndValue:
		improver = &GreedyValueImprover{TieEpsilon: opts.TieEpsilon}
	}

	return NewPolicyIterationWith(opts, evaluator, improver)
}

// NewPolicyIterationWith composes policy iteration from arbitrary strategies.
func NewPolicyIterationWith(
	opts Options,
	evaluator PolicyEvaluator,
	improver PolicyImprover,
) (*PolicyIteration, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if evaluator == nil || improver == nil {
		return nil, invalidInput(errors.New("policy iteration requires an evaluator and an improver"))
	}
	return &PolicyIteration{
		opts:      opts,
		evaluator: evaluator,
		improver:  improver,
	}, nil
}

// InitialPolicy returns the starting policy: the configured direction, or a uniformly random
// direction per non-terminal cell when RandomPolicy is set.
func (pi *PolicyIteration) InitialPolicy(board *Board) Policy {
	policy := NewPolicy(board.Size)
	var rng *rand.Rand
	if pi.opts.RandomPolicy {
		rng = rand.New(rand.NewSource(pi.opts.Seed))
	}
	for _, c := range board.NonTerminalCells() {
		if rng != nil {
			policy[c.Row][c.Col] = Directions[rng.Intn(NUM_DIRECTIONS)]
		} else {
			policy[c.Row][c.Col] = pi.opts.InitialPolicy
		}
	}
	return policy
}

// Run solves the board. Termination relies on improvement eventually changing no cell; the round
// cap only guards malformed input. On any cap the result (Status CapExceeded) is returned along
// with an error wrapping ErrDidNotConverge.
func (pi *PolicyIteration) Run(ctx context.Context, board *Board) (*Result, error) {
	if err := board.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	policy := pi.InitialPolicy(board)
	values := NewValueBuffers(board.InitialValues())
	result := &Result{Status: Running}

	for result.Status == Running {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("policy iteration round %d: %w", result.Rounds+1, err)
		}
		if result.Rounds >= pi.opts.MaxIterations {
			result.Status = CapExceeded
			break
		}
		result.Rounds++
		round := result.Rounds

		sweeps, err := pi.evaluator.Evaluate(ctx, board, policy, values, func(sweep int, delta float64) {
			pi.opts.publish(ctx, func() Snapshot {
				return Snapshot{
					Phase:  PhaseEvaluation,
					Round:  round,
					Sweep:  sweep,
					Delta:  delta,
					Values: values.Current().Clone(),
					Policy: policy.Clone(),
				}
			})
		})
		result.Sweeps += sweeps
		if err != nil {
			if errors.Is(err, ErrDidNotConverge) {
				result.Values, result.Policy, result.Status = values.Current(), policy, CapExceeded
				return result, fmt.Errorf("policy iteration round %d: %w", round, err)
			}
			return nil, fmt.Errorf("policy iteration round %d: %w", round, err)
		}

		changed := pi.improver.Improve(board, policy, values)
		pi.opts.publish(ctx, func() Snapshot {
			return Snapshot{
				Phase:  PhaseImprovement,
				Round:  round,
				Sweep:  result.Sweeps,
				Values: values.Current().Clone(),
				Policy: policy.Clone(),
			}
		})
		if !changed {
			result.Status = Stable
		}
	}

	result.Values = values.Current()
	result.Policy = policy
	if result.Status == CapExceeded {
		return result, fmt.Errorf("policy iteration after %d rounds: %w", result.Rounds, ErrDidNotConverge)
	}
	return result, nil
}
