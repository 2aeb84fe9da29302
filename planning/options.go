package planning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	. "gridmdp/grid_world"
)

// EvaluationMode selects how a fixed policy is evaluated during policy iteration.
type EvaluationMode int

const (
	// Iterative repeats Bellman policy sweeps until the max change falls below the threshold.
	Iterative EvaluationMode = iota
	// Exact solves the N²xN² linear system of the policy directly. This is O(N⁶) work
	// and O(N⁴) memory, so it is only practical for small boards.
	Exact
)

// ImprovementMode selects the policy iteration schedule.
type ImprovementMode int

const (
	// PolicyOnly improves the policy and leaves the values to the next evaluation.
	PolicyOnly ImprovementMode = iota
	// PolicyAndValue also commits each cell's max q-value while improving.
	PolicyAndValue
)

var (
	evaluationNames  = []string{"iterative", "exact"}
	improvementNames = []string{"policy-only", "policy-and-value"}
)

func (m EvaluationMode) String() string {
	if m < 0 || int(m) >= len(evaluationNames) {
		return fmt.Sprintf("EvaluationMode(%d)", int(m))
	}
	return evaluationNames[m]
}

func (m ImprovementMode) String() string {
	if m < 0 || int(m) >= len(improvementNames) {
		return fmt.Sprintf("ImprovementMode(%d)", int(m))
	}
	return improvementNames[m]
}

// ParseEvaluationMode parses "iterative" or "exact"; empty selects Iterative.
func ParseEvaluationMode(s string) (EvaluationMode, error) {
	idx, err := parseName(s, evaluationNames)
	return EvaluationMode(idx), err
}

// ParseImprovementMode parses "policy-only" or "policy-and-value"; empty selects PolicyOnly.
func ParseImprovementMode(s string) (ImprovementMode, error) {
	idx, err := parseName(s, improvementNames)
	return ImprovementMode(idx), err
}

func parseName(s string, names []string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	for i, name := range names {
		if s == name {
			return i, nil
		}
	}
	return 0, invalidInput(fmt.Errorf("%q is not one of %v", s, names))
}

// Options are the engine parameters shared by value and policy iteration.
type Options struct {
	// Threshold: a sweep converges when the max absolute change over non-terminal cells is strictly below it.
	Threshold float64
	// MaxIterations caps value iteration sweeps, each policy evaluation's sweeps, and policy iteration rounds.
	MaxIterations int
	Evaluation    EvaluationMode
	Improvement   ImprovementMode
	// InitialPolicy is the starting direction of every non-terminal cell, unless RandomPolicy is set.
	InitialPolicy Direction
	RandomPolicy  bool
	Seed          int64
	// TieEpsilon: a later direction only displaces the current best if its q-value is larger by more than this.
	TieEpsilon float64
	// Progress, if set, receives a snapshot after every sweep and improvement round.
	Progress ProgressFunc
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Threshold:     0.01,
		MaxIterations: 100000,
		Evaluation:    Iterative,
		Improvement:   PolicyOnly,
		InitialPolicy: Right,
		Seed:          1,
		TieEpsilon:    1e-6,
	}
}

func (opts *Options) validate() error {
	switch {
	case !(opts.Threshold > 0) || math.IsInf(opts.Threshold, 1):
		return invalidInput(fmt.Errorf("threshold must be positive, got %g", opts.Threshold))
	case opts.MaxIterations <= 0:
		return invalidInput(fmt.Errorf("iteration cap must be positive, got %d", opts.MaxIterations))
	case opts.Evaluation != Iterative && opts.Evaluation != Exact:
		return invalidInput(fmt.Errorf("unknown evaluation mode %v", opts.Evaluation))
	case opts.Improvement != PolicyOnly && opts.Improvement != PolicyAndValue:
		return invalidInput(fmt.Errorf("unknown improvement mode %v", opts.Improvement))
	case !opts.RandomPolicy && !opts.InitialPolicy.Valid():
		return invalidInput(errors.New("initial policy direction is required unless random"))
	case !(opts.TieEpsilon >= 0):
		return invalidInput(fmt.Errorf("tie epsilon must be non-negative, got %g", opts.TieEpsilon))
	}
	return nil
}

// publish sends a snapshot to the progress func, if any. The snapshot is only built when needed
// since it clones the grids.
func (opts *Options) publish(ctx context.Context, build func() Snapshot) {
	if opts.Progress != nil {
		opts.Progress(ctx, build())
	}
}

// Solver is implemented by ValueIteration and PolicyIteration.
type Solver interface {
	Run(ctx context.Context, board *Board) (*Result, error)
}

const (
	ValueIterationAlgorithm  = "value-iteration"
	PolicyIterationAlgorithm = "policy-iteration"
)

// NewSolver returns the solver named by algorithm; empty selects value iteration.
func NewSolver(algorithm string, opts Options) (Solver, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", ValueIterationAlgorithm:
		return NewValueIteration(opts)
	case PolicyIterationAlgorithm:
		return NewPolicyIteration(opts)
	}
	return nil, invalidInput(fmt.Errorf("unknown algorithm %q", algorithm))
}
