package planning

import (
	"context"
	"errors"
	"math"
	"testing"

	. "gridmdp/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPolicyIteration(t *testing.T) {
	ctx := context.Background()

	Convey("When policy iteration runs on the 2x2 board", t, func() {
		board := mustParse(t, twoByTwo)

		for _, evaluation := range []EvaluationMode{Iterative, Exact} {
			for _, improvement := range []ImprovementMode{PolicyOnly, PolicyAndValue} {
				opts := testOptions()
				opts.Evaluation = evaluation
				opts.Improvement = improvement

				Convey("With "+evaluation.String()+" evaluation and "+improvement.String()+" improvement", func() {
					pi, err := NewPolicyIteration(opts)
					So(err, ShouldBeNil)
					result, err := pi.Run(ctx, board)
					So(err, ShouldBeNil)

					Convey("It stabilizes on the policy heading for the +10 terminal", func() {
						So(result.Status, ShouldEqual, Stable)
						So(result.Rounds, ShouldEqual, 2)
						So(result.Policy[0][1], ShouldEqual, Left)
						So(result.Policy[1][0], ShouldEqual, Up)
						So(result.Policy[0][0], ShouldEqual, NoDirection)
					})

					Convey("Its values match value iteration", func() {
						vi, _ := NewValueIteration(testOptions())
						expected, err := vi.Run(ctx, board)
						So(err, ShouldBeNil)
						for _, c := range board.NonTerminalCells() {
							So(result.Values.At(c), ShouldAlmostEqual, expected.Values.At(c), 1e-4)
						}
					})
				})
			}
		}
	})

	Convey("When policy iteration runs on the 3x3 board", t, func() {
		board := mustParse(t, threeByThree)
		numNonTerminal := len(board.NonTerminalCells())

		for _, evaluation := range []EvaluationMode{Iterative, Exact} {
			opts := testOptions()
			opts.Evaluation = evaluation
			opts.Threshold = 1e-10
			opts.RandomPolicy = true
			opts.Seed = 42

			Convey("With "+evaluation.String()+" evaluation from a random policy", func() {
				pi, _ := NewPolicyIteration(opts)
				result, err := pi.Run(ctx, board)

				Convey("It terminates within the number of distinct policies", func() {
					So(err, ShouldBeNil)
					So(result.Status, ShouldEqual, Stable)
					So(result.Rounds, ShouldBeLessThanOrEqualTo, int(math.Pow(4, float64(numNonTerminal))))
					So(result.Policy[0][1], ShouldEqual, Right)
					So(result.Policy[1][2], ShouldEqual, Up)
				})
			})
		}
	})

	Convey("When the initial policy is random", t, func() {
		board := mustParse(t, threeByThree)
		opts := testOptions()
		opts.RandomPolicy = true
		opts.Seed = 7
		pi, _ := NewPolicyIteration(opts)

		Convey("It is reproducible per seed and only assigns non-terminal cells", func() {
			first, second := pi.InitialPolicy(board), pi.InitialPolicy(board)
			So(first.Equal(second), ShouldBeTrue)
			So(first[0][2], ShouldEqual, NoDirection)
			for _, c := range board.NonTerminalCells() {
				So(first.At(c).Valid(), ShouldBeTrue)
			}
		})
	})

	Convey("When exact evaluation meets a singular system", t, func() {
		board := mustParse(t, `
1
1
0.8, 0.1, 0.1
X
`)
		opts := testOptions()
		opts.Evaluation = Exact
		pi, _ := NewPolicyIteration(opts)
		result, err := pi.Run(ctx, board)

		Convey("The run fails with the singular system error", func() {
			So(result, ShouldBeNil)
			So(errors.Is(err, ErrSingularSystem), ShouldBeTrue)
		})
	})

	Convey("When the round cap is reached", t, func() {
		board := mustParse(t, twoByTwo)
		opts := testOptions()
		opts.Evaluation = Exact
		opts.MaxIterations = 1
		pi, _ := NewPolicyIteration(opts)
		result, err := pi.Run(ctx, board)

		Convey("The capped result comes back with did-not-converge", func() {
			So(errors.Is(err, ErrDidNotConverge), ShouldBeTrue)
			So(result.Status, ShouldEqual, CapExceeded)
			So(result.Rounds, ShouldEqual, 1)
		})
	})

	Convey("When an evaluation inside a round reaches its sweep cap", t, func() {
		board := mustParse(t, threeByThree)
		opts := testOptions()
		opts.Evaluation = Iterative
		opts.Threshold = 1e-12
		opts.MaxIterations = 3
		pi, _ := NewPolicyIteration(opts)
		result, err := pi.Run(ctx, board)

		Convey("The partial result comes back with did-not-converge", func() {
			So(errors.Is(err, ErrDidNotConverge), ShouldBeTrue)
			So(result, ShouldNotBeNil)
			So(result.Status, ShouldEqual, CapExceeded)
			So(result.Rounds, ShouldEqual, 1)
			So(result.Sweeps, ShouldEqual, 3)
			So(result.Policy, ShouldNotBeNil)
			So(result.Values, ShouldNotBeNil)
		})
	})

	Convey("When progress is observed", t, func() {
		board := mustParse(t, twoByTwo)
		opts := testOptions()
		phases := map[Phase]int{}
		opts.Progress = func(_ context.Context, snap Snapshot) {
			phases[snap.Phase]++
			So(snap.Policy, ShouldNotBeNil)
		}
		pi, _ := NewPolicyIteration(opts)
		result, err := pi.Run(ctx, board)
		So(err, ShouldBeNil)

		Convey("Every evaluation sweep and improvement round is published", func() {
			So(phases[PhaseEvaluation], ShouldEqual, result.Sweeps)
			So(phases[PhaseImprovement], ShouldEqual, result.Rounds)
		})
	})

	Convey("When strategies are missing", t, func() {
		_, err := NewPolicyIterationWith(testOptions(), nil, &GreedyImprover{})

		Convey("Construction fails", func() {
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestImprovers(t *testing.T) {
	Convey("When improving an already greedy policy", t, func() {
		board := mustParse(t, twoByTwo)
		policy := NewPolicy(board.Size)
		policy[0][1], policy[1][0] = Left, Up
		values := NewValueBuffers(board.InitialValues())
		_, err := (&LinearEvaluator{}).Evaluate(context.Background(), board, policy, values, nil)
		So(err, ShouldBeNil)

		Convey("The policy-only improver reports it stable and leaves the values", func() {
			before := values.Current().Clone()
			So((&GreedyImprover{TieEpsilon: 1e-6}).Improve(board, policy, values), ShouldBeFalse)
			So(values.Current(), ShouldResemble, before)
		})

		Convey("The policy-and-value improver reports it stable and commits the max q-values", func() {
			So((&GreedyValueImprover{TieEpsilon: 1e-6}).Improve(board, policy, values), ShouldBeFalse)
			So(values.Current()[0][1], ShouldAlmostEqual, 6.3/0.91, 1e-9)
			So(values.Current()[0][0], ShouldEqual, 10)
		})
	})

	Convey("When improving a poor policy", t, func() {
		board := mustParse(t, twoByTwo)
		policy := NewPolicy(board.Size)
		policy[0][1], policy[1][0] = Down, Right
		values := NewValueBuffers(board.InitialValues())

		Convey("The improver reports a change and adopts the greedy directions", func() {
			So((&GreedyImprover{}).Improve(board, policy, values), ShouldBeTrue)
			So(policy[0][1], ShouldEqual, Left)
			So(policy[1][0], ShouldEqual, Up)
		})
	})
}
