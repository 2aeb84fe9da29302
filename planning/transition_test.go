package planning

import (
	"fmt"
	"testing"

	. "gridmdp/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTransitions(t *testing.T) {
	Convey("When computing transitions", t, func() {
		board := mustParse(t, threeByThree)
		center := Cell{Row: 1, Col: 1}

		Convey("When the intended direction is Up the outcomes are up, right, down, left", func() {
			outcomes := Transitions(board, center, Up)
			So(outcomes[0].Dest, ShouldResemble, Cell{Row: 0, Col: 1})
			So(outcomes[1].Dest, ShouldResemble, Cell{Row: 1, Col: 2})
			So(outcomes[2].Dest, ShouldResemble, Cell{Row: 2, Col: 1})
			So(outcomes[3].Dest, ShouldResemble, Cell{Row: 1, Col: 0})
		})

		Convey("When the intended direction is Left the noise is applied relative to it", func() {
			outcomes := Transitions(board, center, Left)
			// intended, clockwise, opposite, counter-clockwise
			So(outcomes[0].Dest, ShouldResemble, Cell{Row: 1, Col: 0})
			So(outcomes[1].Dest, ShouldResemble, Cell{Row: 0, Col: 1})
			So(outcomes[2].Dest, ShouldResemble, Cell{Row: 1, Col: 2})
			So(outcomes[3].Dest, ShouldResemble, Cell{Row: 2, Col: 1})
			So(outcomes[0].Prob, ShouldEqual, 0.8)
			So(outcomes[1].Prob, ShouldEqual, 0.1)
			So(outcomes[2].Prob, ShouldEqual, 0.0)
			So(outcomes[3].Prob, ShouldEqual, 0.1)
		})

		Convey("When a move leaves the board it bounces back to the origin", func() {
			corner := Cell{Row: 0, Col: 0}
			outcomes := Transitions(board, corner, Up)
			So(outcomes[0].Bounced, ShouldBeTrue)
			So(outcomes[0].Dest, ShouldResemble, corner)
			So(outcomes[1].Bounced, ShouldBeFalse)
			So(outcomes[3].Bounced, ShouldBeTrue)
			So(outcomes[3].Dest, ShouldResemble, corner)
		})
	})
}

func TestQValue(t *testing.T) {
	Convey("When a 1x1 board has a single non-terminal cell", t, func() {
		for _, noise := range []Noise{
			{0.8, 0.1, 0, 0.1},
			{1, 0, 0, 0},
			{0.25, 0.25, 0.25, 0.25},
			{0.1, 0.2, 0.3, 0.4},
		} {
			board := &Board{
				Size:        1,
				Gamma:       0.9,
				Noise:       noise,
				Values:      Grid{{0}},
				NonTerminal: [][]bool{{true}},
			}
			values := Grid{{5}}

			Convey("Every direction bounces and the value is gamma times its own, for noise "+formatNoise(noise), func() {
				for _, d := range Directions {
					for _, outcome := range Transitions(board, Cell{}, d) {
						So(outcome.Bounced, ShouldBeTrue)
					}
					So(QValue(board, Cell{}, d, values), ShouldAlmostEqual, 0.9*5, 1e-9)
				}
			})
		}
	})

	Convey("When an intended move reaches a terminal cell", t, func() {
		board := mustParse(t, twoByTwo)
		values := board.InitialValues()
		values[0][1] = 2

		Convey("The q-value weighs each destination by its noise and gamma", func() {
			// Left from (0,1): 0.8 to the +10 terminal, 0.1 bounces off the top, 0.1 down to -10.
			expected := 0.9 * (0.8*10 + 0.1*2 + 0.1*-10)
			So(QValue(board, Cell{Row: 0, Col: 1}, Left, values), ShouldAlmostEqual, expected, 1e-12)
		})
	})
}

func TestGreedyTieBreak(t *testing.T) {
	Convey("When two directions have identical q-values", t, func() {
		board := mustParse(t, `
3
0.9
0.8, 0.1, 0.1
0, 5, 0
0, X, 5
0, 0, 0
`)
		center := Cell{Row: 1, Col: 1}
		values := board.InitialValues()

		Convey("The lowest indexed direction wins, even with a zero epsilon", func() {
			So(QValue(board, center, Up, values), ShouldEqual, QValue(board, center, Right, values))
			best, maxQ := greedy(board, center, values, 0)
			So(best, ShouldEqual, Up)
			So(maxQ, ShouldAlmostEqual, 0.9*4.5, 1e-12)
		})

		Convey("When the later direction is better by less than the epsilon, the earlier is kept", func() {
			values[1][2] = 5.0000001
			best, _ := greedy(board, center, values, 1e-6)
			So(best, ShouldEqual, Up)

			best, _ = greedy(board, center, values, 0)
			So(best, ShouldEqual, Right)
		})

		Convey("The derived policy leaves terminal cells without a direction", func() {
			policy := GreedyPolicy(board, values, 0)
			So(policy.At(center), ShouldEqual, Up)
			So(policy.At(Cell{Row: 0, Col: 0}), ShouldEqual, NoDirection)
		})
	})
}

func formatNoise(n Noise) string {
	return fmt.Sprint([4]float64(n))
}
