package grid_world

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDirection(t *testing.T) {
	Convey("When rotating directions", t, func() {
		Convey("Quarter turns go clockwise and wrap", func() {
			So(Up.Rotate(1), ShouldEqual, Right)
			So(Up.Rotate(2), ShouldEqual, Down)
			So(Left.Rotate(1), ShouldEqual, Up)
			So(Up.Rotate(-1), ShouldEqual, Left)
			So(Right.Rotate(7), ShouldEqual, Up)
		})

		Convey("Opposite directions have opposite offsets", func() {
			for _, d := range Directions {
				dr, dc := d.Offset()
				or, oc := d.Rotate(2).Offset()
				So(dr+or, ShouldEqual, 0)
				So(dc+oc, ShouldEqual, 0)
			}
			dr, dc := Up.Offset()
			So(dr, ShouldEqual, -1)
			So(dc, ShouldEqual, 0)
		})
	})

	Convey("When parsing directions", t, func() {
		Convey("Names and indices are accepted", func() {
			d, err := ParseDirection(" Left ")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, Left)
			d, err = ParseDirection("2")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, Down)
		})

		Convey("Anything else is rejected", func() {
			d, err := ParseDirection("north")
			So(err, ShouldNotBeNil)
			So(d, ShouldEqual, NoDirection)
		})

		Convey("NoDirection is not valid and prints as none", func() {
			So(NoDirection.Valid(), ShouldBeFalse)
			So(NoDirection.String(), ShouldEqual, "none")
			So(Right.Arrow(), ShouldEqual, '→')
		})
	})
}

func TestNoise(t *testing.T) {
	Convey("When building noise from board-file values", t, func() {
		Convey("Three values leave the opposite slot empty", func() {
			noise, err := NewNoise(0.8, 0.1, 0.1)
			So(err, ShouldBeNil)
			So(noise, ShouldResemble, Noise{0.8, 0.1, 0, 0.1})
		})

		Convey("Four values are reordered to clockwise order", func() {
			noise, err := NewNoise(0.7, 0.1, 0.15, 0.05)
			So(err, ShouldBeNil)
			So(noise, ShouldResemble, Noise{0.7, 0.1, 0.05, 0.15})
		})

		Convey("Other arities are rejected", func() {
			_, err := NewNoise(0.5, 0.5)
			So(errors.Is(err, ErrNoiseArity), ShouldBeTrue)
		})

		Convey("Values not summing to one are rejected", func() {
			_, err := NewNoise(0.8, 0.1, 0.2)
			So(errors.Is(err, ErrNoiseSum), ShouldBeTrue)
		})

		Convey("Negative values are rejected", func() {
			_, err := NewNoise(1.2, -0.1, -0.1)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBoard(t *testing.T) {
	Convey("When a board is built", t, func() {
		values := Grid{{1, 0}, {0, 0}}
		nonTerminal := [][]bool{{false, true}, {true, true}}
		board, err := NewBoard(2, 0.9, Noise{1, 0, 0, 0}, values, nonTerminal)
		So(err, ShouldBeNil)

		Convey("Non-terminal cells are listed in row-major order", func() {
			So(board.NonTerminalCells(), ShouldResemble, []Cell{{0, 1}, {1, 0}, {1, 1}})
			So(board.Index(Cell{Row: 1, Col: 0}), ShouldEqual, 2)
		})

		Convey("Initial values are a copy", func() {
			initial := board.InitialValues()
			initial[0][0] = 99
			So(board.Values[0][0], ShouldEqual, 1)
		})

		Convey("Bounds are checked on both axes", func() {
			So(board.InBounds(Cell{Row: 1, Col: 1}), ShouldBeTrue)
			So(board.InBounds(Cell{Row: -1, Col: 0}), ShouldBeFalse)
			So(board.InBounds(Cell{Row: 0, Col: 2}), ShouldBeFalse)
		})

		Convey("Mismatched shapes are rejected", func() {
			_, err := NewBoard(3, 0.9, Noise{1, 0, 0, 0}, values, nonTerminal)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("When cloning grids and policies", t, func() {
		policy := NewPolicy(2)
		policy[0][0] = Up
		clone := policy.Clone()
		So(clone.Equal(policy), ShouldBeTrue)
		clone[0][0] = Down
		So(clone.Equal(policy), ShouldBeFalse)
		So(policy[1][1], ShouldEqual, NoDirection)

		grid := Grid{{1, 2}, {3, 4}}
		target := NewGrid(2)
		target.CopyFrom(grid)
		So(target, ShouldResemble, grid)
	})
}
