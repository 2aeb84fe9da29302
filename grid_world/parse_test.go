package grid_world

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const exampleBoard = `
# a small board
3            # size
0.9          # gamma
0.8, 0.1, 0.1

x, X, 10
X,   X, -10   # spaces are ignored
X, X, X
`

func TestParse(t *testing.T) {
	Convey("When a board file is parsed", t, func() {
		board, err := Parse(strings.NewReader(exampleBoard))
		So(err, ShouldBeNil)

		Convey("The header lines are read", func() {
			So(board.Size, ShouldEqual, 3)
			So(board.Gamma, ShouldEqual, 0.9)
			So(board.Noise, ShouldResemble, Noise{0.8, 0.1, 0, 0.1})
		})

		Convey("X marks non-terminal cells in either case", func() {
			So(board.IsTerminal(Cell{Row: 0, Col: 0}), ShouldBeFalse)
			So(board.IsTerminal(Cell{Row: 0, Col: 2}), ShouldBeTrue)
			So(board.Values[1][2], ShouldEqual, -10)
			So(board.Values[0][0], ShouldEqual, 0)
			So(len(board.NonTerminalCells()), ShouldEqual, 7)
		})

		Convey("Writing and re-reading yields the same board", func() {
			var buf bytes.Buffer
			So(Write(&buf, board), ShouldBeNil)
			again, err := Parse(&buf)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, board)
		})
	})

	Convey("When a board file is malformed", t, func() {
		cases := map[string]string{
			"too few rows":   "2\n0.9\n0.8,0.1,0.1\nX,X\n",
			"short row":      "2\n0.9\n0.8,0.1,0.1\nX,X\nX\n",
			"bad cell":       "1\n0.9\n0.8,0.1,0.1\nfoo\n",
			"bad size":       "two\n0.9\n0.8,0.1,0.1\nX\n",
			"zero size":      "0\n0.9\n0.8,0.1,0.1\n",
			"gamma too high": "1\n1.5\n0.8,0.1,0.1\nX\n",
			"missing header": "1\n0.9\n",
		}
		for name, contents := range cases {
			Convey("It fails for "+name, func() {
				_, err := Parse(strings.NewReader(contents))
				So(err, ShouldNotBeNil)
			})
		}

		Convey("Bad noise reports the noise error", func() {
			_, err := Parse(strings.NewReader("1\n0.9\n0.5,0.1,0.1\nX\n"))
			So(errors.Is(err, ErrNoiseSum), ShouldBeTrue)
		})
	})

	Convey("When a board is read from a file", t, func() {
		path := filepath.Join(t.TempDir(), "board.txt")
		So(os.WriteFile(path, []byte(exampleBoard), 0o644), ShouldBeNil)

		board, err := FromFile(path)
		So(err, ShouldBeNil)
		So(board.Size, ShouldEqual, 3)

		_, err = FromFile(filepath.Join(t.TempDir(), "missing.txt"))
		So(err, ShouldNotBeNil)
	})
}

func TestGenerate(t *testing.T) {
	Convey("When a board is generated", t, func() {
		noise, _ := NewNoise(0.8, 0.1, 0.1)
		cfg := GenerateConfig{Size: 20, N: 1, Gamma: 0.9, Noise: noise}

		first, err := Generate(cfg, rand.New(rand.NewSource(3)))
		So(err, ShouldBeNil)
		second, _ := Generate(cfg, rand.New(rand.NewSource(3)))

		Convey("It is reproducible from the seed", func() {
			So(second, ShouldResemble, first)
		})

		Convey("It places at most the drawn number of terminals", func() {
			drawn := 0
			for _, class := range DefaultRewardClasses {
				drawn += class.Count
			}
			terminals := cfg.Size*cfg.Size - len(first.NonTerminalCells())
			So(terminals, ShouldBeGreaterThan, 0)
			So(terminals, ShouldBeLessThanOrEqualTo, drawn)
		})

		Convey("Explicit classes replace the defaults", func() {
			cfg.Classes = []RewardClass{{Reward: 5, Count: 1}}
			board, err := Generate(cfg, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)
			So(len(board.NonTerminalCells()), ShouldEqual, cfg.Size*cfg.Size-1)
		})

		Convey("A non-positive size is rejected", func() {
			cfg.Size = 0
			_, err := Generate(cfg, rand.New(rand.NewSource(1)))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestShow(t *testing.T) {
	SetColors(false)
	defer SetColors(true)

	Convey("When a board and its policy are shown", t, func() {
		board, err := Parse(strings.NewReader(exampleBoard))
		So(err, ShouldBeNil)
		policy := NewPolicy(board.Size)
		for _, c := range board.NonTerminalCells() {
			policy[c.Row][c.Col] = Right
		}

		Convey("The board lists its parameters and terminal values", func() {
			var buf bytes.Buffer
			ShowBoard(&buf, board)
			So(buf.String(), ShouldContainSubstring, "Board size: 3")
			So(buf.String(), ShouldContainSubstring, "-10.00")
			So(buf.String(), ShouldContainSubstring, NON_TERMINAL)
		})

		Convey("The policy prints arrows or names", func() {
			var buf bytes.Buffer
			ShowPolicy(&buf, board, policy, true)
			So(buf.String(), ShouldContainSubstring, "→")
			So(buf.String(), ShouldContainSubstring, "10.00")

			buf.Reset()
			ShowPolicy(&buf, board, policy, false)
			So(buf.String(), ShouldContainSubstring, "right")
		})

		Convey("Values print with two decimals", func() {
			values := board.InitialValues()
			values[2][2] = 1.234
			var buf bytes.Buffer
			ShowValues(&buf, board, values)
			So(buf.String(), ShouldContainSubstring, "1.23")
		})
	})
}
