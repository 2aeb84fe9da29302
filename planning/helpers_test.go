package planning

import (
	"strings"
	"testing"

	. "gridmdp/grid_world"
)

// The end-to-end board: +10 top left, -10 bottom right, two non-terminal cells between them.
const twoByTwo = `
2
0.9
0.8, 0.1, 0.1
10, X
X, -10
`

// One terminal corner; every other cell is non-terminal.
const threeByThree = `
3
0.9
0.8, 0.1, 0.1
X, X, 10
X, X, X
X, X, X
`

func mustParse(t *testing.T, board string) *Board {
	t.Helper()
	b, err := Parse(strings.NewReader(board))
	if err != nil {
		t.Fatalf("parse board: %v", err)
	}
	return b
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Threshold = 1e-6
	opts.MaxIterations = 10000
	return opts
}
