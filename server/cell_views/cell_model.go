// cell_views contains views derived from the Cell view-model.
package cell_views

import (
	"gridmdp/grid_world"
	"gridmdp/planning"
)

// Cell flattens a board cell and its current value and policy into fields that are
// immediately usable as view parameters. X is the column and Y the row, which matches
// the svg coordinate system since board row 0 prints at the top.
type Cell struct {
	X, Y                int
	Value               float64
	Terminal            bool
	PolicyArrowRotation int
	// PolicyArrowOpacity hides the arrow of terminal cells, which have no action.
	PolicyArrowOpacity float64
	Fill               string
}

// NewConverter returns a func converting solver snapshots of board into [row][col]Cells.
// Value iteration snapshots carry no policy, so the greedy policy of their values is shown.
func NewConverter(board *grid_world.Board, tieEpsilon float64) func(planning.Snapshot) [][]Cell {
	return func(snap planning.Snapshot) [][]Cell {
		values := snap.Values
		if values == nil {
			values = board.InitialValues()
		}
		policy := snap.Policy
		if policy == nil {
			policy = planning.GreedyPolicy(board, values, tieEpsilon)
		}
		return Convert(board, values, policy)
	}
}

// Convert builds the cells of board for the given values and policy.
func Convert(
	board *grid_world.Board,
	values grid_world.Grid,
	policy grid_world.Policy,
) (cells [][]Cell) {
	cells = make([][]Cell, board.Size)
	for i := range cells {
		cells[i] = make([]Cell, board.Size)
	}

	grid_world.Visit(board.Size, func(c grid_world.Cell) {
		terminal := board.IsTerminal(c)
		cell := Cell{
			X:        c.Col,
			Y:        c.Row,
			Value:    values.At(c),
			Terminal: terminal,
			Fill:     getFill(terminal, values.At(c)),
		}
		if d := policy.At(c); !terminal && d.Valid() {
			cell.PolicyArrowRotation = getDegrees(d)
			cell.PolicyArrowOpacity = 1
		}
		cells[c.Row][c.Col] = cell
	})
	return
}

// getDegrees returns the clockwise svg rotation of an upward arrow pointing in direction d.
func getDegrees(d grid_world.Direction) int {
	return int(d) * 90
}

func getFill(terminal bool, value float64) (fill string) {
	switch {
	case !terminal:
		fill = "white"
	case value > 0:
		fill = "lightgreen"
	case value < 0:
		fill = "lightpink"
	default:
		fill = "lightgray"
	}
	return
}
