package grid_world

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
)

// Console display of boards, value grids and policies. Positive terminals print green,
// negative terminals red and non-terminal cells blue.

var au aurora.Aurora = aurora.NewAurora(true)

// SetColors enables or disables ansi colors, e.g. when output is not a terminal.
func SetColors(enabled bool) {
	au = aurora.NewAurora(enabled)
}

const cellWidth = 10

// ShowBoard prints the board parameters and its cells, X marking non-terminal cells.
func ShowBoard(w io.Writer, b *Board) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, "Board size:", b.Size)
	fmt.Fprintln(w, "Gamma:", b.Gamma)
	fmt.Fprintln(w, "Noise (clockwise):", b.Noise)
	fmt.Fprintln(w, "Initial board states:")
	showCells(w, b, func(c Cell) string { return NON_TERMINAL })
}

// ShowValues prints a value grid; terminal cells print their fixed value.
func ShowValues(w io.Writer, b *Board, values Grid) {
	showCells(w, b, func(c Cell) string {
		return fmt.Sprintf("%.2f", values.At(c))
	})
}

// ShowPolicy prints a policy grid. Non-terminal cells print their direction as an arrow,
// or by name when arrows is false; terminal cells print their fixed value.
func ShowPolicy(w io.Writer, b *Board, policy Policy, arrows bool) {
	showCells(w, b, func(c Cell) string {
		d := policy.At(c)
		if arrows {
			return string(d.Arrow())
		}
		return d.String()
	})
}

// showCells prints a header row of column indices and one line per board row.
// nonTerminal formats the actionable cells.
func showCells(w io.Writer, b *Board, nonTerminal func(Cell) string) {
	fmt.Fprintf(w, "%4s", "")
	for j := 0; j < b.Size; j++ {
		fmt.Fprintf(w, "%*d", cellWidth, j)
	}
	fmt.Fprintln(w)

	for i := 0; i < b.Size; i++ {
		fmt.Fprintf(w, "%4d", i)
		for j := 0; j < b.Size; j++ {
			c := Cell{Row: i, Col: j}
			if !b.IsTerminal(c) {
				fmt.Fprint(w, au.Blue(pad(nonTerminal(c))))
				continue
			}
			text := pad(fmt.Sprintf("%.2f", b.Values.At(c)))
			switch val := b.Values.At(c); {
			case val > 0:
				fmt.Fprint(w, au.Green(text))
			case val < 0:
				fmt.Fprint(w, au.Red(text))
			default:
				fmt.Fprint(w, au.White(text))
			}
		}
		fmt.Fprintln(w)
	}
}

// pad right-aligns s within a cell. Rune count is used so arrows align.
func pad(s string) string {
	n := cellWidth - len([]rune(s))
	if n < 1 {
		n = 1
	}
	return strings.Repeat(" ", n) + s
}
