package grid_world

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Cell is a 0-indexed (row, column) position on the board. Row 0 is the top row when printed.
type Cell struct {
	Row, Col int
}

// Direction is one of the four compass moves. The values are ordered clockwise starting from Up,
// and this order is relied upon both for tie-breaking and for interpreting Noise.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left

	// NoDirection is the policy entry of a terminal cell, which has no action.
	NoDirection Direction = -1
	// NUM_DIRECTIONS is the number of canonical directions.
	NUM_DIRECTIONS = 4
)

// Directions lists the canonical directions in tie-break order.
var Directions = [NUM_DIRECTIONS]Direction{Up, Right, Down, Left}

var (
	directionNames  = [NUM_DIRECTIONS]string{"up", "right", "down", "left"}
	directionArrows = [NUM_DIRECTIONS]rune{'↑', '→', '↓', '←'}
	// Row/col displacement per direction; rows grow downward.
	directionOffsets = [NUM_DIRECTIONS]Cell{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}
)

// Rotate returns the direction reached by turning clockwise the given number of quarter turns.
// Negative values turn counter-clockwise.
func (d Direction) Rotate(quarterTurns int) Direction {
	return Direction(((int(d)+quarterTurns)%NUM_DIRECTIONS + NUM_DIRECTIONS) % NUM_DIRECTIONS)
}

// Offset returns the row and column displacement of a single step in direction d.
func (d Direction) Offset() (dRow, dCol int) {
	off := directionOffsets[d]
	return off.Row, off.Col
}

func (d Direction) Valid() bool {
	return d >= Up && d <= Left
}

func (d Direction) String() string {
	if !d.Valid() {
		return "none"
	}
	return directionNames[d]
}

// Arrow returns a printable rune for the direction, e.g. for console display.
func (d Direction) Arrow() rune {
	if !d.Valid() {
		return '·'
	}
	return directionArrows[d]
}

// ParseDirection accepts a direction name ("up", "Right", ...) or its index ("0".."3").
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range directionNames {
		if s == name || s == fmt.Sprint(i) {
			return Direction(i), nil
		}
	}
	return NoDirection, fmt.Errorf("unknown direction %q", s)
}

// Noise is the outcome distribution of an attempted move, relative to the intended direction:
// index 0 is the intended direction, 1 is a clockwise quarter turn, 2 is the opposite direction
// and 3 is a counter-clockwise quarter turn.
type Noise [NUM_DIRECTIONS]float64

// NOISE_TOLERANCE is how far a noise distribution may sum from 1.0.
const NOISE_TOLERANCE = 1e-6

var (
	ErrNoiseArity = errors.New("noise must have 3 or 4 values")
	ErrNoiseSum   = errors.New("noise must sum to 1")
)

// NewNoise builds a Noise from values given in board-file order: intended, clockwise,
// counter-clockwise and, optionally, opposite. With 3 values the opposite slot is zero,
// so (p0, p1, p2) becomes (p0, p1, 0, p2); with 4 values (p0, p1, p2, p3) becomes (p0, p1, p3, p2).
func NewNoise(vals ...float64) (noise Noise, err error) {
	switch len(vals) {
	case 3:
		noise = Noise{vals[0], vals[1], 0, vals[2]}
	case 4:
		noise = Noise{vals[0], vals[1], vals[3], vals[2]}
	default:
		return noise, fmt.Errorf("%w: got %d", ErrNoiseArity, len(vals))
	}
	err = noise.Validate()
	return
}

// Validate checks that the distribution is non-negative and sums to 1.
func (n Noise) Validate() error {
	sum := 0.0
	for _, p := range n {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("noise probabilities must be non-negative: %v", n)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > NOISE_TOLERANCE {
		return fmt.Errorf("%w: %v sums to %g", ErrNoiseSum, n, sum)
	}
	return nil
}

// Grid is a square matrix of real values indexed [row][col].
type Grid [][]float64

func NewGrid(size int) Grid {
	grid := make(Grid, size)
	for i := range grid {
		grid[i] = make([]float64, size)
	}
	return grid
}

func (g Grid) Clone() Grid {
	clone := make(Grid, len(g))
	for i := range g {
		clone[i] = append([]float64(nil), g[i]...)
	}
	return clone
}

// CopyFrom overwrites g with the values of src, which must have the same shape.
func (g Grid) CopyFrom(src Grid) {
	for i := range g {
		copy(g[i], src[i])
	}
}

func (g Grid) At(c Cell) float64 {
	return g[c.Row][c.Col]
}

// Policy holds a Direction for every non-terminal cell and NoDirection for terminal cells.
type Policy [][]Direction

func NewPolicy(size int) Policy {
	policy := make(Policy, size)
	for i := range policy {
		policy[i] = make([]Direction, size)
		for j := range policy[i] {
			policy[i][j] = NoDirection
		}
	}
	return policy
}

func (p Policy) Clone() Policy {
	clone := make(Policy, len(p))
	for i := range p {
		clone[i] = append([]Direction(nil), p[i]...)
	}
	return clone
}

func (p Policy) Equal(other Policy) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if len(p[i]) != len(other[i]) {
			return false
		}
		for j := range p[i] {
			if p[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

func (p Policy) At(c Cell) Direction {
	return p[c.Row][c.Col]
}

// Board is the immutable problem definition: size, discount, noise, the fixed values of
// terminal cells and the mask of non-terminal (actionable) cells.
// Non-terminal cells hold 0 in Values.
type Board struct {
	Size        int
	Gamma       float64
	Noise       Noise
	Values      Grid
	NonTerminal [][]bool
}

// NewBoard returns a validated board.
func NewBoard(
	size int,
	gamma float64,
	noise Noise,
	values Grid,
	nonTerminal [][]bool,
) (*Board, error) {
	board := &Board{
		Size:        size,
		Gamma:       gamma,
		Noise:       noise,
		Values:      values,
		NonTerminal: nonTerminal,
	}
	if err := board.Validate(); err != nil {
		return nil, err
	}
	return board, nil
}

// Validate checks the board's dimension, discount, noise and grid shapes.
func (b *Board) Validate() error {
	if b == nil {
		return errors.New("nil board")
	}
	if b.Size <= 0 {
		return fmt.Errorf("board size must be positive, got %d", b.Size)
	}
	if !(b.Gamma > 0 && b.Gamma <= 1) {
		return fmt.Errorf("gamma must be in (0,1], got %g", b.Gamma)
	}
	if err := b.Noise.Validate(); err != nil {
		return err
	}
	if len(b.Values) != b.Size || len(b.NonTerminal) != b.Size {
		return fmt.Errorf("board must have %d rows", b.Size)
	}
	for i := 0; i < b.Size; i++ {
		if len(b.Values[i]) != b.Size || len(b.NonTerminal[i]) != b.Size {
			return fmt.Errorf("row %d must have %d cells", i, b.Size)
		}
	}
	return nil
}

func (b *Board) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < b.Size && c.Col >= 0 && c.Col < b.Size
}

func (b *Board) IsTerminal(c Cell) bool {
	return !b.NonTerminal[c.Row][c.Col]
}

// NonTerminalCells returns the actionable cells in row-major order.
func (b *Board) NonTerminalCells() (cells []Cell) {
	Visit(b.Size, func(c Cell) {
		if !b.IsTerminal(c) {
			cells = append(cells, c)
		}
	})
	return
}

// InitialValues returns a copy of the board's starting value grid.
func (b *Board) InitialValues() Grid {
	return b.Values.Clone()
}

// Index flattens a cell to its row-major index.
func (b *Board) Index(c Cell) int {
	return c.Row*b.Size + c.Col
}

// Visits every cell of a size x size grid in row-major order.
func Visit(size int, fn func(c Cell)) {
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			fn(Cell{Row: i, Col: j})
		}
	}
}
