package planning

import (
	. "gridmdp/grid_world"
)

// Outcome is one stochastic result of attempting a move.
type Outcome struct {
	Prob float64
	Dest Cell
	// Bounced is set when the move would leave the board; Dest is then the origin cell.
	Bounced bool
}

// Transitions returns the four outcomes of attempting direction d from cell c. Outcome k is the
// direction d rotated k quarter turns clockwise and carries probability Noise[k], so the noise is
// always interpreted relative to the intended direction.
// A move off the board bounces: the agent stays on c. No probability mass is moved elsewhere.
func Transitions(board *Board, c Cell, d Direction) (outcomes [NUM_DIRECTIONS]Outcome) {
	for k := 0; k < NUM_DIRECTIONS; k++ {
		dRow, dCol := d.Rotate(k).Offset()
		dest := Cell{Row: c.Row + dRow, Col: c.Col + dCol}
		bounced := !board.InBounds(dest)
		if bounced {
			dest = c
		}
		outcomes[k] = Outcome{
			Prob:    board.Noise[k],
			Dest:    dest,
			Bounced: bounced,
		}
	}
	return
}

// QValue is the expected discounted value of attempting d from c: Σ noise[k]·gamma·values(dest_k).
// values must be the pre-sweep grid; a bounce reads c's own value from it.
func QValue(board *Board, c Cell, d Direction, values Grid) (q float64) {
	for _, outcome := range Transitions(board, c, d) {
		q += outcome.Prob * board.Gamma * values.At(outcome.Dest)
	}
	return
}

// greedy returns the best direction from c and the max q-value over all four directions.
// Directions are scanned in clockwise order from Up, and a later direction only displaces the
// current best if it is larger by more than eps, so near-ties resolve to the lowest index.
func greedy(board *Board, c Cell, values Grid, eps float64) (best Direction, maxQ float64) {
	best = NoDirection
	var bestQ float64
	for _, d := range Directions {
		q := QValue(board, c, d, values)
		if best == NoDirection {
			best, bestQ, maxQ = d, q, q
			continue
		}
		if q > bestQ+eps {
			best, bestQ = d, q
		}
		if q > maxQ {
			maxQ = q
		}
	}
	return
}

// GreedyPolicy derives the policy that is greedy with respect to values.
// Terminal cells get NoDirection.
func GreedyPolicy(board *Board, values Grid, eps float64) Policy {
	policy := NewPolicy(board.Size)
	for _, c := range board.NonTerminalCells() {
		policy[c.Row][c.Col], _ = greedy(board, c, values, eps)
	}
	return policy
}
