package planning

import (
	. "gridmdp/grid_world"
)

// PolicyImprover makes policy greedy with respect to values, in place.
// It reports whether any cell's direction changed; false means the policy is stable.
type PolicyImprover interface {
	Improve(board *Board, policy Policy, values *ValueBuffers) (changed bool)
}

// GreedyImprover only updates the policy.
type GreedyImprover struct {
	TieEpsilon float64
}

func (im *GreedyImprover) Improve(board *Board, policy Policy, values *ValueBuffers) (changed bool) {
	cur := values.Current()
	for _, c := range board.NonTerminalCells() {
		best, _ := greedy(board, c, cur, im.TieEpsilon)
		if best != policy.At(c) {
			policy[c.Row][c.Col] = best
			changed = true
		}
	}
	return
}

// GreedyValueImprover updates the policy and also commits each cell's max q-value, as one
// synchronous sweep, so the next round's evaluation starts from improved values.
type GreedyValueImprover struct {
	TieEpsilon float64
}

func (im *GreedyValueImprover) Improve(board *Board, policy Policy, values *ValueBuffers) (changed bool) {
	cur, next := values.Current(), values.Next()
	for _, c := range board.NonTerminalCells() {
		best, maxQ := greedy(board, c, cur, im.TieEpsilon)
		if best != policy.At(c) {
			policy[c.Row][c.Col] = best
			changed = true
		}
		next[c.Row][c.Col] = maxQ
	}
	values.Swap()
	return
}
