package grid_world

import (
	"fmt"
	"math/rand"
)

// RewardClass places Count*n terminal cells holding Reward on a generated board.
type RewardClass struct {
	Reward float64
	Count  int
}

// DefaultRewardClasses is a spread of large and small, positive and negative terminals.
var DefaultRewardClasses = []RewardClass{
	{Reward: 10000, Count: 1},
	{Reward: 1000, Count: 4},
	{Reward: 0, Count: 20},
	{Reward: -100, Count: 10},
	{Reward: -1000, Count: 4},
	{Reward: -10000, Count: 2},
}

// GenerateConfig describes a random board.
type GenerateConfig struct {
	Size    int
	N       int // scale of the reward class counts
	Gamma   float64
	Noise   Noise
	Classes []RewardClass
}

// Generate builds a random board. Each reward class draws Count*N cells uniformly with
// replacement; later classes overwrite earlier ones, and every cell never drawn is non-terminal.
func Generate(cfg GenerateConfig, rng *rand.Rand) (*Board, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("board size must be positive, got %d", cfg.Size)
	}
	classes := cfg.Classes
	if classes == nil {
		classes = DefaultRewardClasses
	}

	values := NewGrid(cfg.Size)
	nonTerminal := make([][]bool, cfg.Size)
	for i := range nonTerminal {
		nonTerminal[i] = make([]bool, cfg.Size)
		for j := range nonTerminal[i] {
			nonTerminal[i][j] = true
		}
	}

	numCells := cfg.Size * cfg.Size
	for _, class := range classes {
		for k := 0; k < class.Count*cfg.N; k++ {
			idx := rng.Intn(numCells)
			i, j := idx/cfg.Size, idx%cfg.Size
			values[i][j] = class.Reward
			nonTerminal[i][j] = false
		}
	}

	return NewBoard(cfg.Size, cfg.Gamma, cfg.Noise, values, nonTerminal)
}
