package genetic_search

import (
	"github.com/tfpickard/tom.monster/rule"
	"github.com/tfpickard/tom.monster/simulation"
)

// embed clears a fresh cell buffer of side gridSize and sets live the cells
// of genome, offset to center the seedWindow x seedWindow sub-grid. Targets
// that land outside the grid are silently dropped.
func embed(genome Genome, gridSize, seedWindow int) simulation.Initializer {
	offset := (gridSize - seedWindow) / 2
	return func(current []byte) {
		for _, c := range genome.Cells {
			x, y := offset+c.X, offset+c.Y
			if x < 0 || x >= gridSize || y < 0 || y >= gridSize {
				continue
			}
			current[y*gridSize+x] = 1
		}
	}
}

func touchesBorder(cells []byte, gridSize int) bool {
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			if cells[y*gridSize+x] == 0 {
				continue
			}
			if x == 0 || y == 0 || x == gridSize-1 || y == gridSize-1 {
				return true
			}
		}
	}
	return false
}

// Fitness builds a fresh simulation.State for genome (embedded on a
// gridSize^2 grid) under the GA's lattice/rule/toroidal policy, steps it at
// most maxGenerations times, and scores it per spec.md #4.4: the last
// generation reached before termination, penalized for early border escape
// on non-toroidal configs.
func Fitness(cfg Config, parsedRule rule.Rule, genome Genome, seedWindow int) (float64, error) {
	simCfg := cfg.simulationConfig(parsedRule)
	state, err := simulation.New(simCfg, embed(genome, cfg.GridSize, seedWindow))
	if err != nil {
		return 0, err
	}

	borderAt := -1
	best := 0
	for gen := 1; gen <= cfg.MaxGenerations; gen++ {
		frame := state.Step()
		best = frame.Generation

		if !cfg.Toroidal && borderAt < 0 && touchesBorder(frame.Cells, cfg.GridSize) {
			borderAt = frame.Generation
		}

		if frame.Terminated {
			break
		}
	}

	fitness := float64(best)
	if !cfg.Toroidal && borderAt >= 0 {
		penalty := cfg.BorderPenalty - float64(borderAt)/20.0
		if penalty > 0 {
			fitness -= penalty
		}
	}
	if fitness < 0 {
		fitness = 0
	}
	return fitness, nil
}
