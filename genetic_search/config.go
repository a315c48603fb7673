package genetic_search

import (
	"fmt"

	"github.com/tfpickard/tom.monster/rule"
	"github.com/tfpickard/tom.monster/simulation"
)

// Config fixes the genetic algorithm's population and fitness parameters.
type Config struct {
	PopulationSize int          `yaml:"populationSize"`
	MutationRate   float64      `yaml:"mutationRate"`
	EliteCount     int          `yaml:"eliteCount"`
	MaxGenerations int          `yaml:"maxGenerations"`
	GridSize       int          `yaml:"gridSize"`
	Lattice        rule.Lattice `yaml:"-"`
	Rule           string       `yaml:"rule"`
	Toroidal       bool         `yaml:"toroidal"`
	BorderPenalty  float64      `yaml:"borderPenalty"`
}

// RunOptions are the GA-generation-count and seed-window parameters for one
// invocation of Run, kept separate from Config per spec.md's split between
// "GAConfig" and "run options".
type RunOptions struct {
	Iterations int
	SeedWindow int
	Workers    int
}

// fitnessMaxPeriod is fixed per spec.md's fitness contract, independent of
// whatever maxPeriod a caller might configure for interactive simulation.
const fitnessMaxPeriod = 50

// OutOfRange mirrors simulation.OutOfRange for GA-specific field contracts.
type OutOfRange struct {
	Field string
}

func (e *OutOfRange) Error() string {
	return fmt.Sprintf("value out of range: %s", e.Field)
}

func (c Config) validate(opts RunOptions) error {
	if c.PopulationSize < 2 {
		return &OutOfRange{Field: "populationSize"}
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return &OutOfRange{Field: "mutationRate"}
	}
	if c.EliteCount < 1 || c.EliteCount > c.PopulationSize {
		return &OutOfRange{Field: "eliteCount"}
	}
	if c.MaxGenerations < 1 {
		return &OutOfRange{Field: "maxGenerations"}
	}
	if c.BorderPenalty < 0 {
		return &OutOfRange{Field: "borderPenalty"}
	}
	if c.GridSize < opts.SeedWindow {
		return &OutOfRange{Field: "gridSize"}
	}
	return nil
}

func (c Config) simulationConfig(parsedRule rule.Rule) simulation.Config {
	return simulation.Config{
		Lattice:   c.Lattice,
		Width:     c.GridSize,
		Height:    c.GridSize,
		Rule:      parsedRule,
		Toroidal:  c.Toroidal,
		MaxPeriod: fitnessMaxPeriod,
	}
}
