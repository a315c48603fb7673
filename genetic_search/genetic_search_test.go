package genetic_search

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tfpickard/tom.monster/rule"
)

func toyConfig() (Config, RunOptions) {
	cfg := Config{
		PopulationSize: 8,
		MutationRate:   0.2,
		EliteCount:     2,
		MaxGenerations: 50,
		GridSize:       20,
		Lattice:        rule.Square,
		Rule:           "B3/S23",
		Toroidal:       false,
		BorderPenalty:  10,
	}
	opts := RunOptions{Iterations: 4, SeedWindow: 5, Workers: 2}
	return cfg, opts
}

func TestRandomGenome(t *testing.T) {
	Convey("RandomGenome of a seedWindow of 5 produces at least 8 distinct coordinates", t, func() {
		g := RandomGenome(5)
		So(len(g.Cells), ShouldBeGreaterThanOrEqualTo, 8)
		seen := map[Coord]bool{}
		for _, c := range g.Cells {
			So(c.X, ShouldBeBetween, -1, 5)
			So(c.Y, ShouldBeBetween, -1, 5)
			seen[c] = true
		}
		So(len(seen), ShouldEqual, len(g.Cells))
	})
}

func TestCrossover(t *testing.T) {
	Convey("Given two parents of different lengths", t, func() {
		a := Genome{Cells: []Coord{{0, 0}, {1, 1}, {2, 2}}}
		b := Genome{Cells: []Coord{{9, 9}}}

		Convey("The child has length max(|a|,|b|) and alternates by parity", func() {
			child := Crossover(a, b)
			So(len(child.Cells), ShouldEqual, 3)
			So(child.Cells[0], ShouldResemble, a.Cells[0])
			So(child.Cells[1], ShouldResemble, b.Cells[1%len(b.Cells)])
			So(child.Cells[2], ShouldResemble, a.Cells[2%len(a.Cells)])
		})
	})
}

func TestFitnessEmbedding(t *testing.T) {
	Convey("Given a genome with an out-of-range coordinate", t, func() {
		cfg, _ := toyConfig()
		r, _ := rule.Parse(cfg.Rule)
		genome := Genome{Cells: []Coord{{0, 0}, {100, 100}}}

		Convey("Fitness evaluation does not fail, dropping the out-of-range cell", func() {
			score, err := Fitness(cfg, r, genome, 5)
			So(err, ShouldBeNil)
			So(score, ShouldBeGreaterThanOrEqualTo, 0.0)
		})
	})
}

func TestRunToyGA(t *testing.T) {
	Convey("Given a toy GA configuration", t, func() {
		cfg, opts := toyConfig()
		ctx := context.Background()

		var progressions []ProgressEvent
		onProgress := func(e ProgressEvent) {
			progressions = append(progressions, e)
		}

		Convey("bestFitness is monotone non-decreasing across progress events", func() {
			result, err := Run(ctx, cfg, opts, onProgress, nil)
			So(err, ShouldBeNil)
			So(result, ShouldNotBeNil)
			So(len(progressions), ShouldEqual, opts.Iterations)

			for i := 1; i < len(progressions); i++ {
				So(progressions[i].BestFitness, ShouldBeGreaterThanOrEqualTo, progressions[i-1].BestFitness)
			}
			So(result.BestFitness, ShouldBeGreaterThanOrEqualTo, progressions[0].BestFitness)
		})

		Convey("A cancelled run emits no result", func() {
			calls := 0
			cancel := func() bool {
				calls++
				return calls >= 1
			}
			result, err := Run(ctx, cfg, opts, onProgress, cancel)
			So(err, ShouldBeNil)
			So(result, ShouldBeNil)
			So(len(progressions), ShouldBeGreaterThan, 0)
		})
	})
}
