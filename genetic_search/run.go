// Package genetic_search evolves CA seed patterns by scoring genomes via
// simulation runs and selecting, recombining, and mutating the population
// generation over generation, in the worker-pool-plus-aggregator shape the
// teacher codebase uses for its own episode-generating training loop.
package genetic_search

import (
	"context"
	"math/rand"
	"runtime"
	"sort"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/tfpickard/tom.monster/atomic_float"
	"github.com/tfpickard/tom.monster/rule"
)

func randIndex(n int) int {
	return rand.Intn(n)
}

// ProgressEvent is emitted at most once per GA generation, carrying the best
// genome observed so far (not necessarily from the current generation).
type ProgressEvent struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"bestFitness"`
	Population  int     `json:"population"`
	BestGenome  Genome  `json:"bestGenome"`
}

// Result is the final outcome of a completed (non-cancelled) Run.
type Result struct {
	BestGenome  Genome  `json:"bestGenome"`
	BestFitness float64 `json:"bestFitness"`
}

// ProgressFunc receives a ProgressEvent once per GA generation.
type ProgressFunc func(ProgressEvent)

// CancelFunc is polled once per GA generation; if it returns true before the
// next generation starts, Run stops and emits no Result.
type CancelFunc func() bool

type scored struct {
	genome  Genome
	fitness float64
}

// Run evolves a population of seed genomes for opts.Iterations generations
// (or until shouldCancel returns true), evaluating fitness by stepping
// independent simulation.States, one per member, concurrently across
// opts.Workers goroutines.
func Run(
	ctx context.Context,
	cfg Config,
	opts RunOptions,
	onProgress ProgressFunc,
	shouldCancel CancelFunc,
) (*Result, error) {
	if err := cfg.validate(opts); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	parsedRule, err := rule.Parse(cfg.Rule)
	if err != nil {
		return nil, err
	}

	population := make([]Genome, cfg.PopulationSize)
	for i := range population {
		population[i] = RandomGenome(opts.SeedWindow)
	}

	bestEver := atomic_float.NewAtomicFloat64(0)
	var bestGenomeEver Genome

	for generation := 0; generation < opts.Iterations; generation++ {
		results := evaluatePopulation(ctx, cfg, parsedRule, population, opts, bestEver, &bestGenomeEver)

		sort.Slice(results, func(i, j int) bool { return results[i].fitness > results[j].fitness })

		if onProgress != nil {
			onProgress(ProgressEvent{
				Generation:  generation,
				BestFitness: bestEver.AtomicRead(),
				Population:  len(population),
				BestGenome:  bestGenomeEver,
			})
		}

		if shouldCancel != nil && shouldCancel() {
			return nil, nil
		}

		population = nextGeneration(results, cfg, opts)
	}

	return &Result{BestGenome: bestGenomeEver, BestFitness: bestEver.AtomicRead()}, nil
}

// evaluatePopulation scores every member across opts.Workers goroutines that
// share one job queue, each member on its own isolated simulation.State (per
// the engine's single-worker concurrency model), fanning results in via
// channerics.Merge -- the same shape as the
// teacher's nworkers episode-generating goroutines feeding one estimator.
func evaluatePopulation(
	ctx context.Context,
	cfg Config,
	parsedRule rule.Rule,
	population []Genome,
	opts RunOptions,
	bestEver *atomic_float.AtomicFloat64,
	bestGenomeEver *Genome,
) []scored {
	type job struct {
		genome Genome
	}

	jobs := make(chan job, len(population))
	for _, g := range population {
		jobs <- job{genome: g}
	}
	close(jobs)

	workerOutputs := make([]<-chan scored, opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		out := make(chan scored)
		workerOutputs[w] = out
		go func() {
			defer close(out)
			for j := range jobs {
				fitness, err := Fitness(cfg, parsedRule, j.genome, opts.SeedWindow)
				if err != nil {
					fitness = 0
				}
				select {
				case out <- scored{genome: j.genome, fitness: fitness}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	results := make([]scored, 0, len(population))
	for s := range channerics.Merge(ctx.Done(), workerOutputs...) {
		if bestEver.RaiseTo(s.fitness) {
			*bestGenomeEver = s.genome
		}
		results = append(results, s)
	}
	return results
}

func nextGeneration(results []scored, cfg Config, opts RunOptions) []Genome {
	elites := make([]Genome, cfg.EliteCount)
	for i := 0; i < cfg.EliteCount; i++ {
		elites[i] = results[i].genome
	}

	next := make([]Genome, 0, cfg.PopulationSize)
	next = append(next, elites...)
	for len(next) < cfg.PopulationSize {
		a := elites[randIndex(len(elites))]
		b := elites[randIndex(len(elites))]
		child := Crossover(a, b)
		child = Mutate(child, cfg.MutationRate, opts.SeedWindow)
		next = append(next, child)
	}
	return next[:cfg.PopulationSize]
}
