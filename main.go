/*
tom.monster simulates 2D cellular automata (Conway-style square lattices and
hex lattices alike) and searches for long-lived "methuselah" seed patterns
via a genetic algorithm. Two modes share the same engine: "serve" exposes the
simulation and genetic_search engines over websocket for an interactive
frontend, and "search" runs one genetic_search.Run to completion from the CLI
and prints the winning genome. Tuning the GA by hand is tedious and the
fitness landscape is rugged, so most of the interesting behavior is left to
mutation and selection rather than hand-authored heuristics.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tfpickard/tom.monster/genetic_search"
	"github.com/tfpickard/tom.monster/server"
)

var (
	dbg      *bool
	nworkers *int
	host     *string
	port     *string
	mode     *string
	cfgPath  *string
)

// TODO: per 12-factor rules, these should be taken from env or config-map; KISS for now. Also init is bad.
func init() {
	dbg = flag.Bool("debug", false, "debug mode")
	nworkers = flag.Int("workers", runtime.NumCPU(), "number of genetic_search fitness-evaluation workers")
	host = flag.String("host", "", "the host ip to serve on")
	port = flag.String("port", "8080", "the host port to serve on")
	mode = flag.String("mode", "serve", "run mode: \"serve\" (websocket server) or \"search\" (one-shot GA run)")
	cfgPath = flag.String("config", "./config.yaml", "path to a genetic_search YAML config (search mode only)")
	flag.Parse()
}

func runApp() error {
	switch *mode {
	case "search":
		return runSearch()
	default:
		return runServe()
	}
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := server.NewServer(*host, *port)
	return srv.Serve(ctx)
}

func runSearch() error {
	cfg, opts, _, err := genetic_search.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	opts.Workers = *nworkers

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Generation", "Population", "Best Fitness", "Best Genome Cells"})

	onProgress := func(e genetic_search.ProgressEvent) {
		t.AppendRow(table.Row{e.Generation, e.Population, e.BestFitness, len(e.BestGenome.Cells)})
		if *dbg {
			t.Render()
		}
	}
	shouldCancel := func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	start := time.Now()
	result, err := genetic_search.Run(ctx, cfg, opts, onProgress, shouldCancel)
	if err != nil {
		return err
	}

	t.Render()
	if result == nil {
		fmt.Println("search cancelled")
		return nil
	}

	fmt.Printf("\nbest genome (%d cells, fitness %.1f) found in %s:\n",
		len(result.BestGenome.Cells), result.BestFitness, time.Since(start))
	for _, c := range result.BestGenome.Cells {
		fmt.Printf("  (%d, %d)\n", c.X, c.Y)
	}
	return nil
}

// TODO: use mixedCaps throughout
func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
