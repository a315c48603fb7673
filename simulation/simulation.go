// Package simulation owns the cell buffers and advances a cellular automaton
// one generation at a time, classifying termination via zobrist.Tracker.
package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/tfpickard/tom.monster/rule"
	"github.com/tfpickard/tom.monster/zobrist"
)

// CellBuffer is a dense one-byte-per-cell buffer. Its JSON form is a plain
// array of 0/1 integers, per spec.md §6 ("the cell buffer becomes an array
// of 0/1 integers"), not Go's default base64-string encoding of []byte.
type CellBuffer []byte

func (c CellBuffer) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(c))
	for i, b := range c {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

func (c *CellBuffer) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	buf := make(CellBuffer, len(ints))
	for i, v := range ints {
		if v != 0 {
			buf[i] = 1
		}
	}
	*c = buf
	return nil
}

// Config fixes the lattice, dimensions, rule, boundary policy, and cycle
// classification window for a State.
type Config struct {
	Lattice   rule.Lattice `yaml:"lattice"`
	Width     int          `yaml:"width"`
	Height    int          `yaml:"height"`
	Rule      rule.Rule    `yaml:"-"`
	Toroidal  bool         `yaml:"toroidal"`
	MaxPeriod int          `yaml:"maxPeriod"`
}

// CellCount returns width*height.
func (c Config) CellCount() int {
	return c.Width * c.Height
}

// OutOfRange is returned when a Config field violates its contract.
type OutOfRange struct {
	Field string
}

func (e *OutOfRange) Error() string {
	return fmt.Sprintf("value out of range: %s", e.Field)
}

func (c Config) validate() error {
	if c.Width < 1 {
		return &OutOfRange{Field: "width"}
	}
	if c.Height < 1 {
		return &OutOfRange{Field: "height"}
	}
	if c.MaxPeriod < 1 {
		return &OutOfRange{Field: "maxPeriod"}
	}
	return nil
}

// Stats summarizes the outcome of a single Step.
type Stats struct {
	Generation  int            `json:"generation"`
	Population  int            `json:"population"`
	Hash        uint32         `json:"hash"`
	Terminated  bool           `json:"terminated"`
	Reason      zobrist.Reason `json:"reason,omitempty"`
	Period      int            `json:"period,omitempty"`
}

// Frame is Stats plus an owned copy of the post-step cell buffer, safe to
// hand to another goroutine or collaborator without aliasing the engine's
// internal buffers.
type Frame struct {
	Stats
	Cells CellBuffer `json:"cells"`
}

// State owns the two cell buffers, the Zobrist table, and the cycle tracker
// for one simulation run. Buffers are allocated once in New and swapped, not
// reallocated, on every Step.
type State struct {
	config     Config
	current    []byte
	scratch    []byte
	table      []uint32
	tracker    *zobrist.Tracker
	generation int
	terminated bool
	reason     zobrist.Reason
	period     int
	paused     bool
}

// Initializer writes arbitrary bytes into the initial current buffer; any
// non-zero byte is treated as live. It is invoked exactly once by New.
type Initializer func(current []byte)

// New allocates a State for config, invoking initializer (if non-nil) exactly
// once against the zeroed current buffer.
func New(config Config, initializer Initializer) (*State, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	count := config.CellCount()
	s := &State{
		config:  config,
		current: make([]byte, count),
		scratch: make([]byte, count),
		table:   zobrist.NewTable(count),
		tracker: zobrist.NewTracker(config.MaxPeriod),
	}
	if initializer != nil {
		initializer(s.current)
	}
	s.tracker.Add(zobrist.Hash(s.current, s.table), 0)
	return s, nil
}

// Generation returns the current generation count.
func (s *State) Generation() int { return s.generation }

// Terminated reports whether the engine has frozen.
func (s *State) Terminated() bool { return s.terminated }

// Cells returns the live current buffer. Callers must not retain or mutate
// it across calls; use Step's returned Frame for an owned copy.
func (s *State) Cells() []byte { return s.current }

// Toggle flips the live bit at (x,y) on the current buffer. It does not step.
func (s *State) Toggle(x, y int) {
	i := y*s.config.Width + x
	if s.current[i] == 0 {
		s.current[i] = 1
	} else {
		s.current[i] = 0
	}
}

// Randomize independently sets each cell live with probability density,
// clears scratch, and resets generation/tracker/termination.
func (s *State) Randomize(density float64) {
	for i := range s.current {
		if rand.Float64() < density {
			s.current[i] = 1
		} else {
			s.current[i] = 0
		}
	}
	s.resetRunState()
}

// ApplySeed zeroes the current buffer, copies up to min(len(seed), cellCount)
// bytes from seed, and resets generation/tracker/termination.
func (s *State) ApplySeed(seed []byte) {
	for i := range s.current {
		s.current[i] = 0
	}
	n := len(seed)
	if n > len(s.current) {
		n = len(s.current)
	}
	copy(s.current, seed[:n])
	s.resetRunState()
}

func (s *State) resetRunState() {
	for i := range s.scratch {
		s.scratch[i] = 0
	}
	s.generation = 0
	s.terminated = false
	s.reason = zobrist.NotTerminated
	s.period = 0
	s.tracker = zobrist.NewTracker(s.config.MaxPeriod)
	s.tracker.Add(zobrist.Hash(s.current, s.table), 0)
}

// Step advances one generation and returns a Frame whose Cells field is a
// disjoint copy of the new buffer. Once terminated, subsequent Step calls
// return the same frozen Frame without advancing the generation.
func (s *State) Step() Frame {
	if s.terminated {
		return s.frame()
	}

	width, height := s.config.Width, s.config.Height
	population := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			n := rule.CountNeighbors(s.current, width, height, x, y, s.config.Lattice, s.config.Toroidal)
			alive := s.current[i] != 0
			var next byte
			if (alive && s.config.Rule.Survival[n]) || (!alive && s.config.Rule.Birth[n]) {
				next = 1
			}
			s.scratch[i] = next
			population += int(next)
		}
	}

	hash := zobrist.Hash(s.scratch, s.table)
	nextGeneration := s.generation + 1

	switch {
	case population == 0:
		s.terminated = true
		s.reason = zobrist.Extinction
	case s.tracker.Has(hash):
		reason, period := s.tracker.Classify(hash, nextGeneration)
		if reason != zobrist.NotTerminated {
			s.terminated = true
			s.reason = reason
			s.period = period
		}
	}

	s.tracker.Add(hash, nextGeneration)
	s.current, s.scratch = s.scratch, s.current
	s.generation = nextGeneration

	return s.frame()
}

// CurrentFrame returns a Frame describing the present state without
// stepping, for collaborators that need to observe state right after Init,
// Toggle, Randomize, or ApplySeed.
func (s *State) CurrentFrame() Frame {
	return s.frame()
}

func (s *State) frame() Frame {
	cells := make(CellBuffer, len(s.current))
	copy(cells, s.current)

	population := 0
	for _, c := range cells {
		population += int(c)
	}

	stats := Stats{
		Generation: s.generation,
		Population: population,
		Hash:       zobrist.Hash(cells, s.table),
		Terminated: s.terminated,
		Reason:     s.reason,
		Period:     s.period,
	}
	return Frame{Stats: stats, Cells: cells}
}

// Pause halts Run's stepping without discarding state.
func (s *State) Pause() { s.paused = true }

// Resume un-pauses a Run loop previously Paused.
func (s *State) Resume() { s.paused = false }

// Run steps the simulation at the given rate (generations per second,
// clamped to a minimum inter-step delay of 16ms), sending each Frame on
// frames, until ctx is cancelled or the state terminates. While the state is
// paused, ticks pass without stepping and the loop keeps running until
// Resume. Run is meant to be launched on its own goroutine, one per
// interactive run, per the engine's single-worker concurrency model.
func (s *State) Run(ctx context.Context, speed float64, frames chan<- Frame) {
	interval := time.Duration(1000.0/speed) * time.Millisecond
	if interval < 16*time.Millisecond {
		interval = 16 * time.Millisecond
	}

	ticker := channerics.NewTicker(ctx.Done(), interval)
	for range ticker {
		if s.paused {
			continue
		}
		frame := s.Step()
		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		}
		if frame.Terminated {
			return
		}
	}
}
