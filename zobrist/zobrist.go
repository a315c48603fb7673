// Package zobrist generates per-cell hash keys and tracks recently seen grid
// hashes to classify a simulation's termination as extinction, periodic, or
// steady-state.
package zobrist

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Seed is the fixed Zobrist PRNG seed. It is part of the wire contract: the
// same seed must be used everywhere a grid hash is compared or logged, since
// changing it changes every hash ever emitted.
const Seed uint32 = 1337

// mulberry32 is a small, fast, deterministic PRNG. Ported bit-for-bit from
// the reference algorithm (it is the algorithm itself that's the contract
// here, not merely "a" PRNG -- see package zobrist's Seed doc).
type mulberry32 struct {
	state uint32
}

func newMulberry32(seed uint32) *mulberry32 {
	return &mulberry32{state: seed}
}

// next returns the generator's next raw uint32. Unlike the canonical JS
// mulberry32 (which divides by 2^32 to produce a float in [0,1)), Zobrist
// keys want the raw bits, so the final division is skipped.
func (m *mulberry32) next() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// NewTable builds a Zobrist table of length cellCount, seeded deterministically
// so that two tables built for the same cellCount are bitwise identical.
func NewTable(cellCount int) []uint32 {
	table := make([]uint32, cellCount)
	gen := newMulberry32(Seed)
	for i := range table {
		table[i] = gen.next()
	}
	return table
}

// Hash XORs table[i] for every live cell in cells, masked implicitly to
// uint32 by Go's fixed-width arithmetic. Flipping any single cell changes
// the hash by exactly table[i] (XOR is its own inverse).
func Hash(cells []byte, table []uint32) uint32 {
	var h uint32
	for i, c := range cells {
		if c != 0 {
			h ^= table[i]
		}
	}
	return h
}

// Reason classifies why a simulation terminated.
type Reason int

const (
	NotTerminated Reason = iota
	Extinction
	Periodic
	Steady
)

func (r Reason) String() string {
	switch r {
	case Extinction:
		return "extinction"
	case Periodic:
		return "periodic"
	case Steady:
		return "steady"
	default:
		return "running"
	}
}

// MarshalJSON emits Reason as its wire string (spec.md §6: "reason ∈
// {extinction, periodic, steady}"), matching the rest of the control-message
// set's string-typed enums rather than the bare int Reason is stored as.
func (r Reason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses a Reason from its wire string.
func (r *Reason) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "extinction":
		*r = Extinction
	case "periodic":
		*r = Periodic
	case "steady":
		*r = Steady
	case "running", "":
		*r = NotTerminated
	default:
		return fmt.Errorf("zobrist: unknown reason %q", s)
	}
	return nil
}

// Tracker maps a grid hash to the generation at which it was first observed,
// self-bounding its size to roughly 2*maxPeriod entries.
type Tracker struct {
	seen      map[uint32]int
	maxPeriod int
}

// NewTracker returns a tracker bounded at 2*maxPeriod entries.
func NewTracker(maxPeriod int) *Tracker {
	return &Tracker{
		seen:      make(map[uint32]int),
		maxPeriod: maxPeriod,
	}
}

// Add inserts or overwrites the generation at which hash was observed, then
// trims the table (by ascending hash key, a cheap age approximation) down to
// the 2*maxPeriod bound if insertion pushed it over.
func (t *Tracker) Add(hash uint32, generation int) {
	t.seen[hash] = generation

	limit := 2 * t.maxPeriod
	if len(t.seen) <= limit {
		return
	}

	keys := make([]uint32, 0, len(t.seen))
	for k := range t.seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	excess := len(t.seen) - limit
	for _, k := range keys[:excess] {
		delete(t.seen, k)
	}
}

// Has reports whether hash has been observed (and not since evicted).
func (t *Tracker) Has(hash uint32) bool {
	_, ok := t.seen[hash]
	return ok
}

// Period returns currentGeneration - storedGeneration for hash, if present.
func (t *Tracker) Period(hash uint32, currentGeneration int) (int, bool) {
	stored, ok := t.seen[hash]
	if !ok {
		return 0, false
	}
	return currentGeneration - stored, true
}

// Classify determines the termination Reason for a freshly computed hash,
// given the generation at which it would be recorded (generation+1 in the
// engine's step algorithm, since Add happens after Classify). period is only
// meaningful (and only returned) for Periodic.
func (t *Tracker) Classify(hash uint32, nextGeneration int) (reason Reason, period int) {
	p, ok := t.Period(hash, nextGeneration)
	if !ok {
		return NotTerminated, 0
	}
	if p <= t.maxPeriod {
		return Periodic, p
	}
	return Steady, 0
}

// Reset clears all observed hashes, e.g. on randomize/applySeed.
func (t *Tracker) Reset() {
	t.seen = make(map[uint32]int)
}
