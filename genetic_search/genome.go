package genetic_search

import (
	"math/rand"

	"github.com/rs/xid"
)

// Coord is an (x,y) cell coordinate inside a genome's seed window.
type Coord struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Genome is a candidate seed pattern: an ordered, possibly-duplicated list
// of coordinates inside a seedWindow x seedWindow square. Its ID is opaque
// and exists solely so collaborators can deduplicate log lines -- it plays
// no role in fitness, equality, or selection.
type Genome struct {
	ID    string  `json:"id"`
	Cells []Coord `json:"cells"`
}

func newGenomeID() string {
	return xid.New().String()
}

// RandomGenome produces a genome of max(8, floor(seedWindow^2*0.1)) distinct
// coordinates, uniformly sampled without replacement from [0,seedWindow)^2.
// When the window holds fewer than 8 cells, every cell of it is chosen.
func RandomGenome(seedWindow int) Genome {
	target := seedWindow * seedWindow / 10
	if target < 8 {
		target = 8
	}
	if target > seedWindow*seedWindow {
		target = seedWindow * seedWindow
	}

	chosen := make(map[Coord]bool, target)
	cells := make([]Coord, 0, target)
	for len(cells) < target {
		c := Coord{X: rand.Intn(seedWindow), Y: rand.Intn(seedWindow)}
		if chosen[c] {
			continue
		}
		chosen[c] = true
		cells = append(cells, c)
	}

	return Genome{ID: newGenomeID(), Cells: cells}
}

func clampAxis(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

func signPM1() int {
	if rand.Intn(2) == 0 {
		return -1
	}
	return 1
}

// Mutate applies point, insertion, and deletion operators independently,
// each with probability mutationRate, returning a new genome (the parent is
// left untouched).
func Mutate(parent Genome, mutationRate float64, seedWindow int) Genome {
	cells := make([]Coord, len(parent.Cells))
	copy(cells, parent.Cells)

	// Point mutation: for each existing cell, possibly replace it with a
	// coordinate shifted by +-1 on both axes.
	for i := range cells {
		if rand.Float64() < mutationRate {
			cells[i] = Coord{
				X: clampAxis(cells[i].X+signPM1(), seedWindow),
				Y: clampAxis(cells[i].Y+signPM1(), seedWindow),
			}
		}
	}

	// Insertion: append a fresh uniform coordinate.
	if rand.Float64() < mutationRate {
		cells = append(cells, Coord{X: rand.Intn(seedWindow), Y: rand.Intn(seedWindow)})
	}

	// Deletion: drop a uniformly chosen cell, if more than one remains.
	if rand.Float64() < mutationRate && len(cells) > 1 {
		i := rand.Intn(len(cells))
		cells = append(cells[:i], cells[i+1:]...)
	}

	return Genome{ID: newGenomeID(), Cells: cells}
}

// Crossover produces a child of length max(|a|,|b|), alternating parent a's
// and parent b's cells by even/odd index, wrapping each parent's list via
// modulo. Deterministic given parent ordering.
func Crossover(a, b Genome) Genome {
	n := len(a.Cells)
	if len(b.Cells) > n {
		n = len(b.Cells)
	}

	cells := make([]Coord, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			cells[i] = a.Cells[i%len(a.Cells)]
		} else {
			cells[i] = b.Cells[i%len(b.Cells)]
		}
	}

	return Genome{ID: newGenomeID(), Cells: cells}
}
