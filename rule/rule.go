// Package rule parses birth/survival rule strings and counts live neighbors
// on the two lattices the simulation engine supports.
package rule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Lattice selects the neighborhood shape and boundary geometry a Config uses.
type Lattice int

const (
	Square Lattice = iota
	Hex
)

func (l Lattice) String() string {
	switch l {
	case Square:
		return "square"
	case Hex:
		return "hex"
	default:
		return "unknown"
	}
}

// Rule is a birth/survival digit-set pair. Birth and Survival are indexed by
// neighbor count (0-8); only indices 0-6 are meaningful for Hex.
type Rule struct {
	Birth     [9]bool
	Survival  [9]bool
	Canonical string
}

// DefaultSquareRule and DefaultHexRule are the configured fallbacks callers
// may use when parse fails.
var (
	DefaultSquareRule = MustParse("B3/S23")
	DefaultHexRule    = MustParse("B2/S34")
)

var rulePattern = regexp.MustCompile(`^B(\d*)/S(\d*)$`)

// InvalidRule is returned by Parse when input does not match the B/S grammar.
type InvalidRule struct {
	Input string
}

func (e *InvalidRule) Error() string {
	return fmt.Sprintf("invalid rule string: %q", e.Input)
}

// Parse accepts "B<digits>/S<digits>", case-insensitive and trimmed, and
// returns a Rule with a canonicalized (uppercase, ascending-digit) string.
// Digits may repeat in input; they collapse into the digit-set.
func Parse(input string) (Rule, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(input))
	m := rulePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Rule{}, &InvalidRule{Input: input}
	}

	var r Rule
	births := digitSet(m[1])
	survivals := digitSet(m[2])
	for _, d := range births {
		r.Birth[d] = true
	}
	for _, d := range survivals {
		r.Survival[d] = true
	}
	r.Canonical = canonicalString(births, survivals)
	return r, nil
}

// MustParse is Parse, panicking on failure. Used only for package-level
// defaults and tests.
func MustParse(input string) Rule {
	r, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the canonical rule string.
func (r Rule) String() string {
	return r.Canonical
}

func digitSet(digits string) []int {
	seen := map[int]bool{}
	for _, c := range digits {
		d := int(c - '0')
		if d < 0 || d > 8 {
			continue
		}
		seen[d] = true
	}
	out := make([]int, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

func canonicalString(births, survivals []int) string {
	var b, s strings.Builder
	for _, d := range births {
		b.WriteString(strconv.Itoa(d))
	}
	for _, d := range survivals {
		s.WriteString(strconv.Itoa(d))
	}
	return "B" + b.String() + "/S" + s.String()
}

// offset is a relative neighbor displacement.
type offset struct{ dx, dy int }

var squareOffsets = [8]offset{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

var hexOffsetsEven = [6]offset{
	{0, -1}, {1, -1}, {-1, 0}, {1, 0}, {0, 1}, {1, 1},
}

var hexOffsetsOdd = [6]offset{
	{-1, -1}, {0, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1},
}

// CountNeighbors sums live cells among the neighbors of (x,y) in cells
// (a width*height, row-major 0/1 buffer), per the given lattice and
// boundary policy. For Hex, the offsets used depend on y's parity.
func CountNeighbors(
	cells []byte,
	width, height, x, y int,
	lattice Lattice,
	toroidal bool,
) int {
	var offs []offset
	switch lattice {
	case Hex:
		// Row parity is 1-indexed in the reference (row 1 is the first,
		// odd, row), so a 0-indexed even y falls on an odd reference row.
		if y&1 == 0 {
			offs = hexOffsetsOdd[:]
		} else {
			offs = hexOffsetsEven[:]
		}
	default:
		offs = squareOffsets[:]
	}

	count := 0
	for _, o := range offs {
		nx, ny := x+o.dx, y+o.dy
		if toroidal {
			nx = ((nx % width) + width) % width
			ny = ((ny % height) + height) % height
		} else if nx < 0 || nx >= width || ny < 0 || ny >= height {
			continue
		}
		count += int(cells[ny*width+nx])
	}
	return count
}
