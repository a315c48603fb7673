package simulation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tfpickard/tom.monster/rule"
	"github.com/tfpickard/tom.monster/zobrist"
)

func seedFrom(width int, live [][2]int) Initializer {
	return func(current []byte) {
		for _, xy := range live {
			current[xy[1]*width+xy[0]] = 1
		}
	}
}

func liveCells(cells []byte, width int) map[[2]int]bool {
	out := map[[2]int]bool{}
	for i, c := range cells {
		if c != 0 {
			out[[2]int{i % width, i / width}] = true
		}
	}
	return out
}

func TestBlinker(t *testing.T) {
	Convey("Given a 5x5 bounded square blinker", t, func() {
		cfg := Config{
			Lattice:   rule.Square,
			Width:     5,
			Height:    5,
			Rule:      rule.MustParse("B3/S23"),
			Toroidal:  false,
			MaxPeriod: 50,
		}
		s, err := New(cfg, seedFrom(5, [][2]int{{1, 2}, {2, 2}, {3, 2}}))
		So(err, ShouldBeNil)

		Convey("After one step, the blinker rotates to vertical", func() {
			f := s.Step()
			got := liveCells(f.Cells, 5)
			So(got, ShouldResemble, map[[2]int]bool{{2, 1}: true, {2, 2}: true, {2, 3}: true})
			So(f.Terminated, ShouldBeFalse)
		})

		Convey("After two steps, it returns to the seed and is classified Periodic with period 2", func() {
			s.Step()
			f := s.Step()
			got := liveCells(f.Cells, 5)
			So(got, ShouldResemble, map[[2]int]bool{{1, 2}: true, {2, 2}: true, {3, 2}: true})
			So(f.Terminated, ShouldBeTrue)
			So(f.Reason, ShouldEqual, zobrist.Periodic)
			So(f.Period, ShouldEqual, 2)
			So(f.Generation, ShouldEqual, 2)
		})
	})
}

func TestBlock(t *testing.T) {
	Convey("Given a 4x4 bounded square block", t, func() {
		cfg := Config{
			Lattice:   rule.Square,
			Width:     4,
			Height:    4,
			Rule:      rule.MustParse("B3/S23"),
			Toroidal:  false,
			MaxPeriod: 50,
		}
		s, err := New(cfg, seedFrom(4, [][2]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}}))
		So(err, ShouldBeNil)

		Convey("Every step reproduces the same buffer, classified Periodic with period 1", func() {
			f := s.Step()
			So(f.Terminated, ShouldBeTrue)
			So(f.Reason, ShouldEqual, zobrist.Periodic)
			So(f.Period, ShouldEqual, 1)
			So(f.Generation, ShouldEqual, 1)
			got := liveCells(f.Cells, 4)
			So(got, ShouldResemble, map[[2]int]bool{{1, 1}: true, {2, 1}: true, {1, 2}: true, {2, 2}: true})
		})
	})
}

func TestExtinction(t *testing.T) {
	Convey("Given a 3x3 bounded square grid with a single live cell", t, func() {
		cfg := Config{
			Lattice:   rule.Square,
			Width:     3,
			Height:    3,
			Rule:      rule.MustParse("B3/S23"),
			Toroidal:  false,
			MaxPeriod: 50,
		}
		s, err := New(cfg, seedFrom(3, [][2]int{{1, 1}}))
		So(err, ShouldBeNil)

		Convey("Stepping once produces extinction and freezes the engine", func() {
			f := s.Step()
			So(f.Population, ShouldEqual, 0)
			So(f.Terminated, ShouldBeTrue)
			So(f.Reason, ShouldEqual, zobrist.Extinction)

			frozen := s.Generation()
			s.Step()
			So(s.Generation(), ShouldEqual, frozen)
		})
	})
}

func TestDeterminism(t *testing.T) {
	Convey("Given two identically configured engines with the same initial buffer", t, func() {
		cfg := Config{
			Lattice:   rule.Square,
			Width:     10,
			Height:    10,
			Rule:      rule.MustParse("B3/S23"),
			Toroidal:  true,
			MaxPeriod: 50,
		}
		init := seedFrom(10, [][2]int{{4, 4}, {5, 4}, {4, 5}, {5, 5}, {6, 6}})
		a, _ := New(cfg, init)
		b, _ := New(cfg, init)

		Convey("Their frame sequences are bitwise identical", func() {
			for i := 0; i < 20; i++ {
				fa := a.Step()
				fb := b.Step()
				So(fa.Hash, ShouldEqual, fb.Hash)
				So(fa.Cells, ShouldResemble, fb.Cells)
				So(fa.Terminated, ShouldEqual, fb.Terminated)
			}
		})
	})
}

func TestApplySeedIdempotence(t *testing.T) {
	Convey("Given a state and a seed buffer", t, func() {
		cfg := Config{
			Lattice:   rule.Square,
			Width:     5,
			Height:    5,
			Rule:      rule.MustParse("B3/S23"),
			Toroidal:  false,
			MaxPeriod: 50,
		}
		s, _ := New(cfg, nil)
		seed := make([]byte, 25)
		seed[1*5+2] = 1
		seed[2*5+2] = 1
		seed[3*5+2] = 1

		Convey("Applying the same seed twice emits identical frames", func() {
			s.ApplySeed(seed)
			f1 := s.Step()

			s.ApplySeed(seed)
			f2 := s.Step()

			So(f1.Cells, ShouldResemble, f2.Cells)
			So(f1.Hash, ShouldEqual, f2.Hash)
		})
	})
}

func TestToroidalTranslationInvariance(t *testing.T) {
	Convey("Given a toroidal grid", t, func() {
		cfg := Config{
			Lattice:   rule.Square,
			Width:     8,
			Height:    8,
			Rule:      rule.MustParse("B3/S23"),
			Toroidal:  true,
			MaxPeriod: 50,
		}

		Convey("A pattern at the edge steps the same as the same pattern translated", func() {
			edge, _ := New(cfg, seedFrom(8, [][2]int{{7, 0}, {0, 0}, {1, 0}}))
			center, _ := New(cfg, seedFrom(8, [][2]int{{2, 4}, {3, 4}, {4, 4}}))

			fe := edge.Step()
			fc := center.Step()

			translate := func(cells map[[2]int]bool, dx, dy int) map[[2]int]bool {
				out := map[[2]int]bool{}
				for k := range cells {
					out[[2]int{((k[0]+dx)%8 + 8) % 8, ((k[1]+dy)%8 + 8) % 8}] = true
				}
				return out
			}

			edgeLive := liveCells(fe.Cells, 8)
			centerLive := liveCells(fc.Cells, 8)
			So(translate(edgeLive, 3, 4), ShouldResemble, centerLive)
		})
	})
}

func TestPopulationInvariant(t *testing.T) {
	Convey("After any step, population equals the count of ones in the buffer", t, func() {
		cfg := Config{
			Lattice:   rule.Square,
			Width:     6,
			Height:    6,
			Rule:      rule.MustParse("B3/S23"),
			Toroidal:  true,
			MaxPeriod: 50,
		}
		s, _ := New(cfg, nil)
		s.Randomize(0.4)

		for i := 0; i < 5; i++ {
			f := s.Step()
			count := 0
			for _, c := range f.Cells {
				count += int(c)
			}
			So(f.Population, ShouldEqual, count)
			So(f.Population, ShouldBeLessThanOrEqualTo, 36)
		}
	})
}
