package rule

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given a rule string", t, func() {
		Convey("When it is well formed but mixed case with whitespace", func() {
			r, err := Parse("b36/S23 ")
			So(err, ShouldBeNil)

			Convey("Then the canonical string has ascending sorted digits", func() {
				So(r.String(), ShouldEqual, "B36/S23")
				So(r.Birth[3], ShouldBeTrue)
				So(r.Birth[6], ShouldBeTrue)
				So(r.Survival[2], ShouldBeTrue)
				So(r.Survival[3], ShouldBeTrue)
			})
		})

		Convey("When digits repeat", func() {
			r, err := Parse("B333/S22")
			So(err, ShouldBeNil)
			So(r.String(), ShouldEqual, "B3/S2")
		})

		Convey("When both sets are empty", func() {
			r, err := Parse("B/S")
			So(err, ShouldBeNil)
			So(r.String(), ShouldEqual, "B/S")
		})

		Convey("When malformed", func() {
			_, err := Parse("not a rule")
			So(err, ShouldNotBeNil)
			var invalid *InvalidRule
			So(err, ShouldHaveSameTypeAs, invalid)
		})

		Convey("Parsing then stringifying is idempotent", func() {
			r, err := Parse("B3/S23")
			So(err, ShouldBeNil)
			r2, err := Parse(r.String())
			So(err, ShouldBeNil)
			So(r2.String(), ShouldEqual, r.String())
		})
	})
}

func TestCountNeighbors(t *testing.T) {
	Convey("Given a 5x5 square grid with a blinker", t, func() {
		w, h := 5, 5
		cells := make([]byte, w*h)
		cells[2*w+1] = 1
		cells[2*w+2] = 1
		cells[2*w+3] = 1

		Convey("The center cell sees two live neighbors", func() {
			n := CountNeighbors(cells, w, h, 2, 2, Square, false)
			So(n, ShouldEqual, 2)
		})
	})

	Convey("Given a 4x4 hex grid with two live cells", t, func() {
		w, h := 4, 4
		cells := make([]byte, w*h)
		cells[1*w+1] = 1
		cells[2*w+2] = 1

		Convey("countNeighbors at (2,2) equals 1", func() {
			n := CountNeighbors(cells, w, h, 2, 2, Hex, false)
			So(n, ShouldEqual, 1)
		})
	})

	Convey("Given a toroidal grid", t, func() {
		w, h := 3, 3
		cells := make([]byte, w*h)
		cells[0] = 1 // (0,0)

		Convey("A neighbor check at the opposite edge wraps around", func() {
			n := CountNeighbors(cells, w, h, w-1, h-1, Square, true)
			So(n, ShouldEqual, 1)
		})

		Convey("The same check without wrapping omits the edge neighbor", func() {
			n := CountNeighbors(cells, w, h, w-1, h-1, Square, false)
			So(n, ShouldEqual, 0)
		})
	})

	Convey("countNeighbors is symmetric under the reverse offset", t, func() {
		w, h := 6, 6
		cells := make([]byte, w*h)
		cells[3*w+3] = 1

		// The neighbor count at (2,2) includes (3,3); the reverse offset from
		// (3,3) back to (2,2) is a neighbor of (3,3) under the same policy.
		n := CountNeighbors(cells, w, h, 2, 2, Square, false)
		So(n, ShouldEqual, 1)
	})
}
