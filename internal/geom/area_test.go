package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestArea_Planar(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {90, 0}, {90, 90}, {0, 90}, {0, 0}}}
	if got := Area(square, false, 0); got != 8100 {
		t.Errorf("Area: got %v, want 8100", got)
	}

	holed := orb.Polygon{
		{{0, 0}, {90, 0}, {90, 90}, {0, 90}, {0, 0}},
		{{30, 30}, {30, 60}, {60, 60}, {60, 30}, {30, 30}},
	}
	if got := Area(holed, false, 1); got != 8100-900 {
		t.Errorf("Area with hole: got %v, want %v", got, 8100-900)
	}
}

func TestArea_Additive(t *testing.T) {
	// An L-shaped staircase split into two disjoint pieces.
	whole := orb.Polygon{{{0, 0}, {120, 0}, {120, 30}, {60, 30}, {60, 90}, {0, 90}, {0, 0}}}
	left := orb.Polygon{{{0, 0}, {60, 0}, {60, 90}, {0, 90}, {0, 0}}}
	right := orb.Polygon{{{60, 0}, {120, 0}, {120, 30}, {60, 30}, {60, 0}}}

	const maxError = 1.0
	a := Area(whole, false, maxError)
	b := Area(left, false, maxError) + Area(right, false, maxError)

	// Each vertex may move by maxError, so the tolerance scales with perimeter.
	tolerance := maxError * 2 * (120 + 90)
	if math.Abs(a-b) > tolerance {
		t.Errorf("area not additive: whole=%v parts=%v", a, b)
	}
	if a != 120*30+60*60 {
		t.Errorf("whole area: got %v, want %v", a, 120*30+60*60)
	}
}

func TestArea_Geographic(t *testing.T) {
	// Roughly 0.01 x 0.01 degree cell at the equator.
	cell := orb.Polygon{{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01}, {0, 0}}}
	got := Area(cell, true, 1)
	want := math.Pow(0.01*MetersPerDegree, 2)

	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("geodesic area: got %v, want about %v", got, want)
	}
}

func TestArea_Nil(t *testing.T) {
	if got := Area(nil, false, 0); got != 0 {
		t.Errorf("Area(nil): got %v, want 0", got)
	}
}
