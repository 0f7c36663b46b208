package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// MetersPerDegree is the length of one degree of arc on the WGS84 equator.
const MetersPerDegree = 111319.49079327357

// Area returns the area of a polygonal geometry.
//
// For geographic geometries (lon/lat degrees) the result is the geodesic area
// in square metres; otherwise it is the planar area in squared coordinate
// units. A positive maxError (in metres, or coordinate units for planar input)
// allows the boundary to be simplified with Douglas-Peucker before the area is
// taken, bounding the deviation of every vertex by maxError. A maxError of
// zero computes the exact area of the input.
func Area(g orb.Geometry, geographic bool, maxError float64) float64 {
	if g == nil {
		return 0
	}

	if maxError > 0 {
		threshold := maxError
		if geographic {
			threshold = maxError / MetersPerDegree
		}
		// Simplify works in place.
		g = simplify.DouglasPeucker(threshold).Simplify(orb.Clone(g))
	}

	if geographic {
		return math.Abs(geo.Area(g))
	}
	return math.Abs(planar.Area(g))
}
