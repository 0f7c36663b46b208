package raster

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Burn paints geometries onto grid. Each pixel takes the value of the first
// geometry containing its centre; pixels covered by none stay invalid.
func Burn(name string, grid Grid, geoms []orb.Geometry, values []float64) (*Band, error) {
	if len(geoms) != len(values) {
		return nil, fmt.Errorf("burn %q: %d geometries but %d values", name, len(geoms), len(values))
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	out := NewBand(name, grid)
	out.Valid = make([]bool, grid.Len())
	bounds := make([]orb.Bound, len(geoms))
	for i, g := range geoms {
		bounds[i] = g.Bound()
	}

	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			p := grid.Center(col, row)
			for k, g := range geoms {
				if !bounds[k].Contains(p) || !geometryContains(g, p) {
					continue
				}
				i := grid.Index(col, row)
				out.Data[i] = values[k]
				out.Valid[i] = true
				break
			}
		}
	}
	return out, nil
}

func geometryContains(g orb.Geometry, p orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p)
	case orb.Bound:
		return v.Contains(p)
	default:
		return false
	}
}
