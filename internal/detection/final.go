package detection

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// FinalRaster burns the features onto grid using their area as the pixel
// value, first feature wins, and keeps pixels whose value is positive.
func FinalRaster(fc FeatureCollection, grid raster.Grid) (*raster.Mask, error) {
	geoms := make([]orb.Geometry, len(fc.Features))
	values := make([]float64, len(fc.Features))
	for i, f := range fc.Features {
		geoms[i] = f.Geometry
		values[i], _ = f.Area()
	}

	burned, err := raster.Burn(PropArea, grid, geoms, values)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize features: %w", err)
	}
	return raster.Where(func(v []float64) bool { return v[0] > 0 }, burned)
}

// VerifyAgreement checks that mask is set exactly where a pixel centre lies
// inside some feature.
func VerifyAgreement(fc FeatureCollection, mask *raster.Mask) error {
	grid := mask.Grid
	bounds := make([]orb.Bound, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry != nil {
			bounds[i] = f.Geometry.Bound()
		}
	}
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			c := grid.Center(col, row)
			inside := false
			for i, f := range fc.Features {
				if !bounds[i].Contains(c) {
					continue
				}
				if containsPoint(f.Geometry, c) {
					inside = true
					break
				}
			}
			if inside != mask.Get(col, row) {
				return fmt.Errorf("pixel (%d,%d): raster %v, vector %v", col, row, mask.Get(col, row), inside)
			}
		}
	}
	return nil
}

// agreementWarning reports a final-stage warning when mask disagrees with fc.
func agreementWarning(fc FeatureCollection, mask *raster.Mask) *Warning {
	if err := VerifyAgreement(fc, mask); err != nil {
		return &Warning{
			Stage:   StageFinal,
			Message: fmt.Sprintf("final raster disagrees with features: %v", err),
		}
	}
	return nil
}

func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p)
	default:
		return false
	}
}
