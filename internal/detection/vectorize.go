package detection

import (
	"fmt"

	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// Polygons is the outcome of vectorizing a mask.
type Polygons struct {
	Features  FeatureCollection
	Grid      raster.Grid
	Scale     float64
	Truncated bool
}

// Vectorize converts the set pixels of mask into polygon features restricted
// to roi. Each feature carries its area in square metres, computed after
// simplifying the outline within p.MaxError metres.
func Vectorize(mask *raster.Mask, roi geom.ROI, p Params) (*Polygons, error) {
	res, err := raster.Vectorize(mask, raster.VectorizeOptions{
		Region:         roi,
		Scale:          p.Vectorize.Scale,
		EightConnected: p.EightConnected,
		MaxPixels:      p.Vectorize.MaxPixels,
		BestEffort:     p.Vectorize.BestEffort,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to vectorize mask: %w", err)
	}

	fc := FeatureCollection{Features: make([]Feature, 0, len(res.Polygons))}
	for _, poly := range res.Polygons {
		area := geom.Area(poly.Geometry, res.Grid.Geographic, p.MaxError)
		fc.Features = append(fc.Features, Feature{
			Geometry: poly.Geometry,
			Properties: map[string]any{
				PropLabel:  poly.Label,
				PropPixels: poly.PixelCount,
				PropArea:   area,
			},
		})
	}
	return &Polygons{Features: fc, Grid: res.Grid, Scale: res.Scale, Truncated: res.Truncated}, nil
}

// FilterMinArea keeps features whose area is at least minArea. Features
// without an area are dropped. Applying it twice changes nothing.
func FilterMinArea(fc FeatureCollection, minArea float64) FeatureCollection {
	return fc.Filter(func(f Feature) bool {
		a, ok := f.Area()
		return ok && a >= minArea
	})
}
