package terrain

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// Reference percentiles of elevation inside the region.
const (
	RimPercentile   = 95
	FloorPercentile = 5
)

// Analyzer derives slope and excavation depth from elevation.
type Analyzer struct {
	source Source
	reduce raster.ReduceOptions
	log    zerolog.Logger
}

// NewAnalyzer creates an analyzer. reduce carries the scale, pixel budget and
// best-effort setting used for the rim and floor percentiles; its Region is
// replaced by the region of each call.
func NewAnalyzer(source Source, reduce raster.ReduceOptions, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		source: source,
		reduce: reduce,
		log:    log.With().Str("component", "terrain").Logger(),
	}
}

// Result holds the terrain layers of one region.
type Result struct {
	Elevation *raster.Band
	Slope     *raster.Band
	Depth     *raster.Band

	// Rim and Floor are the 95th and 5th elevation percentiles.
	Rim   float64
	Floor float64

	// Samples is the number of pixels the percentiles were taken from.
	Samples   int
	Truncated bool
}

// Analyze fetches elevation for roi and derives slope and depth.
func (a *Analyzer) Analyze(ctx context.Context, roi geom.ROI) (*Result, error) {
	elev, err := a.source.Elevation(ctx, roi)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch elevation: %w", err)
	}

	opts := a.reduce
	opts.Region = roi
	stats, err := raster.Percentiles(elev, []float64{FloorPercentile, RimPercentile}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce elevation: %w", err)
	}
	rim, _ := stats.Percentile(RimPercentile)
	floor, _ := stats.Percentile(FloorPercentile)

	a.log.Debug().
		Float64("rim", rim).
		Float64("floor", floor).
		Int("samples", stats.Count).
		Bool("truncated", stats.Truncated).
		Msg("elevation reference")

	return &Result{
		Elevation: elev,
		Slope:     Slope(elev),
		Depth:     Depth(elev, rim),
		Rim:       rim,
		Floor:     floor,
		Samples:   stats.Count,
		Truncated: stats.Truncated,
	}, nil
}

// Slope returns the terrain slope in degrees.
//
// # Algorithm
//
// Horn's method over the 3x3 neighbourhood
//
//	a b c
//	d e f
//	g h i
//
// with dz/dx = ((c + 2f + i) - (a + 2d + g)) / 8dx and
// dz/dy = ((g + 2h + i) - (a + 2b + c)) / 8dy, where dx and dy are the pixel
// size in metres. Slope = atan(sqrt(dz/dx² + dz/dy²)).
//
// Neighbours beyond the raster edge replicate the nearest edge pixel;
// invalid neighbours take the centre value. Invalid centres stay invalid.
func Slope(elev *raster.Band) *raster.Band {
	grid := elev.Grid
	dx, dy := grid.PixelSize()
	out := raster.NewBand("slope", grid)
	out.Valid = make([]bool, grid.Len())

	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			e, ok := elev.At(col, row)
			if !ok {
				continue
			}
			z := func(ox, oy int) float64 {
				c := clamp(col+ox, 0, grid.Width-1)
				r := clamp(row+oy, 0, grid.Height-1)
				if v, ok := elev.At(c, r); ok {
					return v
				}
				return e
			}

			dzdx := ((z(1, -1) + 2*z(1, 0) + z(1, 1)) - (z(-1, -1) + 2*z(-1, 0) + z(-1, 1))) / (8 * dx)
			dzdy := ((z(-1, 1) + 2*z(0, 1) + z(1, 1)) - (z(-1, -1) + 2*z(0, -1) + z(1, -1))) / (8 * dy)

			i := grid.Index(col, row)
			out.Data[i] = math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
			out.Valid[i] = true
		}
	}
	return out
}

// Depth returns rim minus elevation. Pixels above the rim are negative.
func Depth(elev *raster.Band, rim float64) *raster.Band {
	out := elev.Clone("depth")
	for i, v := range out.Data {
		out.Data[i] = rim - v
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
