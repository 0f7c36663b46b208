package raster

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// ReduceOptions bounds the cost of a region reduction.
type ReduceOptions struct {
	// Region restricts the reduction to pixels whose centre lies inside it.
	// The zero region means the whole grid.
	Region geom.ROI

	// Scale is the sampling distance in metres. Pixels are visited on a
	// lattice whose step is Scale divided by the native pixel size (at least
	// one pixel). Zero samples every pixel.
	Scale float64

	// MaxPixels caps the number of lattice positions visited. Zero means no
	// cap.
	MaxPixels int

	// BestEffort allows the lattice to be coarsened until MaxPixels holds.
	// Without it, exceeding MaxPixels fails with ErrTooManyPixels.
	BestEffort bool
}

// PercentileResult is the outcome of a percentile reduction.
type PercentileResult struct {
	// Values maps each requested percentile (0-100) to its value.
	Values map[float64]float64 `json:"values"`

	// Count is the number of valid samples the percentiles were taken from.
	Count int `json:"count"`

	// Stride is the lattice step in pixels that was finally used.
	Stride int `json:"stride"`

	// Truncated is set when best-effort mode coarsened the lattice to stay
	// under MaxPixels.
	Truncated bool `json:"truncated"`
}

// Percentile returns the value for p and whether it was computed.
func (r *PercentileResult) Percentile(p float64) (float64, bool) {
	v, ok := r.Values[p]
	return v, ok
}

// Percentiles computes the requested percentiles of b's valid pixels.
//
// # Algorithm
//
//  1. Choose a sampling stride from opts.Scale and the band's pixel size.
//  2. If the lattice over the region's pixel window still exceeds
//     opts.MaxPixels, double the stride (best-effort) or fail.
//  3. Gather valid samples whose pixel centre lies in the region. When the
//     lattice misses every such pixel, rescan at stride one, stopping after
//     opts.MaxPixels samples.
//  4. Sort and interpolate linearly between closest ranks:
//     rank = p/100 * (n-1).
//
// Percentiles outside [0, 100] are rejected. A region with no valid sample
// returns ErrNoData, which covers rasters without coverage over the region.
func Percentiles(b *Band, percentiles []float64, opts ReduceOptions) (*PercentileResult, error) {
	for _, p := range percentiles {
		if p < 0 || p > 100 || math.IsNaN(p) {
			return nil, fmt.Errorf("percentile %v outside [0, 100]", p)
		}
	}

	grid := b.Grid
	c0, r0, c1, r1 := 0, 0, grid.Width, grid.Height
	if !opts.Region.IsZero() {
		c0, r0, c1, r1 = pixelWindow(grid, opts.Region)
	}

	stride := 1
	if opts.Scale > 0 {
		dx, _ := grid.PixelSize()
		stride = int(math.Max(1, math.Round(opts.Scale/dx)))
	}

	truncated := false
	if opts.MaxPixels > 0 {
		for latticeSize(c1-c0, r1-r0, stride) > opts.MaxPixels {
			if !opts.BestEffort {
				return nil, fmt.Errorf("reduction over %d pixels exceeds limit of %d: %w",
					latticeSize(c1-c0, r1-r0, stride), opts.MaxPixels, ErrTooManyPixels)
			}
			stride *= 2
			truncated = true
		}
	}

	gather := func(stride, limit int) []float64 {
		size := latticeSize(c1-c0, r1-r0, stride)
		if limit > 0 && limit < size {
			size = limit
		}
		samples := make([]float64, 0, size)
		for row := r0; row < r1; row += stride {
			for col := c0; col < c1; col += stride {
				v, ok := b.At(col, row)
				if !ok || math.IsNaN(v) {
					continue
				}
				if !opts.Region.IsZero() && !opts.Region.Contains(grid.Center(col, row)) {
					continue
				}
				samples = append(samples, v)
				if limit > 0 && len(samples) >= limit {
					return samples
				}
			}
		}
		return samples
	}

	samples := gather(stride, 0)
	if len(samples) == 0 && stride > 1 {
		// A thin region can fall entirely between lattice points. Visit
		// every pixel, keeping at most MaxPixels samples.
		samples = gather(1, opts.MaxPixels)
		if opts.MaxPixels > 0 && len(samples) >= opts.MaxPixels {
			truncated = true
		}
		stride = 1
	}
	if len(samples) == 0 {
		return nil, ErrNoData
	}
	sort.Float64s(samples)

	values := make(map[float64]float64, len(percentiles))
	for _, p := range percentiles {
		values[p] = interpolateRank(samples, p)
	}

	return &PercentileResult{
		Values:    values,
		Count:     len(samples),
		Stride:    stride,
		Truncated: truncated,
	}, nil
}

// interpolateRank reads percentile p from sorted samples.
func interpolateRank(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// latticeSize counts positions visited when stepping a w x h window by stride.
func latticeSize(w, h, stride int) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	return ((w + stride - 1) / stride) * ((h + stride - 1) / stride)
}

// pixelWindow returns the half-open pixel window covering the region's bound,
// clamped to the grid.
func pixelWindow(grid Grid, roi geom.ROI) (c0, r0, c1, r1 int) {
	b := roi.Bound()
	xs := [2]float64{(b.Min[0] - grid.OriginX) / grid.PixelWidth, (b.Max[0] - grid.OriginX) / grid.PixelWidth}
	ys := [2]float64{(b.Min[1] - grid.OriginY) / grid.PixelHeight, (b.Max[1] - grid.OriginY) / grid.PixelHeight}

	c0 = clamp(int(math.Floor(math.Min(xs[0], xs[1]))), 0, grid.Width)
	c1 = clamp(int(math.Ceil(math.Max(xs[0], xs[1]))), 0, grid.Width)
	r0 = clamp(int(math.Floor(math.Min(ys[0], ys[1]))), 0, grid.Height)
	r1 = clamp(int(math.Ceil(math.Max(ys[0], ys[1]))), 0, grid.Height)
	return c0, r0, c1, r1
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
