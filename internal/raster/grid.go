package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// Grid describes the georeferencing shared by every band of a raster.
//
// Pixel (col, row) covers the square whose upper-left corner is
// (OriginX + col*PixelWidth, OriginY + row*PixelHeight). For north-up rasters
// PixelHeight is negative. Corner coordinates (x, y) used by Corner are in
// pixel space, so pixel (col, row) spans x in [col, col+1] and y in
// [row, row+1].
type Grid struct {
	OriginX     float64 `json:"origin_x"`
	OriginY     float64 `json:"origin_y"`
	PixelWidth  float64 `json:"pixel_width"`
	PixelHeight float64 `json:"pixel_height"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`

	// Geographic is true when coordinates are lon/lat degrees. Pixel sizes
	// are then converted to metres at the grid's central latitude.
	Geographic bool `json:"geographic"`
}

// Validate checks the grid has positive dimensions and a non-zero pixel size.
func (g Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidGrid, g.Width, g.Height)
	}
	if g.PixelWidth == 0 || g.PixelHeight == 0 {
		return fmt.Errorf("%w: zero pixel size", ErrInvalidGrid)
	}
	return nil
}

// Len returns the number of pixels in the grid.
func (g Grid) Len() int {
	return g.Width * g.Height
}

// Index converts a pixel coordinate into a row-major offset.
func (g Grid) Index(col, row int) int {
	return row*g.Width + col
}

// InBounds reports whether (col, row) addresses a pixel of the grid.
func (g Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.Width && row >= 0 && row < g.Height
}

// Corner maps a pixel-space position to world coordinates.
func (g Grid) Corner(x, y float64) orb.Point {
	return orb.Point{g.OriginX + x*g.PixelWidth, g.OriginY + y*g.PixelHeight}
}

// Center returns the world coordinate of a pixel's centre.
func (g Grid) Center(col, row int) orb.Point {
	return g.Corner(float64(col)+0.5, float64(row)+0.5)
}

// PixelOf returns the pixel containing p.
func (g Grid) PixelOf(p orb.Point) (col, row int, ok bool) {
	col = int(math.Floor((p[0] - g.OriginX) / g.PixelWidth))
	row = int(math.Floor((p[1] - g.OriginY) / g.PixelHeight))
	return col, row, g.InBounds(col, row)
}

// Bound returns the world extent of the grid.
func (g Grid) Bound() orb.Bound {
	a := g.Corner(0, 0)
	b := g.Corner(float64(g.Width), float64(g.Height))
	return orb.Bound{
		Min: orb.Point{math.Min(a[0], b[0]), math.Min(a[1], b[1])},
		Max: orb.Point{math.Max(a[0], b[0]), math.Max(a[1], b[1])},
	}
}

// PixelSize returns the pixel width and height in metres.
//
// Projected grids are assumed to use metres already.
func (g Grid) PixelSize() (dx, dy float64) {
	dx = math.Abs(g.PixelWidth)
	dy = math.Abs(g.PixelHeight)
	if !g.Geographic {
		return dx, dy
	}
	lat := g.Bound().Center()[1]
	dx *= geom.MetersPerDegree * math.Cos(lat*math.Pi/180)
	dy *= geom.MetersPerDegree
	return dx, dy
}

// PixelArea returns the area of one pixel in square metres.
func (g Grid) PixelArea() float64 {
	dx, dy := g.PixelSize()
	return dx * dy
}

// Equal reports whether two grids describe the same pixels.
func (g Grid) Equal(o Grid) bool {
	const eps = 1e-9
	return g.Width == o.Width && g.Height == o.Height &&
		g.Geographic == o.Geographic &&
		math.Abs(g.OriginX-o.OriginX) < eps && math.Abs(g.OriginY-o.OriginY) < eps &&
		math.Abs(g.PixelWidth-o.PixelWidth) < eps && math.Abs(g.PixelHeight-o.PixelHeight) < eps
}

// WithScale returns a grid over the same origin whose pixels measure scale
// metres. The new grid covers at least the original extent. A non-positive
// scale returns g unchanged.
func (g Grid) WithScale(scale float64) Grid {
	if scale <= 0 {
		return g
	}
	dx, dy := g.PixelSize()
	fx := scale / dx
	fy := scale / dy
	if math.Abs(fx-1) < 1e-9 && math.Abs(fy-1) < 1e-9 {
		return g
	}

	return Grid{
		OriginX:     g.OriginX,
		OriginY:     g.OriginY,
		PixelWidth:  g.PixelWidth * fx,
		PixelHeight: g.PixelHeight * fy,
		Width:       int(math.Ceil(float64(g.Width)/fx - 1e-9)),
		Height:      int(math.Ceil(float64(g.Height)/fy - 1e-9)),
		Geographic:  g.Geographic,
	}
}

// Crop returns the sub-grid covering the pixel window of region's bounding
// box, grown by margin pixels on every side and clamped to g. The zero
// region returns g. A region that misses g yields a grid with no pixels.
func (g Grid) Crop(region geom.ROI, margin int) Grid {
	if region.IsZero() {
		return g
	}
	c0, r0, c1, r1 := pixelWindow(g, region)
	if c0 >= c1 || r0 >= r1 {
		return Grid{
			OriginX: g.OriginX, OriginY: g.OriginY,
			PixelWidth: g.PixelWidth, PixelHeight: g.PixelHeight,
			Geographic: g.Geographic,
		}
	}
	c0 = clamp(c0-margin, 0, g.Width)
	r0 = clamp(r0-margin, 0, g.Height)
	c1 = clamp(c1+margin, 0, g.Width)
	r1 = clamp(r1+margin, 0, g.Height)
	if c0 == 0 && r0 == 0 && c1 == g.Width && r1 == g.Height {
		return g
	}

	origin := g.Corner(float64(c0), float64(r0))
	return Grid{
		OriginX:     origin[0],
		OriginY:     origin[1],
		PixelWidth:  g.PixelWidth,
		PixelHeight: g.PixelHeight,
		Width:       c1 - c0,
		Height:      r1 - r0,
		Geographic:  g.Geographic,
	}
}
