package raster

import (
	"testing"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// testGrid returns a north-up projected grid of 30 m pixels.
func testGrid(width, height int) Grid {
	return Grid{
		OriginX:     500000,
		OriginY:     4000000,
		PixelWidth:  30,
		PixelHeight: -30,
		Width:       width,
		Height:      height,
	}
}

// blockMask sets the rectangle [c0, c1) x [r0, r1).
func blockMask(t *testing.T, grid Grid, c0, r0, c1, r1 int) *Mask {
	t.Helper()
	m := NewMask(grid)
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			if !grid.InBounds(col, row) {
				t.Fatalf("block pixel (%d,%d) outside grid", col, row)
			}
			m.Set(col, row)
		}
	}
	return m
}

// gridROIOf is a rectangular region covering the whole grid.
func gridROIOf(t *testing.T, grid Grid) geom.ROI {
	t.Helper()
	b := grid.Bound()
	roi, err := geom.RectROI(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		t.Fatal(err)
	}
	return roi
}
