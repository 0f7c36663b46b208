package detection

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/indices"
	"github.com/ironsheep/minesite-mcp/internal/raster"
	"github.com/ironsheep/minesite-mcp/internal/scene"
	"github.com/ironsheep/minesite-mcp/internal/terrain"
)

// testGrid is a north-up grid of 30 m pixels.
func testGrid(w, h int) raster.Grid {
	return raster.Grid{
		OriginX: 500000, OriginY: 4000000,
		PixelWidth: 30, PixelHeight: -30,
		Width: w, Height: h,
	}
}

// gridROI covers the whole grid.
func gridROI(t *testing.T, g raster.Grid) geom.ROI {
	t.Helper()
	b := g.Bound()
	roi, err := geom.RectROI(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		t.Fatal(err)
	}
	return roi
}

// block is a half-open pixel rectangle.
type block struct{ c0, r0, c1, r1 int }

func (b block) has(col, row int) bool {
	return col >= b.c0 && col < b.c1 && row >= b.r0 && row < b.r1
}

func inAny(blocks []block, col, row int) bool {
	for _, b := range blocks {
		if b.has(col, row) {
			return true
		}
	}
	return false
}

// fill builds a band holding in inside the blocks and out elsewhere.
func fill(t *testing.T, name string, g raster.Grid, blocks []block, in, out float64) *raster.Band {
	t.Helper()
	b := raster.NewBand(name, g)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if inAny(blocks, col, row) {
				b.Set(col, row, in)
			} else {
				b.Set(col, row, out)
			}
		}
	}
	return b
}

// qualifyingLayers returns layers where the blocks pass every criterion with
// NDVI 0.1, BSI 0.3, NDBI 0.2, slope 25 and depth 40, and everything else
// fails on vegetation.
func qualifyingLayers(t *testing.T, g raster.Grid, blocks ...block) Layers {
	t.Helper()
	return Layers{
		NDVI:  fill(t, "NDVI", g, blocks, 0.1, 0.8),
		BSI:   fill(t, "BSI", g, blocks, 0.3, 0.3),
		NDBI:  fill(t, "NDBI", g, blocks, 0.2, 0.2),
		Slope: fill(t, "slope", g, blocks, 25, 25),
		Depth: fill(t, "depth", g, blocks, 40, 40),
	}
}

func nopDetector() *Detector {
	return NewDetector(nil, scene.Landsat8, nil, indices.DefaultBands, zerolog.Nop())
}

// reflectanceScene builds a Landsat 8 scene in which the blocks look like
// bare excavated ground and the rest like dense vegetation.
func reflectanceScene(t *testing.T, g raster.Grid, id string, blocks ...block) *scene.Scene {
	t.Helper()
	dn := func(refl float64) float64 { return math.Round((refl + 0.2) / 0.0000275) }

	type pair struct{ in, out float64 }
	values := map[string]pair{
		scene.BandBlue:  {0.10, 0.05},
		scene.BandGreen: {0.15, 0.08},
		scene.BandRed:   {0.25, 0.05},
		scene.BandNIR:   {0.20, 0.50},
		scene.BandSWIR1: {0.30, 0.20},
		scene.BandSWIR2: {0.25, 0.10},
	}

	var bands []*raster.Band
	for _, name := range scene.Landsat8.Bands {
		v := values[name]
		bands = append(bands, fill(t, name, g, blocks, dn(v.in), dn(v.out)))
	}
	bands = append(bands, fill(t, scene.BandQA, g, nil, 0, 21824))

	img, err := raster.NewImage(g, bands...)
	if err != nil {
		t.Fatal(err)
	}
	return &scene.Scene{
		Info: scene.Info{
			ID:         id,
			Collection: scene.Landsat8.Collection,
			Acquired:   time.Date(2022, 5, 10, 2, 30, 0, 0, time.UTC),
			CloudCover: 12,
			Grid:       g,
		},
		Image: img,
	}
}

// pitDEM is flat at 200 m with the blocks excavated as a ramp rising 30 m per
// column from 0 m.
func pitDEM(t *testing.T, g raster.Grid, blocks ...block) terrain.Source {
	t.Helper()
	b := raster.NewBand("elevation", g)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := 200.0
			for _, bl := range blocks {
				if bl.has(col, row) {
					v = float64(col-bl.c0) * 30
				}
			}
			b.Set(col, row, v)
		}
	}
	return terrain.MemorySource{Band: b}
}
