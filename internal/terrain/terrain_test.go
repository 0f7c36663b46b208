package terrain

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/raster"
	"github.com/ironsheep/minesite-mcp/internal/raster/rastertest"
)

func grid(w, h int) raster.Grid {
	return raster.Grid{
		OriginX: 500000, OriginY: 4000000,
		PixelWidth: 30, PixelHeight: -30,
		Width: w, Height: h,
	}
}

// bandOf fills a band with fn(col, row).
func bandOf(t *testing.T, g raster.Grid, fn func(col, row int) float64) *raster.Band {
	t.Helper()
	b := raster.NewBand("elevation", g)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			b.Set(col, row, fn(col, row))
		}
	}
	return b
}

func TestSlopeFlat(t *testing.T) {
	s := Slope(bandOf(t, grid(5, 5), func(int, int) float64 { return 120 }))
	for i := range s.Data {
		if v, ok := s.Value(i); !ok || v != 0 {
			t.Fatalf("pixel %d slope = %v,%v; want 0", i, v, ok)
		}
	}
}

func TestSlopePlane(t *testing.T) {
	// Rises one metre per metre eastward.
	s := Slope(bandOf(t, grid(5, 5), func(col, _ int) float64 { return float64(col) * 30 }))

	for row := 0; row < 5; row++ {
		for col := 1; col < 4; col++ {
			v, ok := s.At(col, row)
			if !ok || math.Abs(v-45) > 1e-9 {
				t.Errorf("slope at (%d,%d) = %v, want 45", col, row, v)
			}
		}
	}
	// Replicated edge halves the gradient.
	edge, _ := s.At(0, 2)
	want := math.Atan(0.5) * 180 / math.Pi
	if math.Abs(edge-want) > 1e-9 {
		t.Errorf("edge slope = %v, want %v", edge, want)
	}
}

func TestSlopeInvalidCentre(t *testing.T) {
	b := bandOf(t, grid(3, 3), func(col, _ int) float64 { return float64(col) })
	b.Invalidate(4)
	s := Slope(b)
	if s.IsValid(4) {
		t.Error("slope of an invalid pixel should be invalid")
	}
	if !s.IsValid(0) {
		t.Error("neighbours of an invalid pixel should stay valid")
	}
}

func TestDepth(t *testing.T) {
	b, err := raster.NewBandFrom("elevation", grid(2, 1), []float64{60, 110})
	if err != nil {
		t.Fatal(err)
	}
	d := Depth(b, 100)

	if v, _ := d.Value(0); v != 40 {
		t.Errorf("depth at 60 m = %v, want 40", v)
	}
	if v, _ := d.Value(1); v >= 0 {
		t.Errorf("depth above the rim = %v, want negative", v)
	}
}

func TestAnalyzeReference(t *testing.T) {
	g := grid(101, 1)
	elev := bandOf(t, g, func(col, _ int) float64 { return float64(col) })

	a := NewAnalyzer(MemorySource{Band: elev}, raster.ReduceOptions{MaxPixels: 10_000_000, BestEffort: true}, zerolog.Nop())
	res, err := a.Analyze(context.Background(), geom.ROI{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Rim != 95 || res.Floor != 5 {
		t.Errorf("rim/floor = %v/%v, want 95/5", res.Rim, res.Floor)
	}
	if v, _ := res.Depth.At(60, 0); v != 35 {
		t.Errorf("depth at 60 m = %v, want 35", v)
	}
	if res.Truncated || res.Samples != 101 {
		t.Errorf("samples %d truncated %v", res.Samples, res.Truncated)
	}
}

func TestAnalyzeNoCoverage(t *testing.T) {
	elev := bandOf(t, grid(4, 4), func(int, int) float64 { return 1 })
	a := NewAnalyzer(MemorySource{Band: elev}, raster.ReduceOptions{}, zerolog.Nop())

	far, _ := geom.RectROI(0, 0, 100, 100)
	if _, err := a.Analyze(context.Background(), far); !errors.Is(err, ErrNoCoverage) {
		t.Errorf("disjoint region: expected ErrNoCoverage, got %v", err)
	}

	for i := range elev.Data {
		elev.Invalidate(i)
	}
	if _, err := a.Analyze(context.Background(), geom.ROI{}); !errors.Is(err, ErrNoCoverage) {
		t.Errorf("empty raster: expected ErrNoCoverage, got %v", err)
	}
	inside, _ := geom.RectROI(500000, 3999880, 500120, 4000000)
	if _, err := a.Analyze(context.Background(), inside); !errors.Is(err, ErrNoCoverage) {
		t.Errorf("all-invalid region: expected ErrNoCoverage, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dem.tif")
	g := grid(3, 2)

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := rastertest.EncodeBand(f, g.Width, g.Height, []uint16{1000, 1010, 1020, 0, 1040, 1050}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	nodata := uint16(0)
	meta, _ := json.Marshal(Sidecar{Grid: g, Scale: 0.1, Offset: -10, NoData: &nodata})
	if err := os.WriteFile(path+".json", meta, 0o644); err != nil {
		t.Fatal(err)
	}

	band, err := FileSource{Path: path}.Elevation(context.Background(), geom.ROI{})
	if err != nil {
		t.Fatalf("Elevation failed: %v", err)
	}
	if v, ok := band.At(1, 0); !ok || math.Abs(v-91) > 1e-9 {
		t.Errorf("elevation = %v,%v; want 91", v, ok)
	}
	if band.IsValid(3) {
		t.Error("nodata pixel should be invalid")
	}
}

func TestElevationCropsToRegion(t *testing.T) {
	g := grid(200, 150)
	elev := bandOf(t, g, func(col, row int) float64 { return float64(col + 1000*row) })

	// Pixels (50..59, 40..49).
	roi, err := geom.RectROI(501500, 3998500, 501800, 3998800)
	if err != nil {
		t.Fatal(err)
	}
	band, err := MemorySource{Band: elev}.Elevation(context.Background(), roi)
	if err != nil {
		t.Fatalf("Elevation failed: %v", err)
	}
	if band.Grid.Width != 12 || band.Grid.Height != 12 {
		t.Fatalf("cropped grid is %dx%d, want the 10x10 window plus one pixel margin", band.Grid.Width, band.Grid.Height)
	}
	if band.ValidCount() != 100 {
		t.Errorf("valid pixels = %d, want 100", band.ValidCount())
	}
	// Crop pixel (1, 1) is source pixel (50, 40).
	if v, ok := band.At(1, 1); !ok || v != 40050 {
		t.Errorf("elevation at window origin = %v,%v; want 40050", v, ok)
	}
	if band.IsValid(0) {
		t.Error("margin pixel outside the region should be invalid")
	}
}

func TestAnalyzeThinRegion(t *testing.T) {
	elev := bandOf(t, grid(10, 10), func(col, _ int) float64 { return float64(100 + col) })
	a := NewAnalyzer(MemorySource{Band: elev}, raster.ReduceOptions{Scale: 90, MaxPixels: 10_000_000, BestEffort: true}, zerolog.Nop())

	// 70 m wide, covering the centres of columns 1 and 2 only.
	strip, err := geom.RectROI(500020, 3999700, 500090, 4000000)
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Analyze(context.Background(), strip)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Samples != 20 {
		t.Errorf("samples = %d, want 20", res.Samples)
	}
	if res.Rim != 102 || res.Floor != 101 {
		t.Errorf("rim/floor = %v/%v, want 102/101", res.Rim, res.Floor)
	}
}
