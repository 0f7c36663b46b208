package raster

import (
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// rampBand returns a 101x1 band holding 0..100.
func rampBand(t *testing.T) *Band {
	t.Helper()
	g := testGrid(101, 1)
	data := make([]float64, 101)
	for i := range data {
		data[i] = float64(i)
	}
	b, err := NewBandFrom("elevation", g, data)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPercentilesRamp(t *testing.T) {
	res, err := Percentiles(rampBand(t), []float64{5, 50, 95}, ReduceOptions{})
	if err != nil {
		t.Fatalf("Percentiles failed: %v", err)
	}

	tests := map[float64]float64{5: 5, 50: 50, 95: 95}
	for p, want := range tests {
		got, ok := res.Percentile(p)
		if !ok || math.Abs(got-want) > 1e-9 {
			t.Errorf("p%v = %v, want %v", p, got, want)
		}
	}
	if res.Count != 101 || res.Truncated || res.Stride != 1 {
		t.Errorf("unexpected result metadata: %+v", res)
	}
}

func TestPercentilesInterpolates(t *testing.T) {
	g := testGrid(4, 1)
	b, _ := NewBandFrom("v", g, []float64{40, 10, 30, 20})

	res, err := Percentiles(b, []float64{50}, ReduceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := res.Percentile(50); got != 25 {
		t.Errorf("median = %v, want 25", got)
	}
}

func TestPercentilesSkipsInvalidAndOutside(t *testing.T) {
	b := rampBand(t)
	b.Invalidate(0)

	// First ten pixels only.
	roi, err := geom.RectROI(500000, 3999970, 500300, 4000000)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Percentiles(b, []float64{0, 100}, ReduceOptions{Region: roi})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 9 {
		t.Errorf("Count = %d, want 9", res.Count)
	}
	if lo, _ := res.Percentile(0); lo != 1 {
		t.Errorf("min = %v, want 1", lo)
	}
	if hi, _ := res.Percentile(100); hi != 9 {
		t.Errorf("max = %v, want 9", hi)
	}
}

func TestPercentilesNoData(t *testing.T) {
	b := NewBand("v", testGrid(2, 1))
	b.Invalidate(0)
	b.Invalidate(1)

	_, err := Percentiles(b, []float64{50}, ReduceOptions{})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestPercentilesRejectsRange(t *testing.T) {
	if _, err := Percentiles(rampBand(t), []float64{101}, ReduceOptions{}); err == nil {
		t.Error("expected error for percentile above 100")
	}
}

func TestPercentilesPixelBudget(t *testing.T) {
	b := rampBand(t)

	_, err := Percentiles(b, []float64{50}, ReduceOptions{MaxPixels: 10})
	if !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}

	res, err := Percentiles(b, []float64{50}, ReduceOptions{MaxPixels: 10, BestEffort: true})
	if err != nil {
		t.Fatalf("best-effort reduction failed: %v", err)
	}
	if !res.Truncated {
		t.Error("best-effort reduction should report truncation")
	}
	if res.Count > 10 {
		t.Errorf("Count = %d exceeds budget", res.Count)
	}
	if res.Stride != 16 {
		t.Errorf("Stride = %d, want 16", res.Stride)
	}
}

func TestPercentilesScaleStride(t *testing.T) {
	res, err := Percentiles(rampBand(t), []float64{0}, ReduceOptions{Scale: 90})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stride != 3 || res.Count != 34 || res.Truncated {
		t.Errorf("stride %d count %d truncated %v", res.Stride, res.Count, res.Truncated)
	}
}

func TestPercentilesThinRegionOffLattice(t *testing.T) {
	g := testGrid(10, 10)
	data := make([]float64, g.Len())
	for i := range data {
		data[i] = float64(i % g.Width)
	}
	b, err := NewBandFrom("elevation", g, data)
	if err != nil {
		t.Fatal(err)
	}

	// A 70 m wide strip holding the centres of columns 1 and 2. With a 90 m
	// scale the lattice visits columns 0 and 3 only.
	strip, err := geom.RectROI(500020, 3999700, 500090, 4000000)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		maxPixels int
		wantCount int
		truncated bool
	}{
		{"all pixels", 10_000_000, 20, false},
		{"capped", 5, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Percentiles(b, []float64{0, 100}, ReduceOptions{
				Region:     strip,
				Scale:      90,
				MaxPixels:  tt.maxPixels,
				BestEffort: true,
			})
			if err != nil {
				t.Fatalf("Percentiles failed: %v", err)
			}
			if res.Count != tt.wantCount || res.Truncated != tt.truncated || res.Stride != 1 {
				t.Errorf("count %d truncated %v stride %d", res.Count, res.Truncated, res.Stride)
			}
			lo, _ := res.Percentile(0)
			hi, _ := res.Percentile(100)
			if lo < 1 || hi > 2 {
				t.Errorf("range = [%v, %v], want values from columns 1 and 2", lo, hi)
			}
		})
	}
}
