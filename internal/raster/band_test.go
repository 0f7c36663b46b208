package raster

import (
	"errors"
	"testing"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

func TestNewBandFromLength(t *testing.T) {
	if _, err := NewBandFrom("b", testGrid(2, 2), []float64{1, 2, 3}); err == nil {
		t.Fatal("expected length error")
	}
	b, err := NewBandFrom("b", testGrid(2, 2), []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewBandFrom failed: %v", err)
	}
	if v, ok := b.At(1, 1); !ok || v != 4 {
		t.Errorf("At(1,1) = %v,%v", v, ok)
	}
	if _, ok := b.At(2, 0); ok {
		t.Error("out-of-range pixel should be invalid")
	}
}

func TestBandInvalidate(t *testing.T) {
	b := NewBand("b", testGrid(3, 1))
	if b.ValidCount() != 3 {
		t.Fatalf("fresh band ValidCount = %d", b.ValidCount())
	}
	b.Invalidate(1)
	if b.ValidCount() != 2 || b.IsValid(1) || !b.IsValid(0) {
		t.Errorf("after Invalidate(1): valid=%v", b.Valid)
	}

	b.Set(1, 0, 7)
	if v, ok := b.Value(1); !ok || v != 7 {
		t.Errorf("Set should revalidate, got %v,%v", v, ok)
	}
}

func TestBandCloneIsDeep(t *testing.T) {
	b := NewBand("a", testGrid(2, 1))
	b.Invalidate(0)
	c := b.Clone("c")
	c.Data[1] = 5
	c.Valid[0] = true

	if b.Data[1] != 0 || b.Valid[0] {
		t.Error("Clone shares storage with the original")
	}
	if c.Name != "c" {
		t.Errorf("Clone name = %q", c.Name)
	}
}

func TestBandClip(t *testing.T) {
	g := testGrid(4, 4)
	b := NewBand("elev", g)

	// Covers the two left columns.
	roi, err := geom.RectROI(500000, 3999880, 500060, 4000000)
	if err != nil {
		t.Fatal(err)
	}
	clipped := b.Clip(roi)

	if clipped.ValidCount() != 8 {
		t.Errorf("ValidCount = %d, want 8", clipped.ValidCount())
	}
	if _, ok := clipped.At(0, 0); !ok {
		t.Error("pixel inside region should stay valid")
	}
	if _, ok := clipped.At(3, 0); ok {
		t.Error("pixel outside region should be invalid")
	}
	if b.ValidCount() != 16 {
		t.Error("Clip modified its input")
	}
}

func TestCombine(t *testing.T) {
	g := testGrid(3, 1)
	a, _ := NewBandFrom("a", g, []float64{1, 2, 3})
	b, _ := NewBandFrom("b", g, []float64{1, 0, 3})
	a.Invalidate(2)

	ratio, err := Combine("ratio", func(v []float64) (float64, bool) {
		if v[1] == 0 {
			return 0, false
		}
		return v[0] / v[1], true
	}, a, b)
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}

	if v, ok := ratio.Value(0); !ok || v != 1 {
		t.Errorf("pixel 0 = %v,%v; want 1,true", v, ok)
	}
	if _, ok := ratio.Value(1); ok {
		t.Error("pixel 1 has zero denominator and should be invalid")
	}
	if _, ok := ratio.Value(2); ok {
		t.Error("pixel 2 has invalid input and should be invalid")
	}
}

func TestCombineGridMismatch(t *testing.T) {
	a := NewBand("a", testGrid(2, 2))
	b := NewBand("b", testGrid(3, 2))
	_, err := Combine("x", func(v []float64) (float64, bool) { return 0, true }, a, b)
	if !errors.Is(err, ErrGridMismatch) {
		t.Errorf("expected ErrGridMismatch, got %v", err)
	}
}

func TestImageSelect(t *testing.T) {
	g := testGrid(2, 2)
	im, err := NewImage(g, NewBand("SR_B2", g), NewBand("SR_B4", g), NewBand("SR_B5", g))
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}

	sel, err := im.Select("SR_B5", "SR_B2")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	names := sel.BandNames()
	if len(names) != 2 || names[0] != "SR_B5" || names[1] != "SR_B2" {
		t.Errorf("Select order = %v", names)
	}

	if _, err := im.Band("QA_PIXEL"); !errors.Is(err, ErrBandNotFound) {
		t.Errorf("expected ErrBandNotFound, got %v", err)
	}
}

func TestBandResample(t *testing.T) {
	src := testGrid(4, 4)
	b := NewBand("elev", src)
	for i := range b.Data {
		b.Data[i] = float64(i)
	}

	// Same origin, half the resolution, one column wider than the source.
	dst := Grid{OriginX: src.OriginX, OriginY: src.OriginY, PixelWidth: 60, PixelHeight: -60, Width: 3, Height: 2}
	out := b.Resample(dst)

	if v, ok := out.At(0, 0); !ok || v != 5 {
		t.Errorf("pixel (0,0) = %v,%v; want 5,true", v, ok)
	}
	if v, ok := out.At(1, 1); !ok || v != 15 {
		t.Errorf("pixel (1,1) = %v,%v; want 15,true", v, ok)
	}
	if _, ok := out.At(2, 0); ok {
		t.Error("pixel beyond the source should be invalid")
	}
}
