package raster

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/minesite-mcp/internal/raster/rastertest"
)

func TestTIFFBandRoundTrip(t *testing.T) {
	g := testGrid(3, 2)
	dn := []uint16{0, 7273, 10000, 20000, 65535, 1}

	var buf bytes.Buffer
	if err := rastertest.EncodeBand(&buf, g.Width, g.Height, dn); err != nil {
		t.Fatalf("EncodeBand failed: %v", err)
	}

	nodata := uint16(0)
	band, err := ReadTIFFBand(bytes.NewReader(buf.Bytes()), "SR_B4", g, TIFFOptions{
		Scale:  0.0000275,
		Offset: -0.2,
		NoData: &nodata,
	})
	if err != nil {
		t.Fatalf("ReadTIFFBand failed: %v", err)
	}

	if band.IsValid(0) {
		t.Error("nodata pixel should be invalid")
	}
	v, ok := band.At(1, 0)
	if !ok || math.Abs(v-0.0000075) > 1e-9 {
		t.Errorf("pixel (1,0) = %v, want about 0.0000075", v)
	}
	v, _ = band.At(1, 1)
	if math.Abs(v-(65535*0.0000275-0.2)) > 1e-9 {
		t.Errorf("pixel (1,1) = %v", v)
	}
}

func TestReadTIFFBandSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := rastertest.EncodeBand(&buf, 2, 2, make([]uint16, 4)); err != nil {
		t.Fatal(err)
	}
	_, err := ReadTIFFBand(&buf, "b", testGrid(3, 3), TIFFOptions{})
	if !errors.Is(err, ErrGridMismatch) {
		t.Errorf("expected ErrGridMismatch, got %v", err)
	}
}
