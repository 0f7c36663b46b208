package raster

import (
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/minesite-mcp/internal/geom"
)

func TestGridValidate(t *testing.T) {
	tests := []struct {
		name    string
		grid    Grid
		wantErr bool
	}{
		{"valid", testGrid(10, 10), false},
		{"zero width", Grid{PixelWidth: 1, PixelHeight: -1, Height: 1}, true},
		{"zero pixel", Grid{Width: 1, Height: 1, PixelHeight: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}

func TestGridCenterAndPixelOf(t *testing.T) {
	g := testGrid(10, 10)

	c := g.Center(2, 3)
	if c[0] != 500075 || c[1] != 3999895 {
		t.Errorf("Center(2,3) = %v", c)
	}

	col, row, ok := g.PixelOf(c)
	if !ok || col != 2 || row != 3 {
		t.Errorf("PixelOf(center) = %d,%d,%v; want 2,3,true", col, row, ok)
	}

	if _, _, ok := g.PixelOf(g.Corner(-1, 0)); ok {
		t.Error("point left of the grid should be out of bounds")
	}
}

func TestGridBound(t *testing.T) {
	b := testGrid(10, 5).Bound()
	if b.Min[0] != 500000 || b.Max[0] != 500300 {
		t.Errorf("x extent = %v..%v", b.Min[0], b.Max[0])
	}
	if b.Min[1] != 3999850 || b.Max[1] != 4000000 {
		t.Errorf("y extent = %v..%v", b.Min[1], b.Max[1])
	}
}

func TestGridPixelSizeGeographic(t *testing.T) {
	g := Grid{
		OriginX: 10, OriginY: 60.01,
		PixelWidth: 0.001, PixelHeight: -0.001,
		Width: 10, Height: 20,
		Geographic: true,
	}
	dx, dy := g.PixelSize()

	// Central latitude is 60, where a degree of longitude is half as long.
	if math.Abs(dx-dy/2) > 0.01 {
		t.Errorf("dx = %v, want about %v", dx, dy/2)
	}
	if math.Abs(dy-111.319) > 0.01 {
		t.Errorf("dy = %v, want about 111.319", dy)
	}
}

func TestGridWithScale(t *testing.T) {
	g := testGrid(10, 7)

	if got := g.WithScale(30); !got.Equal(g) {
		t.Errorf("same scale changed grid: %+v", got)
	}
	if got := g.WithScale(0); !got.Equal(g) {
		t.Errorf("zero scale changed grid: %+v", got)
	}

	coarse := g.WithScale(60)
	if coarse.Width != 5 || coarse.Height != 4 {
		t.Errorf("60 m grid is %dx%d, want 5x4", coarse.Width, coarse.Height)
	}
	if coarse.PixelWidth != 60 || coarse.PixelHeight != -60 {
		t.Errorf("60 m grid pixel = %v x %v", coarse.PixelWidth, coarse.PixelHeight)
	}
	if coarse.OriginX != g.OriginX || coarse.OriginY != g.OriginY {
		t.Error("WithScale should keep the origin")
	}
}

func TestGridCrop(t *testing.T) {
	g := testGrid(100, 80)
	roi, err := geom.RectROI(500310, 3999400, 500600, 3999700)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		margin     int
		wantCol    int
		wantRow    int
		wantWidth  int
		wantHeight int
	}{
		{"window", 0, 10, 10, 10, 10},
		{"margin", 1, 9, 9, 12, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Crop(roi, tt.margin)
			if got.Width != tt.wantWidth || got.Height != tt.wantHeight {
				t.Errorf("size = %dx%d, want %dx%d", got.Width, got.Height, tt.wantWidth, tt.wantHeight)
			}
			want := g.Corner(float64(tt.wantCol), float64(tt.wantRow))
			if got.OriginX != want[0] || got.OriginY != want[1] {
				t.Errorf("origin = (%v, %v), want %v", got.OriginX, got.OriginY, want)
			}
			// Pixel centres of the crop line up with the parent grid.
			col, row, ok := g.PixelOf(got.Center(0, 0))
			if !ok || col != tt.wantCol || row != tt.wantRow {
				t.Errorf("first pixel maps to (%d,%d), want (%d,%d)", col, row, tt.wantCol, tt.wantRow)
			}
		})
	}

	if got := g.Crop(geom.ROI{}, 0); !got.Equal(g) {
		t.Errorf("zero region changed grid: %+v", got)
	}
	if got := g.Crop(gridROIOf(t, g), 2); !got.Equal(g) {
		t.Errorf("covering region changed grid: %+v", got)
	}

	far, err := geom.RectROI(0, 0, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Crop(far, 0); got.Len() != 0 {
		t.Errorf("disjoint region gave %d pixels", got.Len())
	}
}
