package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

func testGrid(w, h int) raster.Grid {
	return raster.Grid{
		OriginX: 500000, OriginY: 4000000,
		PixelWidth: 30, PixelHeight: -30,
		Width: w, Height: h,
	}
}

func decode(t *testing.T, res *PreviewResult) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	return img
}

func rgb(c color.Color) [3]uint8 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return [3]uint8{n.R, n.G, n.B}
}

func TestPreviewColors(t *testing.T) {
	g := testGrid(4, 4)
	cleaned := raster.NewMask(g)
	final := raster.NewMask(g)
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			cleaned.Set(col, row)
		}
	}
	cleaned.Set(3, 3)
	final.Set(0, 0)

	opts := DefaultOptions()
	opts.MaxSize = 0
	res, err := Preview(cleaned, final, opts)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if res.Width != 4 || res.Height != 4 || res.MimeType != "image/png" {
		t.Errorf("result = %dx%d %s", res.Width, res.Height, res.MimeType)
	}
	if res.CleanedPixels != 5 || res.FinalPixels != 1 {
		t.Errorf("pixel counts = %d/%d, want 5/1", res.CleanedPixels, res.FinalPixels)
	}

	img := decode(t, res)
	tests := []struct {
		col, row int
		want     [3]uint8
	}{
		{0, 0, [3]uint8{255, 165, 0}},
		{1, 0, [3]uint8{255, 0, 0}},
		{3, 3, [3]uint8{255, 0, 0}},
		{2, 2, [3]uint8{128, 128, 128}},
	}
	for _, tt := range tests {
		if got := rgb(img.At(tt.col, tt.row)); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.col, tt.row, got, tt.want)
		}
	}
}

func TestPreviewUpscale(t *testing.T) {
	g := testGrid(10, 5)
	cleaned := raster.NewMask(g)
	cleaned.Set(9, 4)

	res, err := Preview(cleaned, nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Width != 510 || res.Height != 255 {
		t.Fatalf("size = %dx%d, want 510x255", res.Width, res.Height)
	}
	img := decode(t, res)
	if got := rgb(img.At(509, 254)); got != [3]uint8{255, 0, 0} {
		t.Errorf("upscaled corner = %v, want red", got)
	}
	if got := rgb(img.At(458, 203)); got != [3]uint8{128, 128, 128} {
		t.Errorf("neighbouring block = %v, want grey", got)
	}
}

func TestPreviewFinalOnOtherGrid(t *testing.T) {
	fine := testGrid(4, 4)
	coarse := fine.WithScale(60)
	final := raster.NewMask(coarse)
	final.Set(0, 0)

	opts := DefaultOptions()
	opts.MaxSize = 0
	res, err := Preview(raster.NewMask(fine), final, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.FinalPixels != 4 {
		t.Errorf("final pixels = %d, want 4 after resampling to the fine grid", res.FinalPixels)
	}
}

func TestPreviewErrors(t *testing.T) {
	if _, err := Preview(nil, nil, DefaultOptions()); !errors.Is(err, ErrNoLayers) {
		t.Errorf("Preview(nil, nil) = %v, want ErrNoLayers", err)
	}

	opts := DefaultOptions()
	opts.Palette.Cleaned = "not-a-color"
	if _, err := Preview(raster.NewMask(testGrid(2, 2)), nil, opts); err == nil {
		t.Error("expected error for invalid palette color")
	}
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{10, 5, 512, 510, 255},
		{100, 100, 512, 500, 500},
		{1024, 512, 512, 512, 256},
		{7, 3, 0, 7, 3},
		{600, 1, 300, 300, 1},
	}
	for _, tt := range tests {
		w, h := fitSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitSize(%d, %d, %d) = %d, %d, want %d, %d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}
