// Package render draws static previews of detection masks.
package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// ErrNoLayers is returned when a preview has nothing to draw.
var ErrNoLayers = errors.New("no mask layers to render")

// Palette holds the layer colors as hex strings.
type Palette struct {
	Background string `json:"background"`
	Cleaned    string `json:"cleaned"`
	Final      string `json:"final"`
}

// DefaultPalette draws the dilated mask red and the final mask orange over
// grey.
func DefaultPalette() Palette {
	return Palette{
		Background: "#808080",
		Cleaned:    "#ff0000",
		Final:      "#ffa500",
	}
}

// Options controls preview size and colors.
type Options struct {
	// MaxSize bounds the longer side of the output in pixels. Small masks
	// are upscaled by an integer factor up to this size.
	MaxSize int

	// Opacity blends the layer colors over the background, from 0 to 1.
	Opacity float64

	Palette Palette
}

// DefaultOptions returns options for a 512 pixel preview.
func DefaultOptions() Options {
	return Options{MaxSize: 512, Opacity: 1, Palette: DefaultPalette()}
}

// PreviewResult contains a rendered mask preview encoded as base64 PNG.
type PreviewResult struct {
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	ImageBase64   string            `json:"image_base64"`
	MimeType      string            `json:"mime_type"`
	Legend        map[string]string `json:"legend"`
	CleanedPixels int               `json:"cleaned_pixels"`
	FinalPixels   int               `json:"final_pixels"`
}

// Preview renders the cleaned and final masks as a PNG.
//
// The final mask is drawn over the cleaned one. Either may be nil but not
// both. When the masks are on different grids the final mask is resampled to
// the cleaned mask's grid.
//
// # Algorithm
//
//  1. Pick the base grid (cleaned, else final) and resample the other layer.
//  2. Color each pixel: background, then cleaned, then final on top; layer
//     colors are blended over the background by Opacity in RGB.
//  3. Upscale by the largest integer factor that keeps the longer side
//     within MaxSize, using nearest neighbour so pixel edges stay sharp.
//     Masks larger than MaxSize are downscaled the same way.
func Preview(cleaned, final *raster.Mask, opts Options) (*PreviewResult, error) {
	if cleaned == nil && final == nil {
		return nil, ErrNoLayers
	}
	base := cleaned
	if base == nil {
		base = final
	}
	grid := base.Grid
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if final != nil && !final.Grid.Equal(grid) {
		final = final.Resample(grid)
	}

	palette, err := parsePalette(opts.Palette, opts.Opacity)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	var nCleaned, nFinal int
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			c := palette.background
			if cleaned != nil && cleaned.Get(col, row) {
				c = palette.cleaned
				nCleaned++
			}
			if final != nil && final.Get(col, row) {
				c = palette.final
				nFinal++
			}
			img.SetNRGBA(col, row, c)
		}
	}

	w, h := fitSize(grid.Width, grid.Height, opts.MaxSize)
	out := image.Image(img)
	if w != grid.Width || h != grid.Height {
		out = imaging.Resize(img, w, h, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &PreviewResult{
		Width:       w,
		Height:      h,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Legend: map[string]string{
			"background": opts.Palette.Background,
			"cleaned":    opts.Palette.Cleaned,
			"final":      opts.Palette.Final,
		},
		CleanedPixels: nCleaned,
		FinalPixels:   nFinal,
	}, nil
}

type resolvedPalette struct {
	background, cleaned, final color.NRGBA
}

func parsePalette(p Palette, opacity float64) (resolvedPalette, error) {
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	bg, err := colorful.Hex(p.Background)
	if err != nil {
		return resolvedPalette{}, fmt.Errorf("invalid background color %q: %w", p.Background, err)
	}
	cl, err := colorful.Hex(p.Cleaned)
	if err != nil {
		return resolvedPalette{}, fmt.Errorf("invalid cleaned color %q: %w", p.Cleaned, err)
	}
	fi, err := colorful.Hex(p.Final)
	if err != nil {
		return resolvedPalette{}, fmt.Errorf("invalid final color %q: %w", p.Final, err)
	}
	return resolvedPalette{
		background: toNRGBA(bg),
		cleaned:    toNRGBA(bg.BlendRgb(cl, opacity)),
		final:      toNRGBA(bg.BlendRgb(fi, opacity)),
	}, nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// fitSize scales w x h so the longer side is as close to maxSize as an
// integer factor allows. Oversized inputs shrink to exactly maxSize.
func fitSize(w, h, maxSize int) (int, int) {
	if maxSize <= 0 {
		return w, h
	}
	long := w
	if h > long {
		long = h
	}
	if long > maxSize {
		sw := w * maxSize / long
		sh := h * maxSize / long
		return max(sw, 1), max(sh, 1)
	}
	factor := maxSize / long
	return w * factor, h * factor
}
