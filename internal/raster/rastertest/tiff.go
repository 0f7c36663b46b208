// Package rastertest writes band fixtures for reader tests.
package rastertest

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/tiff"
)

// EncodeBand writes row-major 16-bit digital numbers as a greyscale TIFF.
func EncodeBand(w io.Writer, width, height int, dn []uint16) error {
	if len(dn) != width*height {
		return fmt.Errorf("encode band: %d values for %dx%d pixels", len(dn), width, height)
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			img.SetGray16(col, row, color.Gray16{Y: dn[row*width+col]})
		}
	}
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("failed to encode band: %w", err)
	}
	return nil
}
