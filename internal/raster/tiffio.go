package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/tiff"
)

// TIFFOptions converts stored digital numbers into band values.
type TIFFOptions struct {
	// Scale and Offset map a digital number to value = DN*Scale + Offset.
	// A zero Scale is treated as 1.
	Scale  float64
	Offset float64

	// NoData marks a digital number as missing.
	NoData *uint16
}

// ReadTIFFBand decodes a single-band TIFF onto grid.
//
// 16-bit and 8-bit greyscale images are read directly; other colour models
// are converted to 16-bit luminance. The image size must match the grid.
func ReadTIFFBand(r io.Reader, name string, grid Grid, opts TIFFOptions) (*Band, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode band %q: %w", name, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != grid.Width || bounds.Dy() != grid.Height {
		return nil, fmt.Errorf("band %q is %dx%d, grid is %dx%d: %w",
			name, bounds.Dx(), bounds.Dy(), grid.Width, grid.Height, ErrGridMismatch)
	}

	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}

	band := NewBand(name, grid)
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			x, y := bounds.Min.X+col, bounds.Min.Y+row
			var dn uint16
			switch src := img.(type) {
			case *image.Gray16:
				dn = src.Gray16At(x, y).Y
			case *image.Gray:
				dn = uint16(src.GrayAt(x, y).Y)
			default:
				dn = color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
			}

			i := grid.Index(col, row)
			if opts.NoData != nil && dn == *opts.NoData {
				band.Invalidate(i)
				continue
			}
			band.Data[i] = float64(dn)*scale + opts.Offset
		}
	}
	return band, nil
}
