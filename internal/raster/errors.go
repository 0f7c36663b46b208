package raster

import "errors"

var (
	// ErrNoData is returned when a reduction finds no valid pixel.
	ErrNoData = errors.New("no valid pixels in region")

	// ErrTooManyPixels is returned when an operation exceeds its pixel
	// budget and best-effort mode was not requested.
	ErrTooManyPixels = errors.New("too many pixels")

	// ErrGridMismatch is returned when rasters that must share a grid do not.
	ErrGridMismatch = errors.New("raster grids do not match")

	// ErrBandNotFound is returned when a named band is missing from an image.
	ErrBandNotFound = errors.New("band not found")

	// ErrInvalidGrid is returned for grids with non-positive dimensions or
	// zero pixel size.
	ErrInvalidGrid = errors.New("invalid grid")
)
