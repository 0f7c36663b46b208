// Package indices computes per-pixel spectral indices from a reflectance
// composite.
package indices

import (
	"fmt"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// Index band names.
const (
	NDVI = "NDVI"
	NDBI = "NDBI"
	BSI  = "BSI"
)

// Bands names the composite bands each index reads.
type Bands struct {
	Blue  string `json:"blue"`
	Red   string `json:"red"`
	NIR   string `json:"nir"`
	SWIR1 string `json:"swir1"`
}

// DefaultBands are the Landsat 8 surface reflectance bands.
var DefaultBands = Bands{
	Blue:  "SR_B2",
	Red:   "SR_B4",
	NIR:   "SR_B5",
	SWIR1: "SR_B6",
}

// Set holds the three index rasters.
type Set struct {
	NDVI *raster.Band
	NDBI *raster.Band
	BSI  *raster.Band
}

// NormalizedDifference returns (a - b) / (a + b). A zero denominator is
// reported as invalid rather than zero.
func NormalizedDifference(a, b float64) (float64, bool) {
	den := a + b
	if den == 0 {
		return 0, false
	}
	return (a - b) / den, true
}

// BareSoil returns ((red + swir1) - (nir + blue)) / ((red + swir1) + (nir + blue)).
func BareSoil(blue, red, nir, swir1 float64) (float64, bool) {
	return NormalizedDifference(red+swir1, nir+blue)
}

// Compute derives NDVI, NDBI and BSI from img.
//
//	NDVI = ND(NIR, Red)
//	NDBI = ND(SWIR1, NIR)
//	BSI  = ND(Red + SWIR1, NIR + Blue)
//
// Invalid inputs and zero denominators give invalid output pixels.
func Compute(img *raster.Image, names Bands) (*Set, error) {
	get := func(name string) (*raster.Band, error) {
		b, err := img.Band(name)
		if err != nil {
			return nil, fmt.Errorf("failed to compute indices: %w", err)
		}
		return b, nil
	}
	blue, err := get(names.Blue)
	if err != nil {
		return nil, err
	}
	red, err := get(names.Red)
	if err != nil {
		return nil, err
	}
	nir, err := get(names.NIR)
	if err != nil {
		return nil, err
	}
	swir1, err := get(names.SWIR1)
	if err != nil {
		return nil, err
	}

	ndvi, err := raster.Combine(NDVI, func(v []float64) (float64, bool) {
		return NormalizedDifference(v[0], v[1])
	}, nir, red)
	if err != nil {
		return nil, err
	}
	ndbi, err := raster.Combine(NDBI, func(v []float64) (float64, bool) {
		return NormalizedDifference(v[0], v[1])
	}, swir1, nir)
	if err != nil {
		return nil, err
	}
	bsi, err := raster.Combine(BSI, func(v []float64) (float64, bool) {
		return BareSoil(v[0], v[1], v[2], v[3])
	}, blue, red, nir, swir1)
	if err != nil {
		return nil, err
	}

	return &Set{NDVI: ndvi, NDBI: ndbi, BSI: bsi}, nil
}
