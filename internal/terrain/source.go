package terrain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// ErrNoCoverage is returned when the elevation source has no valid pixel
// inside the region.
var ErrNoCoverage = errors.New("no elevation coverage over region")

// Source provides elevation rasters.
type Source interface {
	// Elevation returns elevation in metres clipped to roi. Pixels whose
	// centre lies outside roi are invalid.
	Elevation(ctx context.Context, roi geom.ROI) (*raster.Band, error)
}

// MemorySource serves a fixed elevation band.
type MemorySource struct {
	Band *raster.Band
}

func (s MemorySource) Elevation(ctx context.Context, roi geom.ROI) (*raster.Band, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clipCoverage(s.Band, roi)
}

// Sidecar is the JSON file stored next to a DEM TIFF describing its grid and
// how digital numbers map to metres.
type Sidecar struct {
	Grid   raster.Grid `json:"grid"`
	Scale  float64     `json:"scale"`
	Offset float64     `json:"offset"`
	NoData *uint16     `json:"nodata,omitempty"`
}

// FileSource reads a 16-bit DEM TIFF with a Sidecar at Path + ".json".
type FileSource struct {
	Path string
}

func (s FileSource) Elevation(ctx context.Context, roi geom.ROI) (*raster.Band, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read DEM sidecar: %w", err)
	}
	var meta Sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse DEM sidecar: %w", err)
	}
	if err := meta.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("DEM sidecar: %w", err)
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DEM: %w", err)
	}
	defer f.Close()

	band, err := raster.ReadTIFFBand(f, "elevation", meta.Grid, raster.TIFFOptions{
		Scale:  meta.Scale,
		Offset: meta.Offset,
		NoData: meta.NoData,
	})
	if err != nil {
		return nil, err
	}
	return clipCoverage(band, roi)
}

// clipCoverage crops band to the pixel window of roi, invalidates pixels
// outside roi and fails when nothing valid remains.
func clipCoverage(band *raster.Band, roi geom.ROI) (*raster.Band, error) {
	if band == nil {
		return nil, ErrNoCoverage
	}
	var out *raster.Band
	switch {
	case roi.IsZero():
		out = band.Clone("elevation")
	case !band.Grid.Bound().Intersects(roi.Bound()):
		return nil, ErrNoCoverage
	default:
		// One pixel of margin keeps slope neighbours at the region edge.
		window := band.Grid.Crop(roi, 1)
		if window.Len() == 0 {
			return nil, ErrNoCoverage
		}
		out = band.Resample(window).Clip(roi)
		out.Name = "elevation"
	}
	if out.ValidCount() == 0 {
		return nil, ErrNoCoverage
	}
	return out, nil
}
