package detection

import (
	"fmt"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// Layers are the per-pixel inputs of the criteria mask. All five bands must
// share one grid.
type Layers struct {
	NDVI  *raster.Band
	BSI   *raster.Band
	NDBI  *raster.Band
	Slope *raster.Band
	Depth *raster.Band
}

func (l Layers) bands() ([]*raster.Band, error) {
	bands := []*raster.Band{l.NDVI, l.BSI, l.NDBI, l.Slope, l.Depth}
	for i, b := range bands {
		if b == nil {
			return nil, fmt.Errorf("%w: layer %d is missing", ErrInvalidParams, i)
		}
	}
	return bands, nil
}

// CriteriaMask sets every pixel where all five criteria hold:
//
//	NDVI < NDVIMax, BSI > BSIMin, NDBI > NDBIMin, slope > SlopeMin, depth > DepthMin
//
// The comparison is a strict conjunction with no weighting. A pixel that is
// invalid in any layer is excluded, the same as failing a criterion.
func CriteriaMask(l Layers, th Thresholds) (*raster.Mask, error) {
	bands, err := l.bands()
	if err != nil {
		return nil, err
	}
	mask, err := raster.Where(func(v []float64) bool {
		return v[0] < th.NDVIMax &&
			v[1] > th.BSIMin &&
			v[2] > th.NDBIMin &&
			v[3] > th.SlopeMin &&
			v[4] > th.DepthMin
	}, bands...)
	if err != nil {
		return nil, fmt.Errorf("failed to build criteria mask: %w", err)
	}
	return mask, nil
}
