package geom

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrEmptyGeometry is returned when a region of interest has no polygons
	// or encloses no area.
	ErrEmptyGeometry = errors.New("empty geometry")

	// ErrInvalidRing is returned for rings that are not closed or have fewer
	// than four positions.
	ErrInvalidRing = errors.New("invalid ring")

	// ErrUnsupportedGeometry is returned when the input is not polygonal.
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// ROI is an immutable polygonal region of interest.
//
// The zero value is an empty region; use NewROI or ParseROI to build one.
// Every accessor returns a copy so callers can never mutate the stored shape.
type ROI struct {
	shape orb.MultiPolygon
	bound orb.Bound
}

// NewROI validates a Polygon or MultiPolygon and wraps it as a region.
//
// Rings must be closed and have at least four positions. The polygon's
// outer rings must enclose a non-zero area.
func NewROI(g orb.Geometry) (ROI, error) {
	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		mp = v
	case orb.Bound:
		mp = orb.MultiPolygon{v.ToPolygon()}
	case nil:
		return ROI{}, ErrEmptyGeometry
	default:
		return ROI{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}

	if len(mp) == 0 {
		return ROI{}, ErrEmptyGeometry
	}
	for i, poly := range mp {
		if len(poly) == 0 {
			return ROI{}, fmt.Errorf("polygon %d: %w", i, ErrEmptyGeometry)
		}
		for j, ring := range poly {
			if len(ring) < 4 {
				return ROI{}, fmt.Errorf("polygon %d ring %d has %d positions: %w", i, j, len(ring), ErrInvalidRing)
			}
			if !ring.Closed() {
				return ROI{}, fmt.Errorf("polygon %d ring %d is not closed: %w", i, j, ErrInvalidRing)
			}
		}
	}
	if planar.Area(mp) <= 0 {
		return ROI{}, ErrEmptyGeometry
	}

	clone := mp.Clone()
	return ROI{shape: clone, bound: clone.Bound()}, nil
}

// RectROI builds a rectangular region from its corner coordinates.
func RectROI(minX, minY, maxX, maxY float64) (ROI, error) {
	if minX >= maxX || minY >= maxY {
		return ROI{}, ErrEmptyGeometry
	}
	b := orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
	return NewROI(b.ToPolygon())
}

// ParseROI decodes a GeoJSON geometry, Feature or FeatureCollection.
//
// A FeatureCollection is merged into a single MultiPolygon, which mirrors
// how a lease made of several parcels is treated as one boundary.
func ParseROI(data []byte) (ROI, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ROI{}, fmt.Errorf("failed to parse region: %w", err)
	}

	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return ROI{}, fmt.Errorf("failed to parse feature collection: %w", err)
		}
		var mp orb.MultiPolygon
		for _, f := range fc.Features {
			switch g := f.Geometry.(type) {
			case orb.Polygon:
				mp = append(mp, g)
			case orb.MultiPolygon:
				mp = append(mp, g...)
			case nil:
				continue
			default:
				return ROI{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
			}
		}
		return NewROI(mp)
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return ROI{}, fmt.Errorf("failed to parse feature: %w", err)
		}
		return NewROI(f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return ROI{}, fmt.Errorf("failed to parse geometry: %w", err)
		}
		return NewROI(g.Geometry())
	}
}

// IsZero reports whether the region was never initialized.
func (r ROI) IsZero() bool {
	return len(r.shape) == 0
}

// Geometry returns a copy of the region's MultiPolygon.
func (r ROI) Geometry() orb.MultiPolygon {
	return r.shape.Clone()
}

// Bound returns the region's bounding box.
func (r ROI) Bound() orb.Bound {
	return r.bound
}

// Contains reports whether p lies inside the region (holes excluded).
func (r ROI) Contains(p orb.Point) bool {
	if !r.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(r.shape, p)
}

// MarshalJSON encodes the region as a GeoJSON geometry.
func (r ROI) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(r.shape))
}
