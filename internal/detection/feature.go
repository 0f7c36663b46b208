package detection

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature property names.
const (
	PropArea   = "area"
	PropLabel  = "label"
	PropPixels = "pixels"
)

// Feature is a polygon with attributes.
type Feature struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// MarshalJSON encodes the feature as a GeoJSON Feature.
func (f Feature) MarshalJSON() ([]byte, error) {
	gf := geojson.NewFeature(f.Geometry)
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return json.Marshal(gf)
}

// Area returns the feature's area attribute.
func (f Feature) Area() (float64, bool) {
	switch v := f.Properties[PropArea].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// FeatureCollection is an ordered set of features.
type FeatureCollection struct {
	Features []Feature `json:"features"`
}

// Len returns the number of features.
func (fc FeatureCollection) Len() int {
	return len(fc.Features)
}

// TotalArea sums the area attribute of every feature.
func (fc FeatureCollection) TotalArea() float64 {
	var total float64
	for _, f := range fc.Features {
		if a, ok := f.Area(); ok {
			total += a
		}
	}
	return total
}

// Filter returns the features for which keep is true, in order.
func (fc FeatureCollection) Filter(keep func(Feature) bool) FeatureCollection {
	out := FeatureCollection{Features: make([]Feature, 0, len(fc.Features))}
	for _, f := range fc.Features {
		if keep(f) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// GeoJSON converts the collection to an orb GeoJSON feature collection.
func (fc FeatureCollection) GeoJSON() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		gf := geojson.NewFeature(f.Geometry)
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		out.Append(gf)
	}
	return out
}

// MarshalJSON encodes the collection as GeoJSON.
func (fc FeatureCollection) MarshalJSON() ([]byte, error) {
	return json.Marshal(fc.GeoJSON())
}

// UnmarshalJSON decodes a GeoJSON FeatureCollection.
func (fc *FeatureCollection) UnmarshalJSON(data []byte) error {
	gfc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("failed to parse feature collection: %w", err)
	}
	*fc = FromGeoJSON(gfc)
	return nil
}

// FromGeoJSON converts an orb GeoJSON feature collection.
func FromGeoJSON(gfc *geojson.FeatureCollection) FeatureCollection {
	out := FeatureCollection{Features: make([]Feature, 0, len(gfc.Features))}
	for _, gf := range gfc.Features {
		props := make(map[string]any, len(gf.Properties))
		for k, v := range gf.Properties {
			props[k] = v
		}
		out.Features = append(out.Features, Feature{Geometry: gf.Geometry, Properties: props})
	}
	return out
}
