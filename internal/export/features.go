package export

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

// row is one feature flattened for a SQL table.
type row struct {
	Area       float64
	Geometry   string
	Properties string
	Bound      orb.Bound
}

func featureRows(fc detection.FeatureCollection) ([]row, error) {
	rows := make([]row, 0, fc.Len())
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d has no geometry", i)
		}
		geom, err := json.Marshal(geojson.NewGeometry(f.Geometry))
		if err != nil {
			return nil, fmt.Errorf("failed to encode feature %d geometry: %w", i, err)
		}
		props, err := json.Marshal(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("failed to encode feature %d properties: %w", i, err)
		}
		area, _ := f.Area()
		rows = append(rows, row{
			Area:       area,
			Geometry:   string(geom),
			Properties: string(props),
			Bound:      f.Geometry.Bound(),
		})
	}
	return rows, nil
}
