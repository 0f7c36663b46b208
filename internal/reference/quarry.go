// Package reference annotates detected disturbances with known quarries from
// OpenStreetMap.
//
// Quarries are ways tagged landuse=quarry, fetched from an Overpass API
// endpoint for the bounding box of the region being analysed. A detected
// polygon that overlaps a quarry outline gets the quarry's OSM id and name
// as properties, which separates licensed pits from new disturbance.
package reference

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"
)

// Property names added to matching features.
const (
	PropQuarryID   = "osm_quarry_id"
	PropQuarryName = "osm_quarry_name"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Quarry is one mapped quarry outline in lon/lat.
type Quarry struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name,omitempty"`
	Ring  orb.Ring  `json:"-"`
	Bound orb.Bound `json:"-"`
}

// Source looks up quarries intersecting a lon/lat bounding box.
type Source interface {
	Quarries(ctx context.Context, bound orb.Bound) ([]Quarry, error)
}

// OverpassSource queries an Overpass API endpoint.
type OverpassSource struct {
	client  *overpass.Client
	timeout time.Duration
}

// NewOverpassSource creates a source for endpoint. Requests are limited to
// two in flight and each is bounded by timeout.
func NewOverpassSource(endpoint string, timeout time.Duration) *OverpassSource {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassSource{
		client:  &client,
		timeout: timeout,
	}
}

// Quarries returns the landuse=quarry ways inside bound, ordered by id.
func (s *OverpassSource) Quarries(ctx context.Context, bound orb.Bound) ([]Quarry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.client.Query(QuarryQuery(bound))
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	var quarries []Quarry
	for _, way := range result.Ways {
		if way == nil {
			continue
		}
		ring := make(orb.Ring, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			ring = append(ring, orb.Point{node.Lon, node.Lat})
		}
		if q, ok := newQuarry(way.ID, way.Tags, ring); ok {
			quarries = append(quarries, q)
		}
	}
	sort.Slice(quarries, func(i, j int) bool { return quarries[i].ID < quarries[j].ID })
	return quarries, nil
}

// QuarryQuery builds the Overpass QL for quarry ways in bound. Overpass
// expects the box as south,west,north,east.
func QuarryQuery(bound orb.Bound) string {
	bbox := strconv.FormatFloat(bound.Min.Lat(), 'f', 6, 64) + "," +
		strconv.FormatFloat(bound.Min.Lon(), 'f', 6, 64) + "," +
		strconv.FormatFloat(bound.Max.Lat(), 'f', 6, 64) + "," +
		strconv.FormatFloat(bound.Max.Lon(), 'f', 6, 64)
	return fmt.Sprintf(`
		[out:json];
		(
			way["landuse"="quarry"](%s);
		);
		out body;
		>;
		out skel qt;
	`, bbox)
}

func newQuarry(id int64, tags map[string]string, ring orb.Ring) (Quarry, bool) {
	if len(ring) < 3 {
		return Quarry{}, false
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return Quarry{
		ID:    id,
		Name:  tags["name"],
		Ring:  ring,
		Bound: ring.Bound(),
	}, true
}
