package reference

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

// Annotator tags detected features that overlap mapped quarries.
type Annotator struct {
	source Source
	log    zerolog.Logger
}

// NewAnnotator creates an annotator backed by source.
func NewAnnotator(source Source, log zerolog.Logger) *Annotator {
	return &Annotator{
		source: source,
		log:    log.With().Str("component", "reference").Logger(),
	}
}

// Annotate looks up quarries in bound and returns a copy of fc with matching
// features tagged, plus the number of features that matched.
func (a *Annotator) Annotate(ctx context.Context, bound orb.Bound, fc detection.FeatureCollection) (detection.FeatureCollection, int, error) {
	if fc.Len() == 0 {
		return fc, 0, nil
	}
	quarries, err := a.source.Quarries(ctx, bound)
	if err != nil {
		return fc, 0, fmt.Errorf("failed to look up quarries: %w", err)
	}
	out, matched := Match(fc, quarries)
	a.log.Debug().
		Int("quarries", len(quarries)).
		Int("matched", matched).
		Msg("reference annotation")
	return out, matched, nil
}

// Match tags each feature with the first quarry (by id order) it overlaps.
// The input collection is not modified.
func Match(fc detection.FeatureCollection, quarries []Quarry) (detection.FeatureCollection, int) {
	out := detection.FeatureCollection{Features: make([]detection.Feature, 0, fc.Len())}
	matched := 0
	for _, f := range fc.Features {
		props := make(map[string]any, len(f.Properties)+2)
		for k, v := range f.Properties {
			props[k] = v
		}
		for _, q := range quarries {
			if overlaps(f.Geometry, q) {
				props[PropQuarryID] = q.ID
				if q.Name != "" {
					props[PropQuarryName] = q.Name
				}
				matched++
				break
			}
		}
		out.Features = append(out.Features, detection.Feature{Geometry: f.Geometry, Properties: props})
	}
	return out, matched
}

// overlaps reports whether a polygonal geometry and a quarry outline share
// any area: one contains a vertex of the other or their edges cross.
func overlaps(g orb.Geometry, q Quarry) bool {
	if g == nil || !g.Bound().Intersects(q.Bound) {
		return false
	}
	var polys orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return false
	}
	quarry := orb.Polygon{q.Ring}

	for _, poly := range polys {
		if len(poly) == 0 {
			continue
		}
		for _, p := range poly[0] {
			if planar.PolygonContains(quarry, p) {
				return true
			}
		}
		for _, p := range q.Ring {
			if planar.PolygonContains(poly, p) {
				return true
			}
		}
		if ringsCross(poly[0], q.Ring) {
			return true
		}
	}
	return false
}

func ringsCross(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsCross(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// cross is the z component of (b-a) x (c-a).
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
