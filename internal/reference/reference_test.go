package reference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

type fakeSource struct {
	quarries []Quarry
	err      error
	bounds   []orb.Bound
}

func (f *fakeSource) Quarries(ctx context.Context, bound orb.Bound) ([]Quarry, error) {
	f.bounds = append(f.bounds, bound)
	return f.quarries, f.err
}

func box(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func quarry(t *testing.T, id int64, name string, ring orb.Ring) Quarry {
	t.Helper()
	q, ok := newQuarry(id, map[string]string{"name": name, "landuse": "quarry"}, ring)
	if !ok {
		t.Fatalf("quarry %d rejected", id)
	}
	return q
}

func feature(ring orb.Ring) detection.Feature {
	return detection.Feature{
		Geometry:   orb.Polygon{ring},
		Properties: map[string]any{detection.PropArea: 1.0},
	}
}

func TestQuarryQuery(t *testing.T) {
	q := QuarryQuery(orb.Bound{Min: orb.Point{127.5, 0.25}, Max: orb.Point{128, 0.75}})
	if !strings.Contains(q, `way["landuse"="quarry"](0.250000,127.500000,0.750000,128.000000)`) {
		t.Errorf("bbox not in south,west,north,east order:\n%s", q)
	}
	if !strings.Contains(q, "out skel qt;") {
		t.Error("query does not recurse to way nodes")
	}
}

func TestNewQuarry(t *testing.T) {
	open := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	q, ok := newQuarry(7, map[string]string{"name": "Pit 7"}, open)
	if !ok {
		t.Fatal("open ring rejected")
	}
	if !q.Ring.Closed() {
		t.Error("ring was not closed")
	}
	if q.Name != "Pit 7" || q.Bound.Max != (orb.Point{1, 1}) {
		t.Errorf("quarry = %+v", q)
	}

	if _, ok := newQuarry(8, nil, orb.Ring{{0, 0}, {1, 1}}); ok {
		t.Error("two-node way accepted")
	}
}

func TestMatch(t *testing.T) {
	quarries := []Quarry{
		quarry(t, 1, "North Pit", box(0, 0, 10, 10)),
		quarry(t, 2, "", box(100, 100, 110, 110)),
	}
	fc := detection.FeatureCollection{Features: []detection.Feature{
		feature(box(5, 5, 20, 20)),     // corner inside quarry 1
		feature(box(50, 50, 60, 60)),   // no quarry
		feature(box(90, 90, 120, 120)), // contains quarry 2
		feature(box(-5, 2, 15, 8)),     // crosses quarry 1 without shared vertices
		feature(box(10.5, 0, 11, 10)),  // bounds disjoint
	}}

	out, matched := Match(fc, quarries)
	if matched != 3 {
		t.Errorf("matched = %d, want 3", matched)
	}

	wantIDs := []any{int64(1), nil, int64(2), int64(1), nil}
	for i, want := range wantIDs {
		got := out.Features[i].Properties[PropQuarryID]
		if got != want {
			t.Errorf("feature %d quarry id = %v, want %v", i, got, want)
		}
	}
	if name := out.Features[0].Properties[PropQuarryName]; name != "North Pit" {
		t.Errorf("feature 0 name = %v", name)
	}
	if _, ok := out.Features[2].Properties[PropQuarryName]; ok {
		t.Error("unnamed quarry produced a name property")
	}
	if _, ok := fc.Features[0].Properties[PropQuarryID]; ok {
		t.Error("Match modified its input")
	}
}

func TestAnnotator(t *testing.T) {
	src := &fakeSource{quarries: []Quarry{quarry(t, 3, "South Pit", box(0, 0, 10, 10))}}
	a := NewAnnotator(src, zerolog.Nop())
	bound := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{20, 20}}

	fc := detection.FeatureCollection{Features: []detection.Feature{feature(box(1, 1, 2, 2))}}
	out, matched, err := a.Annotate(context.Background(), bound, fc)
	if err != nil {
		t.Fatal(err)
	}
	if matched != 1 || out.Features[0].Properties[PropQuarryID] != int64(3) {
		t.Errorf("Annotate matched %d: %+v", matched, out.Features[0].Properties)
	}
	if len(src.bounds) != 1 || src.bounds[0] != bound {
		t.Errorf("source queried with %v", src.bounds)
	}

	if _, _, err := a.Annotate(context.Background(), bound, detection.FeatureCollection{}); err != nil {
		t.Errorf("empty collection: %v", err)
	}
	if len(src.bounds) != 1 {
		t.Error("empty collection triggered a lookup")
	}

	src.err = errors.New("overpass down")
	if _, _, err := a.Annotate(context.Background(), bound, fc); !errors.Is(err, src.err) {
		t.Errorf("Annotate() = %v, want wrapped source error", err)
	}
}
