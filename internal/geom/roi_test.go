package geom

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func TestRectROI(t *testing.T) {
	roi, err := RectROI(0, 0, 300, 300)
	if err != nil {
		t.Fatalf("RectROI failed: %v", err)
	}
	if roi.IsZero() {
		t.Fatal("region should not be zero")
	}

	b := roi.Bound()
	if b.Min != (orb.Point{0, 0}) || b.Max != (orb.Point{300, 300}) {
		t.Errorf("bound: got %v, want [0 0]-[300 300]", b)
	}
}

func TestRectROI_Degenerate(t *testing.T) {
	if _, err := RectROI(10, 0, 10, 5); !errors.Is(err, ErrEmptyGeometry) {
		t.Errorf("expected ErrEmptyGeometry, got %v", err)
	}
}

func TestNewROI_Invalid(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
		want error
	}{
		{"nil geometry", nil, ErrEmptyGeometry},
		{"empty multipolygon", orb.MultiPolygon{}, ErrEmptyGeometry},
		{"point", orb.Point{1, 2}, ErrUnsupportedGeometry},
		{"short ring", orb.Polygon{{{0, 0}, {1, 0}, {0, 0}}}, ErrInvalidRing},
		{"open ring", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}, ErrInvalidRing},
		{"zero area", orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}, ErrEmptyGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewROI(tt.geom)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestROI_Contains(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}
	roi, err := NewROI(poly)
	if err != nil {
		t.Fatalf("NewROI failed: %v", err)
	}

	tests := []struct {
		p    orb.Point
		want bool
	}{
		{orb.Point{1, 1}, true},
		{orb.Point{5, 5}, false}, // inside the hole
		{orb.Point{11, 5}, false},
		{orb.Point{9.5, 9.5}, true},
	}
	for _, tt := range tests {
		if got := roi.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v): got %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestROI_GeometryIsCopy(t *testing.T) {
	roi, _ := RectROI(0, 0, 1, 1)
	g := roi.Geometry()
	g[0][0][0] = orb.Point{-50, -50}

	if roi.Geometry()[0][0][0] == (orb.Point{-50, -50}) {
		t.Error("mutating the returned geometry changed the region")
	}
}

func TestParseROI(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			"geometry",
			`{"type":"Polygon","coordinates":[[[128.1,-3.7],[128.2,-3.7],[128.2,-3.6],[128.1,-3.6],[128.1,-3.7]]]}`,
		},
		{
			"feature",
			`{"type":"Feature","properties":{"lease":"A"},"geometry":{"type":"Polygon","coordinates":[[[128.1,-3.7],[128.2,-3.7],[128.2,-3.6],[128.1,-3.6],[128.1,-3.7]]]}}`,
		},
		{
			"feature collection",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[128.1,-3.7],[128.2,-3.7],[128.2,-3.6],[128.1,-3.6],[128.1,-3.7]]]}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roi, err := ParseROI([]byte(tt.json))
			if err != nil {
				t.Fatalf("ParseROI failed: %v", err)
			}
			if !roi.Contains(orb.Point{128.15, -3.65}) {
				t.Error("expected centre point inside region")
			}
		})
	}
}

func TestParseROI_Errors(t *testing.T) {
	if _, err := ParseROI([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed input")
	}
	if _, err := ParseROI([]byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`)); !errors.Is(err, ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
	if _, err := ParseROI([]byte(`{"type":"FeatureCollection","features":[]}`)); !errors.Is(err, ErrEmptyGeometry) {
		t.Errorf("expected ErrEmptyGeometry, got %v", err)
	}
}
