// Package servicetest builds a Service over a small synthetic mine site for
// transport tests.
package servicetest

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/detection"
	"github.com/ironsheep/minesite-mcp/internal/export"
	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/indices"
	"github.com/ironsheep/minesite-mcp/internal/raster"
	"github.com/ironsheep/minesite-mcp/internal/scene"
	"github.com/ironsheep/minesite-mcp/internal/service"
	"github.com/ironsheep/minesite-mcp/internal/terrain"
)

// SceneID is the identifier of the single fixture scene.
const SceneID = "LC08_118062_20220510"

// Pit is the excavated block as half-open pixel bounds {col0, row0, col1, row1}.
var Pit = [4]int{3, 3, 7, 7}

// PitArea is the area of the pit after a 60 m dilation: 8 x 8 pixels of 30 m.
const PitArea = 57600.0

// Grid is a 10 x 10 lon/lat grid of 30 m pixels just south of the equator.
func Grid() raster.Grid {
	deg := 30 / geom.MetersPerDegree
	return raster.Grid{
		OriginX:     127.5,
		OriginY:     0,
		PixelWidth:  deg,
		PixelHeight: -deg,
		Width:       10,
		Height:      10,
		Geographic:  true,
	}
}

func inPit(col, row int) bool {
	return col >= Pit[0] && col < Pit[2] && row >= Pit[1] && row < Pit[3]
}

// PitBound is the lon/lat bound of the undilated pit.
func PitBound() orb.Bound {
	g := Grid()
	return g.Corner(float64(Pit[0]), float64(Pit[1])).Bound().Union(
		g.Corner(float64(Pit[2]), float64(Pit[3])).Bound())
}

// ROI returns the fixture grid extent as a GeoJSON Polygon.
func ROI(t testing.TB) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(geojson.NewGeometry(Grid().Bound().ToPolygon()))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func fill(name string, g raster.Grid, in, out float64) *raster.Band {
	b := raster.NewBand(name, g)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if inPit(col, row) {
				b.Set(col, row, in)
			} else {
				b.Set(col, row, out)
			}
		}
	}
	return b
}

// Scene is a cloud-free Landsat 8 scene in which the pit is bare ground and
// the rest dense vegetation.
func Scene(t testing.TB) *scene.Scene {
	t.Helper()
	g := Grid()
	p := scene.Landsat8
	dn := func(refl float64) float64 { return math.Round((refl - p.Offset) / p.Scale) }

	values := map[string][2]float64{
		scene.BandBlue:  {0.10, 0.05},
		scene.BandGreen: {0.15, 0.08},
		scene.BandRed:   {0.25, 0.05},
		scene.BandNIR:   {0.20, 0.50},
		scene.BandSWIR1: {0.30, 0.20},
		scene.BandSWIR2: {0.25, 0.10},
	}
	var bands []*raster.Band
	for _, name := range p.Bands {
		v := values[name]
		bands = append(bands, fill(name, g, dn(v[0]), dn(v[1])))
	}
	bands = append(bands, fill(scene.BandQA, g, 21824, 21824))

	img, err := raster.NewImage(g, bands...)
	if err != nil {
		t.Fatal(err)
	}
	return &scene.Scene{
		Info: scene.Info{
			ID:         SceneID,
			Collection: p.Collection,
			Acquired:   time.Date(2022, 5, 10, 2, 30, 0, 0, time.UTC),
			CloudCover: 12,
			Grid:       g,
		},
		Image: img,
	}
}

// DEM is flat at 200 m with the pit cut as a ramp rising 30 m per column.
func DEM() terrain.Source {
	g := Grid()
	b := raster.NewBand("elevation", g)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := 200.0
			if inPit(col, row) {
				v = float64(col-Pit[0]) * 30
			}
			b.Set(col, row, v)
		}
	}
	return terrain.MemorySource{Band: b}
}

// Params are the default parameters with exact elevation percentiles.
func Params() detection.Params {
	p := detection.DefaultParams()
	p.Reduce.Scale = 0
	return p
}

// Options returns service options over the fixture with a running exporter
// writing under a temporary directory.
func Options(t testing.TB) service.Options {
	t.Helper()
	exp := export.NewExporter(nil, export.DefaultSinks(), 1, 8, zerolog.Nop())
	t.Cleanup(exp.Close)
	return service.Options{
		Archive:   scene.NewMemoryArchive(Scene(t)),
		Product:   scene.Landsat8,
		DEM:       DEM(),
		Bands:     indices.DefaultBands,
		Exporter:  exp,
		Defaults:  Params(),
		OutputDir: t.TempDir(),
	}
}

// New returns a service over the fixture. modify may adjust the options.
func New(t testing.TB, modify ...func(*service.Options)) *service.Service {
	t.Helper()
	opts := Options(t)
	for _, m := range modify {
		m(&opts)
	}
	return service.New(opts, zerolog.Nop())
}
