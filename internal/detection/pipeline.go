package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/indices"
	"github.com/ironsheep/minesite-mcp/internal/raster"
	"github.com/ironsheep/minesite-mcp/internal/scene"
	"github.com/ironsheep/minesite-mcp/internal/terrain"
)

// Pipeline stage names used in warnings and logs.
const (
	StageComposite = "composite"
	StageTerrain   = "terrain"
	StageIndices   = "indices"
	StageCriteria  = "criteria"
	StageDilate    = "dilate"
	StageVectorize = "vectorize"
	StageFinal     = "final"
)

// Detector runs the disturbance detection pipeline.
type Detector struct {
	archive scene.Archive
	product scene.Product
	terrain terrain.Source
	bands   indices.Bands
	log     zerolog.Logger
}

// NewDetector creates a detector over the given imagery and terrain sources.
func NewDetector(archive scene.Archive, product scene.Product, dem terrain.Source, bands indices.Bands, log zerolog.Logger) *Detector {
	return &Detector{
		archive: archive,
		product: product,
		terrain: dem,
		bands:   bands,
		log:     log.With().Str("component", "detection").Logger(),
	}
}

// Request is one detection run.
type Request struct {
	ROI    geom.ROI
	Params Params
}

// Result is the outcome of a detection run.
type Result struct {
	// Features are the polygons that passed the area filter.
	Features FeatureCollection `json:"features"`

	// Candidates counts polygons before the area filter.
	Candidates int `json:"candidates"`

	// Grid is the analysis grid of the masks below; VectorGrid the grid the
	// polygons were traced and burned on.
	Grid       raster.Grid `json:"grid"`
	VectorGrid raster.Grid `json:"vector_grid"`

	Criteria *raster.Mask `json:"-"`
	Cleaned  *raster.Mask `json:"-"`
	Final    *raster.Mask `json:"-"`

	// Rim and Floor are the elevation reference percentiles.
	Rim   float64 `json:"rim"`
	Floor float64 `json:"floor"`

	Scenes   []scene.Info `json:"scenes,omitempty"`
	Warnings []Warning    `json:"warnings,omitempty"`
	Elapsed  string       `json:"elapsed"`
}

// Detect runs every stage for req.
//
// # Stages
//
//  1. Composite: cloud-masked median of the matching scenes.
//  2. Terrain: slope and depth below the 95th percentile rim.
//  3. Indices: NDVI, NDBI and BSI of the composite.
//  4. Criteria: strict conjunction of the five thresholds.
//  5. Dilate: one focal-max pass.
//  6. Vectorize: polygons in the region, area filter, burned back to a mask.
//
// Input errors are returned before any data is read. Any stage error aborts
// the run; approximate results from best-effort limits become warnings, as
// does a final mask that disagrees with the kept polygons.
func (d *Detector) Detect(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.ROI.IsZero() {
		return nil, fmt.Errorf("%w: region is empty", ErrInvalidROI)
	}
	if err := req.Params.ValidateScenes(); err != nil {
		return nil, err
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	p := req.Params

	pre := scene.NewPreprocessor(d.archive, d.product, d.log)
	comp, err := pre.Composite(ctx, scene.Query{
		Collection:    d.product.Collection,
		ROI:           req.ROI,
		Start:         p.Start,
		End:           p.End,
		MaxCloudCover: p.MaxCloudCover,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageComposite, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analyzer := terrain.NewAnalyzer(d.terrain, raster.ReduceOptions{
		Scale:      p.Reduce.Scale,
		MaxPixels:  p.Reduce.MaxPixels,
		BestEffort: p.Reduce.BestEffort,
	}, d.log)
	topo, err := analyzer.Analyze(ctx, req.ROI)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageTerrain, err)
	}
	var warnings []Warning
	if topo.Truncated {
		warnings = append(warnings, Warning{
			Stage:   StageTerrain,
			Message: fmt.Sprintf("elevation percentiles sampled from %d pixels under the pixel budget", topo.Samples),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := indices.Compute(comp.Image, d.bands)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageIndices, err)
	}

	grid := comp.Image.Grid
	layers := Layers{
		NDVI:  idx.NDVI,
		BSI:   idx.BSI,
		NDBI:  idx.NDBI,
		Slope: topo.Slope.Resample(grid),
		Depth: topo.Depth.Resample(grid),
	}

	res, err := d.DetectFromLayers(ctx, req.ROI, layers, p)
	if err != nil {
		return nil, err
	}
	res.Rim = topo.Rim
	res.Floor = topo.Floor
	res.Scenes = comp.Scenes
	res.Warnings = append(warnings, res.Warnings...)
	res.Elapsed = time.Since(start).Round(time.Millisecond).String()

	d.log.Info().
		Int("scenes", len(comp.Scenes)).
		Int("features", res.Features.Len()).
		Float64("rim", res.Rim).
		Str("elapsed", res.Elapsed).
		Msg("detection complete")
	return res, nil
}

// DetectFromLayers runs the stages after index and terrain computation on
// precomputed layers that share one grid.
func (d *Detector) DetectFromLayers(ctx context.Context, roi geom.ROI, layers Layers, p Params) (*Result, error) {
	start := time.Now()
	if roi.IsZero() {
		return nil, fmt.Errorf("%w: region is empty", ErrInvalidROI)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	criteria, err := CriteriaMask(layers, p.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageCriteria, err)
	}
	d.log.Debug().Int("pixels", criteria.Count()).Msg("criteria mask")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned, err := raster.Dilate(criteria, p.Kernel, p.Iterations)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageDilate, err)
	}
	d.log.Debug().Int("pixels", cleaned.Count()).Msg("dilated mask")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	polys, err := Vectorize(cleaned, roi, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageVectorize, err)
	}
	var warnings []Warning
	if polys.Truncated {
		warnings = append(warnings, Warning{
			Stage: StageVectorize,
			Message: fmt.Sprintf("vectorized at %.0f m instead of %.0f m to stay under %d pixels",
				polys.Scale, p.Vectorize.Scale, p.Vectorize.MaxPixels),
		})
	}

	kept := FilterMinArea(polys.Features, p.MinArea)
	final, err := FinalRaster(kept, polys.Grid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageFinal, err)
	}
	if w := agreementWarning(kept, final); w != nil {
		d.log.Warn().Str("stage", w.Stage).Msg(w.Message)
		warnings = append(warnings, *w)
	}

	d.log.Debug().
		Int("candidates", polys.Features.Len()).
		Int("kept", kept.Len()).
		Float64("min_area", p.MinArea).
		Msg("area filter")

	return &Result{
		Features:   kept,
		Candidates: polys.Features.Len(),
		Grid:       criteria.Grid,
		VectorGrid: polys.Grid,
		Criteria:   criteria,
		Cleaned:    cleaned,
		Final:      final,
		Warnings:   warnings,
		Elapsed:    time.Since(start).Round(time.Millisecond).String(),
	}, nil
}
