package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/ironsheep/minesite-mcp/internal/detection"
	"github.com/ironsheep/minesite-mcp/internal/export"
	"github.com/ironsheep/minesite-mcp/internal/raster"
	"github.com/ironsheep/minesite-mcp/internal/render"
	"github.com/ironsheep/minesite-mcp/internal/scene"
	"github.com/ironsheep/minesite-mcp/internal/terrain"
)

// StageReference names the quarry annotation step in warnings.
const StageReference = "reference"

// ErrExportDisabled is returned when no exporter is configured.
var ErrExportDisabled = errors.New("export is not configured")

// DetectResponse summarises a detection run.
type DetectResponse struct {
	RunID      string                      `json:"run_id"`
	Features   detection.FeatureCollection `json:"features"`
	Count      int                         `json:"count"`
	Candidates int                         `json:"candidates"`
	TotalArea  float64                     `json:"total_area"`
	Annotated  int                         `json:"annotated"`
	Rim        float64                     `json:"rim"`
	Floor      float64                     `json:"floor"`
	Scenes     []scene.Info                `json:"scenes"`
	Warnings   []detection.Warning         `json:"warnings,omitempty"`
	Elapsed    string                      `json:"elapsed"`
}

// Detect runs the full pipeline and stores the result for preview and
// export.
func (s *Service) Detect(ctx context.Context, req DetectRequest) (*DetectResponse, error) {
	roi, err := parseROI(req.ROI)
	if err != nil {
		return nil, err
	}
	p, err := req.Params(s.opts.Defaults)
	if err != nil {
		return nil, err
	}

	res, err := s.detector.Detect(ctx, detection.Request{ROI: roi, Params: p})
	if err != nil {
		return nil, err
	}

	annotated := 0
	wantAnnotate := req.Annotate == nil || *req.Annotate
	if s.opts.Annotator != nil && wantAnnotate && res.Features.Len() > 0 {
		switch {
		case !res.VectorGrid.Geographic:
			res.Warnings = append(res.Warnings, detection.Warning{
				Stage:   StageReference,
				Message: "quarry lookup skipped: features are not in geographic coordinates",
			})
		default:
			fc, n, err := s.opts.Annotator.Annotate(ctx, roi.Bound(), res.Features)
			if err != nil {
				s.log.Warn().Err(err).Msg("quarry annotation failed")
				res.Warnings = append(res.Warnings, detection.Warning{Stage: StageReference, Message: err.Error()})
			} else {
				res.Features = fc
				annotated = n
			}
		}
	}

	run := s.store(res)
	s.log.Info().
		Str("run", run.ID).
		Int("features", res.Features.Len()).
		Int("annotated", annotated).
		Msg("detection stored")

	scenes := res.Scenes
	if scenes == nil {
		scenes = []scene.Info{}
	}
	return &DetectResponse{
		RunID:      run.ID,
		Features:   res.Features,
		Count:      res.Features.Len(),
		Candidates: res.Candidates,
		TotalArea:  res.Features.TotalArea(),
		Annotated:  annotated,
		Rim:        res.Rim,
		Floor:      res.Floor,
		Scenes:     scenes,
		Warnings:   res.Warnings,
		Elapsed:    res.Elapsed,
	}, nil
}

// Preview renders the cleaned and final masks of a stored run.
func (s *Service) Preview(req PreviewRequest) (*render.PreviewResult, error) {
	run, err := s.Run(req.RunID)
	if err != nil {
		return nil, err
	}
	opts := render.DefaultOptions()
	if req.MaxSize > 0 {
		opts.MaxSize = req.MaxSize
	}
	return render.Preview(run.Result.Cleaned, run.Result.Final, opts)
}

// TerrainStats summarises elevation, slope and depth over a region.
type TerrainStats struct {
	Rim         float64     `json:"rim"`
	Floor       float64     `json:"floor"`
	Relief      float64     `json:"relief"`
	MaxSlope    float64     `json:"max_slope"`
	MeanSlope   float64     `json:"mean_slope"`
	MaxDepth    float64     `json:"max_depth"`
	ValidPixels int         `json:"valid_pixels"`
	Samples     int         `json:"samples"`
	Truncated   bool        `json:"truncated"`
	Grid        raster.Grid `json:"grid"`
}

// TerrainStats runs the terrain analyzer on its own.
func (s *Service) TerrainStats(ctx context.Context, req TerrainRequest) (*TerrainStats, error) {
	roi, err := parseROI(req.ROI)
	if err != nil {
		return nil, err
	}
	p := s.opts.Defaults
	analyzer := terrain.NewAnalyzer(s.opts.DEM, raster.ReduceOptions{
		Scale:      p.Reduce.Scale,
		MaxPixels:  p.Reduce.MaxPixels,
		BestEffort: p.Reduce.BestEffort,
	}, s.log)
	res, err := analyzer.Analyze(ctx, roi)
	if err != nil {
		return nil, err
	}

	out := &TerrainStats{
		Rim:       res.Rim,
		Floor:     res.Floor,
		Relief:    res.Rim - res.Floor,
		Samples:   res.Samples,
		Truncated: res.Truncated,
		Grid:      res.Elevation.Grid,
	}
	var sum float64
	for i := 0; i < res.Slope.Grid.Len(); i++ {
		v, ok := res.Slope.Value(i)
		if !ok {
			continue
		}
		out.ValidPixels++
		sum += v
		out.MaxSlope = math.Max(out.MaxSlope, v)
		if d, ok := res.Depth.Value(i); ok {
			out.MaxDepth = math.Max(out.MaxDepth, d)
		}
	}
	if out.ValidPixels > 0 {
		out.MeanSlope = sum / float64(out.ValidPixels)
	}
	return out, nil
}

// ListScenes returns the archive scenes matching the window.
func (s *Service) ListScenes(ctx context.Context, w Window) ([]scene.Info, error) {
	roi, err := parseROI(w.ROI)
	if err != nil {
		return nil, err
	}
	p, err := w.apply(s.opts.Defaults)
	if err != nil {
		return nil, err
	}
	if err := p.ValidateScenes(); err != nil {
		return nil, err
	}
	infos, err := s.opts.Archive.List(ctx, scene.Query{
		Collection:    s.opts.Product.Collection,
		ROI:           roi,
		Start:         p.Start,
		End:           p.End,
		MaxCloudCover: p.MaxCloudCover,
	})
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []scene.Info{}
	}
	return infos, nil
}

// Export submits a stored run or inline features to the exporter.
func (s *Service) Export(req ExportRequest) (export.JobHandle, error) {
	if s.opts.Exporter == nil {
		return export.JobHandle{}, ErrExportDisabled
	}

	var fc detection.FeatureCollection
	switch {
	case req.Features != nil:
		fc = *req.Features
	case req.RunID != "":
		run, err := s.Run(req.RunID)
		if err != nil {
			return export.JobHandle{}, err
		}
		fc = run.Result.Features
	default:
		return export.JobHandle{}, fmt.Errorf("%w: run_id or features is required", export.ErrInvalidDestination)
	}

	dest := export.Destination{
		Format:      req.Format,
		Path:        req.Path,
		Table:       req.Table,
		Description: req.Description,
		SRID:        req.SRID,
	}.WithDefaults()
	switch dest.Format {
	case export.FormatGeoJSON:
		if dest.Path == "" {
			dest.Path = filepath.Join(s.opts.OutputDir, dest.Description+".geojson")
		}
	case export.FormatSQLite:
		if dest.Path == "" {
			dest.Path = filepath.Join(s.opts.OutputDir, "minesite.db")
		}
	case export.FormatPostGIS:
		dest.DSN = s.opts.PostGISDSN
	}
	return s.opts.Exporter.Submit(fc, dest)
}

// ExportStatus reports an export job.
func (s *Service) ExportStatus(id string) (export.JobStatus, error) {
	if s.opts.Exporter == nil {
		return export.JobStatus{}, ErrExportDisabled
	}
	return s.opts.Exporter.Status(id)
}
