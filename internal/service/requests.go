package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ironsheep/minesite-mcp/internal/detection"
	"github.com/ironsheep/minesite-mcp/internal/export"
	"github.com/ironsheep/minesite-mcp/internal/geom"
)

// Window selects a region and an acquisition window. Empty fields fall
// back to the service defaults.
type Window struct {
	// ROI is a GeoJSON Polygon, MultiPolygon, Feature or FeatureCollection.
	ROI json.RawMessage `json:"roi"`

	Start         string   `json:"start,omitempty"` // YYYY-MM-DD
	End           string   `json:"end,omitempty"`   // YYYY-MM-DD
	MaxCloudCover *float64 `json:"max_cloud_cover,omitempty"`
}

// DetectRequest runs the detector over a region.
type DetectRequest struct {
	Window

	// Thresholds is decoded over the default thresholds, so omitted
	// fields keep their defaults.
	Thresholds   json.RawMessage `json:"thresholds,omitempty"`
	KernelRadius *float64        `json:"kernel_radius,omitempty"`
	MinArea      *float64        `json:"min_area,omitempty"`
	Scale        *float64        `json:"scale,omitempty"`
	BestEffort   *bool           `json:"best_effort,omitempty"`

	// Annotate matches features against mapped quarries when an annotator
	// is configured. Defaults to true.
	Annotate *bool `json:"annotate,omitempty"`
}

// PreviewRequest renders a stored run.
type PreviewRequest struct {
	RunID   string `json:"run_id"`
	MaxSize int    `json:"max_size,omitempty"`
}

// TerrainRequest computes terrain statistics for a region.
type TerrainRequest struct {
	ROI json.RawMessage `json:"roi"`
}

// ExportRequest exports a stored run or an inline collection.
type ExportRequest struct {
	RunID    string                       `json:"run_id,omitempty"`
	Features *detection.FeatureCollection `json:"features,omitempty"`

	Format      export.Format `json:"format"`
	Path        string        `json:"path,omitempty"`
	Table       string        `json:"table,omitempty"`
	Description string        `json:"description,omitempty"`
	SRID        int           `json:"srid,omitempty"`
}

func parseROI(raw json.RawMessage) (geom.ROI, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return geom.ROI{}, fmt.Errorf("%w: roi is required", detection.ErrInvalidROI)
	}
	roi, err := geom.ParseROI(raw)
	if err != nil {
		return geom.ROI{}, fmt.Errorf("%w: %v", detection.ErrInvalidROI, err)
	}
	return roi, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not YYYY-MM-DD", detection.ErrInvalidDateRange, field, value)
	}
	return t, nil
}

// apply overlays the window on p.
func (w Window) apply(p detection.Params) (detection.Params, error) {
	if w.Start != "" {
		t, err := parseDate("start", w.Start)
		if err != nil {
			return p, err
		}
		p.Start = t
	}
	if w.End != "" {
		t, err := parseDate("end", w.End)
		if err != nil {
			return p, err
		}
		p.End = t
	}
	if w.MaxCloudCover != nil {
		p.MaxCloudCover = *w.MaxCloudCover
	}
	return p, nil
}

// Params overlays the request on defaults.
func (r DetectRequest) Params(defaults detection.Params) (detection.Params, error) {
	p, err := r.Window.apply(defaults)
	if err != nil {
		return p, err
	}
	if len(r.Thresholds) > 0 && string(r.Thresholds) != "null" {
		t := p.Thresholds
		if err := json.Unmarshal(r.Thresholds, &t); err != nil {
			return p, fmt.Errorf("%w: thresholds: %v", detection.ErrInvalidParams, err)
		}
		p.Thresholds = t
	}
	if r.KernelRadius != nil {
		p.Kernel.Radius = *r.KernelRadius
	}
	if r.MinArea != nil {
		p.MinArea = *r.MinArea
	}
	if r.Scale != nil {
		p.Vectorize.Scale = *r.Scale
	}
	if r.BestEffort != nil {
		p.Reduce.BestEffort = *r.BestEffort
		p.Vectorize.BestEffort = *r.BestEffort
	}
	return p, nil
}
