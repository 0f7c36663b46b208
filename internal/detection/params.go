package detection

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

var (
	// ErrInvalidROI is returned for a missing or malformed region of interest.
	ErrInvalidROI = errors.New("invalid region of interest")

	// ErrInvalidDateRange is returned when the start date is not before the
	// end date.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidParams is returned for out-of-range pipeline parameters.
	ErrInvalidParams = errors.New("invalid parameters")
)

// Thresholds are the per-pixel criteria a candidate pixel must all pass.
type Thresholds struct {
	// NDVIMax: vegetation index must be strictly below.
	NDVIMax float64 `json:"ndvi_max"`

	// BSIMin: bare-soil index must be strictly above.
	BSIMin float64 `json:"bsi_min"`

	// NDBIMin: built-up index must be strictly above.
	NDBIMin float64 `json:"ndbi_min"`

	// SlopeMin: slope in degrees must be strictly above.
	SlopeMin float64 `json:"slope_min"`

	// DepthMin: depth below the rim must be strictly above.
	DepthMin float64 `json:"depth_min"`
}

// DefaultThresholds returns the reference criteria.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NDVIMax:  0.4,
		BSIMin:   0.0,
		NDBIMin:  -0.1,
		SlopeMin: 10,
		DepthMin: 20,
	}
}

// Limits bounds the cost of a reduction or vectorization.
type Limits struct {
	Scale      float64 `json:"scale"`
	MaxPixels  int     `json:"max_pixels"`
	BestEffort bool    `json:"best_effort"`
}

// Params configures one detection run.
type Params struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	MaxCloudCover float64   `json:"max_cloud_cover"`

	Thresholds Thresholds `json:"thresholds"`

	// Kernel and Iterations drive the dilation pass.
	Kernel     raster.Kernel `json:"kernel"`
	Iterations int           `json:"iterations"`

	// Reduce bounds the elevation percentile reduction.
	Reduce Limits `json:"reduce"`

	// Vectorize bounds mask-to-polygon conversion; Scale is the vectorization
	// pixel size in metres.
	Vectorize      Limits `json:"vectorize"`
	EightConnected bool   `json:"eight_connected"`

	// MaxError is the simplification tolerance in metres for polygon areas.
	MaxError float64 `json:"max_error"`

	// MinArea is the smallest polygon area kept, in square metres.
	MinArea float64 `json:"min_area"`
}

// DefaultParams returns the reference configuration: Landsat 8 scenes from
// 2021 to 2023 at or below 30% cloud, a 60 m square dilation, 30 m
// vectorization and a 5000 m² minimum area.
func DefaultParams() Params {
	return Params{
		Start:         time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxCloudCover: 30,
		Thresholds:    DefaultThresholds(),
		Kernel: raster.Kernel{
			Shape:  raster.KernelSquare,
			Radius: 60,
			Units:  raster.UnitsMeters,
		},
		Iterations:     1,
		Reduce:         Limits{Scale: 90, MaxPixels: 10_000_000, BestEffort: true},
		Vectorize:      Limits{Scale: 30, MaxPixels: 10_000_000, BestEffort: true},
		EightConnected: true,
		MaxError:       1,
		MinArea:        5000,
	}
}

// Validate checks every parameter used after compositing.
func (p Params) Validate() error {
	finite := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidParams, name, v)
		}
		return nil
	}
	nonNegative := func(name string, v float64) error {
		if err := finite(name, v); err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidParams, name)
		}
		return nil
	}

	th := p.Thresholds
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"ndvi_max", th.NDVIMax},
		{"bsi_min", th.BSIMin},
		{"ndbi_min", th.NDBIMin},
		{"slope_min", th.SlopeMin},
		{"depth_min", th.DepthMin},
	} {
		if err := finite(c.name, c.v); err != nil {
			return err
		}
	}

	for _, c := range []struct {
		name string
		v    float64
	}{
		{"kernel radius", p.Kernel.Radius},
		{"min_area", p.MinArea},
		{"max_error", p.MaxError},
		{"reduce scale", p.Reduce.Scale},
		{"vectorize scale", p.Vectorize.Scale},
	} {
		if err := nonNegative(c.name, c.v); err != nil {
			return err
		}
	}
	if p.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative", ErrInvalidParams)
	}
	if p.Reduce.MaxPixels < 0 || p.Vectorize.MaxPixels < 0 {
		return fmt.Errorf("%w: max_pixels must not be negative", ErrInvalidParams)
	}
	if err := p.Kernel.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// ValidateScenes checks the archive filter: the date range and cloud ceiling.
func (p Params) ValidateScenes() error {
	if p.Start.IsZero() || p.End.IsZero() || !p.Start.Before(p.End) {
		return fmt.Errorf("%w: start %s must be before end %s",
			ErrInvalidDateRange, p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
	}
	if math.IsNaN(p.MaxCloudCover) || p.MaxCloudCover < 0 || p.MaxCloudCover > 100 {
		return fmt.Errorf("%w: max_cloud_cover %v outside [0, 100]", ErrInvalidParams, p.MaxCloudCover)
	}
	return nil
}

// Warning reports a stage that completed on an approximate result.
type Warning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}
