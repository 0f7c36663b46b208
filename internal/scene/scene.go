package scene

import (
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/ironsheep/minesite-mcp/internal/geom"
	"github.com/ironsheep/minesite-mcp/internal/raster"
)

var (
	// ErrNoImagery is returned when no usable observation remains for the
	// region after filtering and masking.
	ErrNoImagery = errors.New("no usable imagery")

	// ErrSceneNotFound is returned by Load for unknown scene IDs.
	ErrSceneNotFound = errors.New("scene not found")
)

// Info is the catalogue entry of one acquisition.
type Info struct {
	ID         string      `json:"id"`
	Collection string      `json:"collection"`
	Acquired   time.Time   `json:"acquired"`
	CloudCover float64     `json:"cloud_cover"`
	Grid       raster.Grid `json:"grid"`
}

// Footprint returns the extent covered by the scene.
func (i Info) Footprint() orb.Bound {
	return i.Grid.Bound()
}

// Scene is an acquisition with its raw bands, including the quality band.
type Scene struct {
	Info
	Image *raster.Image
}

// Query selects acquisitions from an archive.
type Query struct {
	Collection string
	ROI        geom.ROI

	// Start is inclusive, End exclusive.
	Start time.Time
	End   time.Time

	// MaxCloudCover is the scene-level cloud percentage ceiling, inclusive.
	MaxCloudCover float64
}

// Matches reports whether info passes every filter of the query.
func (q Query) Matches(info Info) bool {
	if q.Collection != "" && info.Collection != q.Collection {
		return false
	}
	if info.Acquired.Before(q.Start) || !info.Acquired.Before(q.End) {
		return false
	}
	if info.CloudCover > q.MaxCloudCover {
		return false
	}
	if !q.ROI.IsZero() && !info.Footprint().Intersects(q.ROI.Bound()) {
		return false
	}
	return true
}
