package export

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

// Format selects a sink.
type Format string

// Supported export formats.
const (
	FormatGeoJSON Format = "geojson"
	FormatSQLite  Format = "sqlite"
	FormatPostGIS Format = "postgis"
)

// Default destination names.
const (
	DefaultDescription = "DEM_mining_detection_dilated"
	DefaultTable       = "mining_detection"
	DefaultSRID        = 4326
)

var (
	// ErrUnknownFormat is returned for formats without a registered sink.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrInvalidDestination is returned when a destination is missing a
	// required field.
	ErrInvalidDestination = errors.New("invalid export destination")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Destination describes where an export is written.
type Destination struct {
	Format Format `json:"format"`

	// Description names the export and is stored with every feature.
	Description string `json:"description,omitempty"`

	// Path is the output file for geojson and sqlite.
	Path string `json:"path,omitempty"`

	// DSN is the PostgreSQL connection string for postgis.
	DSN string `json:"-"`

	// Table is the feature table for sqlite and postgis.
	Table string `json:"table,omitempty"`

	// SRID tags PostGIS geometries.
	SRID int `json:"srid,omitempty"`
}

// WithDefaults fills empty optional fields.
func (d Destination) WithDefaults() Destination {
	if d.Description == "" {
		d.Description = DefaultDescription
	}
	if d.Table == "" {
		d.Table = DefaultTable
	}
	if d.SRID == 0 {
		d.SRID = DefaultSRID
	}
	return d
}

// Validate checks the fields the destination's format needs.
func (d Destination) Validate() error {
	switch d.Format {
	case FormatGeoJSON:
		if d.Path == "" {
			return fmt.Errorf("%w: geojson export needs a path", ErrInvalidDestination)
		}
	case FormatSQLite:
		if d.Path == "" {
			return fmt.Errorf("%w: sqlite export needs a path", ErrInvalidDestination)
		}
		if !identPattern.MatchString(d.Table) {
			return fmt.Errorf("%w: bad table name %q", ErrInvalidDestination, d.Table)
		}
	case FormatPostGIS:
		if d.DSN == "" {
			return fmt.Errorf("%w: postgis export needs a dsn", ErrInvalidDestination)
		}
		if !identPattern.MatchString(d.Table) {
			return fmt.Errorf("%w: bad table name %q", ErrInvalidDestination, d.Table)
		}
		if d.SRID <= 0 {
			return fmt.Errorf("%w: srid must be positive", ErrInvalidDestination)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, d.Format)
	}
	return nil
}

// Sink writes a feature collection to a destination.
type Sink interface {
	Write(ctx context.Context, fc detection.FeatureCollection, dest Destination) error
}

// DefaultSinks returns one sink per supported format.
func DefaultSinks() map[Format]Sink {
	return map[Format]Sink{
		FormatGeoJSON: GeoJSONSink{},
		FormatSQLite:  SQLiteSink{},
		FormatPostGIS: &PostGISSink{},
	}
}
