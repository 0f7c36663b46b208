// Package service is the transport-neutral facade over the detector, the
// terrain analyzer, the scene archive and the exporter. The MCP server and
// the HTTP API both call it.
package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/detection"
	"github.com/ironsheep/minesite-mcp/internal/export"
	"github.com/ironsheep/minesite-mcp/internal/indices"
	"github.com/ironsheep/minesite-mcp/internal/reference"
	"github.com/ironsheep/minesite-mcp/internal/scene"
	"github.com/ironsheep/minesite-mcp/internal/terrain"
)

// maxRuns bounds how many detection results are kept for preview and export.
const maxRuns = 32

// ErrRunNotFound is returned for unknown or evicted run IDs.
var ErrRunNotFound = errors.New("detection run not found")

// Options wires a Service.
type Options struct {
	Archive  scene.Archive
	Product  scene.Product
	DEM      terrain.Source
	Bands    indices.Bands
	Exporter *export.Exporter

	// Annotator is optional; without it features are not matched to mapped
	// quarries.
	Annotator *reference.Annotator

	// Defaults are the parameters requests start from.
	Defaults detection.Params

	// OutputDir receives file exports that name no path.
	OutputDir string

	// PostGISDSN is used for postgis exports.
	PostGISDSN string
}

// Run is a stored detection result.
type Run struct {
	ID      string
	Created time.Time
	Result  *detection.Result
}

// Service implements every operation exposed by the transports.
type Service struct {
	opts     Options
	detector *detection.Detector
	log      zerolog.Logger

	mu    sync.Mutex
	runs  map[string]*Run
	order []string
}

// New creates a service.
func New(opts Options, log zerolog.Logger) *Service {
	if opts.Bands == (indices.Bands{}) {
		opts.Bands = indices.DefaultBands
	}
	return &Service{
		opts:     opts,
		detector: detection.NewDetector(opts.Archive, opts.Product, opts.DEM, opts.Bands, log),
		log:      log.With().Str("component", "service").Logger(),
		runs:     make(map[string]*Run),
	}
}

// Defaults returns the parameters requests start from.
func (s *Service) Defaults() detection.Params {
	return s.opts.Defaults
}

func (s *Service) store(res *detection.Result) *Run {
	run := &Run{ID: uuid.NewString(), Created: time.Now().UTC(), Result: res}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	for len(s.order) > maxRuns {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	return run
}

// Run returns a stored detection result.
func (s *Service) Run(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// Close stops the exporter, finishing queued jobs.
func (s *Service) Close() {
	if s.opts.Exporter != nil {
		s.opts.Exporter.Close()
	}
}
