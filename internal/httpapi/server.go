// Package httpapi exposes the detection service over a small JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/detection"
	"github.com/ironsheep/minesite-mcp/internal/export"
	"github.com/ironsheep/minesite-mcp/internal/raster"
	"github.com/ironsheep/minesite-mcp/internal/scene"
	"github.com/ironsheep/minesite-mcp/internal/service"
	"github.com/ironsheep/minesite-mcp/internal/terrain"
)

// maxBodyBytes caps request bodies. Regions of interest are small polygons;
// feature collections posted for export can be larger.
const maxBodyBytes = 32 << 20

// Server serves the HTTP API.
type Server struct {
	addr    string
	svc     *service.Service
	version string
	log     zerolog.Logger
	server  *http.Server
}

// NewServer creates an API server listening on addr.
func NewServer(addr string, svc *service.Service, version string, log zerolog.Logger) *Server {
	return &Server{
		addr:    addr,
		svc:     svc,
		version: version,
		log:     log.With().Str("component", "http").Logger(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	s.setupRoutes(r)
	return r
}

func (s *Server) setupRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/detect", s.handleDetect).Methods("POST")
	v1.HandleFunc("/runs/{id}/preview", s.handlePreview).Methods("GET")
	v1.HandleFunc("/terrain", s.handleTerrain).Methods("POST")
	v1.HandleFunc("/scenes", s.handleScenes).Methods("POST")
	v1.HandleFunc("/exports", s.handleExport).Methods("POST")
	v1.HandleFunc("/exports/{id}", s.handleExportStatus).Methods("GET")
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctxShutdown); err != nil {
			s.log.Warn().Err(err).Msg("shutdown incomplete")
		}
	}()

	s.log.Info().Str("addr", s.addr).Msg("listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, detection.ErrInvalidROI),
		errors.Is(err, detection.ErrInvalidDateRange),
		errors.Is(err, detection.ErrInvalidParams),
		errors.Is(err, export.ErrInvalidDestination),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, export.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, scene.ErrNoImagery),
		errors.Is(err, terrain.ErrNoCoverage),
		errors.Is(err, raster.ErrNoData),
		errors.Is(err, raster.ErrTooManyPixels):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrExportDisabled),
		errors.Is(err, export.ErrQueueFull),
		errors.Is(err, export.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func errBadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
