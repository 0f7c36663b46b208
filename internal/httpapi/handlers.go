package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ironsheep/minesite-mcp/internal/service"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req service.DetectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.svc.Detect(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req := service.PreviewRequest{RunID: mux.Vars(r)["id"]}
	if v := r.URL.Query().Get("max_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, errBadRequestf("max_size %q is not a non-negative integer", v))
			return
		}
		req.MaxSize = n
	}
	res, err := s.svc.Preview(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTerrain(w http.ResponseWriter, r *http.Request) {
	var req service.TerrainRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.svc.TerrainStats(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type scenesResponse struct {
	Count  int         `json:"count"`
	Scenes interface{} `json:"scenes"`
}

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	var req service.Window
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	infos, err := s.svc.ListScenes(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenesResponse{Count: len(infos), Scenes: infos})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req service.ExportRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	handle, err := s.svc.Export(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/exports/"+handle.ID)
	writeJSON(w, http.StatusAccepted, handle)
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.ExportStatus(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
