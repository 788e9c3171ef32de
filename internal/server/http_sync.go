package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleSyncStatus handles GET /v1/sync/status.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.sync.State(r.Context()))
}

// handleSyncPull handles POST /v1/sync/pull. Pull failures are absorbed by
// the coordinator; the response reports whether a remote document arrived.
func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}
	pulled := s.sync.PullIfAuthenticated(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"pulled": pulled != nil,
		"state":  s.sync.State(r.Context()),
	})
}

// handleSyncOnline handles POST /v1/sync/online.
func (s *Server) handleSyncOnline(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}
	var in struct {
		Online *bool `json:"online"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Online == nil {
		writeError(w, http.StatusBadRequest, "online is required")
		return
	}
	s.sync.SetOnline(r.Context(), *in.Online)
	writeJSON(w, http.StatusOK, s.sync.State(r.Context()))
}

// handleListOverlays handles GET /v1/overlays.
func (s *Server) handleListOverlays(w http.ResponseWriter, _ *http.Request) {
	if s.overlays == nil {
		writeError(w, http.StatusServiceUnavailable, "overlays not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.overlays.Tracked())
}

// handleToggleOverlay handles POST /v1/overlays/{tab}/toggle.
func (s *Server) handleToggleOverlay(w http.ResponseWriter, r *http.Request) {
	if s.overlays == nil {
		writeError(w, http.StatusServiceUnavailable, "overlays not configured")
		return
	}
	tab, err := strconv.ParseInt(chi.URLParam(r, "tab"), 10, 64)
	if err != nil || tab < 0 {
		writeError(w, http.StatusBadRequest, "tab must be a non-negative integer")
		return
	}
	visible, err := s.overlays.Toggle(r.Context(), tab)
	if err != nil {
		s.logger.Error("toggle overlay failed", "tab", tab, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabId": tab, "visible": visible})
}

// handleListSurfaces handles GET /v1/surfaces.
func (s *Server) handleListSurfaces(w http.ResponseWriter, _ *http.Request) {
	if s.surfaces == nil {
		writeError(w, http.StatusServiceUnavailable, "surfaces not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.surfaces.Roster())
}
