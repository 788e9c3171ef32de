package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alfredjeanlab/quickreply/internal/model"
)

// maxBodyBytes bounds request bodies, including imported catalogs.
const maxBodyBytes = 8 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health and CORS
// preflights) must include a valid Authorization: Bearer <token> header.
// An empty corsOrigins allows any origin.
func (s *Server) NewHTTPHandler(authToken string, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(func(next http.Handler) http.Handler { return AuthMiddleware(authToken, next) })

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/catalog", s.handleGetCatalog)
		r.Post("/categories", s.handleAddCategory)
		r.Patch("/categories/{id}", s.handleRenameCategory)
		r.Put("/categories/{id}", s.handleUpsertCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)
		r.Post("/categories/{id}/templates", s.handleAddTemplate)
		r.Patch("/categories/{id}/templates/{tid}", s.handleUpdateTemplate)
		r.Put("/categories/{id}/templates/{tid}", s.handleUpsertTemplate)
		r.Delete("/categories/{id}/templates/{tid}", s.handleDeleteTemplate)
		r.Post("/templates/{tid}/move", s.handleMoveTemplate)
		r.Get("/search", s.handleSearch)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/sync/pull", s.handleSyncPull)
		r.Post("/sync/online", s.handleSyncOnline)

		r.Get("/overlays", s.handleListOverlays)
		r.Post("/overlays/{tab}/toggle", s.handleToggleOverlay)
		r.Get("/surfaces", s.handleListSurfaces)

		r.Get("/ws", s.handleWebsocket)
	})
	return r
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebsocket handles GET /v1/ws.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.ws == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket surface not enabled")
		return
	}
	s.ws.ServeHTTP(w, r)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// fieldErrorJSON is the wire form of a model.FieldError.
type fieldErrorJSON struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// writeCatalogError maps catalog errors to status codes: validation
// failures are 400, everything else (storage included) is 500.
func (s *Server) writeCatalogError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		fields := make([]fieldErrorJSON, len(ve.Errors))
		for i, fe := range ve.Errors {
			fields[i] = fieldErrorJSON{Field: fe.Field, Message: fe.Message}
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error(), "fields": fields})
		return
	}
	if model.IsStorage(err) {
		s.logger.Error("catalog storage failed", "err", err)
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
