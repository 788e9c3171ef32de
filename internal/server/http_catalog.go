package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alfredjeanlab/quickreply/internal/model"
)

// handleGetCatalog handles GET /v1/catalog.
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := s.catalog.Load(r.Context())
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type categoryNameInput struct {
	Name string `json:"name"`
}

// handleAddCategory handles POST /v1/categories.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryNameInput
	if !decodeBody(w, r, &in) {
		return
	}
	cat, err := s.catalog.AddCategory(r.Context(), in.Name)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// handleRenameCategory handles PATCH /v1/categories/{id}.
func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryNameInput
	if !decodeBody(w, r, &in) {
		return
	}
	cat, err := s.catalog.RenameCategory(r.Context(), chi.URLParam(r, "id"), in.Name)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// handleUpsertCategory handles PUT /v1/categories/{id}.
func (s *Server) handleUpsertCategory(w http.ResponseWriter, r *http.Request) {
	var in model.Category
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "id")
	cat, err := s.catalog.UpsertCategory(r.Context(), &in)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// handleDeleteCategory handles DELETE /v1/categories/{id}. Deleting a
// missing category is not an error.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// handleAddTemplate handles POST /v1/categories/{id}/templates.
func (s *Server) handleAddTemplate(w http.ResponseWriter, r *http.Request) {
	var in model.TemplateInput
	if !decodeBody(w, r, &in) {
		return
	}
	t, err := s.catalog.AddTemplate(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleUpdateTemplate handles PATCH /v1/categories/{id}/templates/{tid}.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var patch model.TemplatePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	t, err := s.catalog.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tid"), patch)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpsertTemplate handles PUT /v1/categories/{id}/templates/{tid}.
func (s *Server) handleUpsertTemplate(w http.ResponseWriter, r *http.Request) {
	var in model.Template
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "tid")
	t, err := s.catalog.UpsertTemplate(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTemplate handles DELETE /v1/categories/{id}/templates/{tid}.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.catalog.DeleteTemplate(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tid"))
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// handleMoveTemplate handles POST /v1/templates/{tid}/move.
func (s *Server) handleMoveTemplate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CategoryID string `json:"categoryId"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "categoryId is required")
		return
	}
	t, err := s.catalog.MoveTemplate(r.Context(), chi.URLParam(r, "tid"), in.CategoryID)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "template or category not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleSearch handles GET /v1/search?q=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	matches, err := s.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// handleExport handles GET /v1/export.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.catalog.Export(r.Context())
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="quickreply-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport handles POST /v1/import. The body is an exported catalog.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	c, err := s.catalog.Import(r.Context(), blob)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
