package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// TaxonomyHandler serves the category and tag listings
type TaxonomyHandler struct {
	docs   *service.DocumentService
	logger *slog.Logger
}

// NewTaxonomyHandler creates a new taxonomy handler
func NewTaxonomyHandler(docs *service.DocumentService, logger *slog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{docs: docs, logger: logger}
}

// ListCategories returns distinct categories with document counts
// GET /api/v1/categories
func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	categories, err := h.docs.ListCategories(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if categories == nil {
		categories = []repositories.TagCount{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": categories})
}

// ListTags returns distinct tags with document counts
// GET /api/v1/tags
func (h *TaxonomyHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	tags, err := h.docs.ListTags(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if tags == nil {
		tags = []repositories.TagCount{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": tags})
}
