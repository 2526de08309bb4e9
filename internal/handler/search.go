package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// SearchHandler handles full-text search requests
type SearchHandler struct {
	docs   *service.DocumentService
	logger *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(docs *service.DocumentService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{docs: docs, logger: logger}
}

// Search returns documents ranked by match quality with snippets
// GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	results, err := h.docs.Search(r.Context(), actor, query)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if results == nil {
		results = []service.SearchResult{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"data":  results,
		"total": len(results),
	})
}
