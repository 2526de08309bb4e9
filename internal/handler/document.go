package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docs     *service.DocumentService
	idem     *service.IdempotencyService
	settings repositories.SettingsRepository
	logger   *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	docs *service.DocumentService,
	idem *service.IdempotencyService,
	settings repositories.SettingsRepository,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{docs: docs, idem: idem, settings: settings, logger: logger}
}

// ListDocuments lists documents with filters and pagination
// GET /api/v1/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := &repositories.DocumentFilter{
		Tag:       q.Get("tag"),
		Project:   q.Get("project"),
		Category:  q.Get("category"),
		Query:     q.Get("q"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Page:      httputil.QueryInt(r, "page", 1),
		PageSize:  httputil.QueryInt(r, "page_size", 20),
	}
	if q.Has("folder_id") {
		folderID := q.Get("folder_id")
		filter.FolderID = &folderID // "" filters the root level
	}

	docs, total, err := h.docs.ListDocuments(r.Context(), actor, filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	httputil.RespondJSON(w, http.StatusOK, httputil.ListEnvelope{
		Data: docs,
		Pagination: httputil.Pagination{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Total:    total,
		},
	})
}

// CreateDocument creates a document from a JSON body
// POST /api/v1/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	guarded(w, r, h.idem, jsonOp(http.StatusCreated, func(ctx context.Context) (any, error) {
		return h.docs.CreateDocument(ctx, actor, &req)
	}))
}

// UploadDocument creates a document from a multipart file upload
// POST /api/v1/documents/upload
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	maxBytes := int64(httputil.MaxJSONBody)
	if settings, err := h.settings.Get(r.Context()); err == nil {
		maxBytes = settings.MaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid multipart form", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "missing file field", "upload the markdown file under the \"file\" form field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "failed to read uploaded file", "")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(path.Base(header.Filename), path.Ext(header.Filename))
	}

	req := service.CreateDocumentRequest{
		Title:       title,
		Content:     string(content),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        splitTags(r.FormValue("tags")),
		Project:     r.FormValue("project"),
		Visibility:  models.Visibility(r.FormValue("visibility")),
	}
	if folderID := r.FormValue("folder_id"); folderID != "" {
		req.FolderID = &folderID
	}

	guarded(w, r, h.idem, jsonOp(http.StatusCreated, func(ctx context.Context) (any, error) {
		return h.docs.CreateDocument(ctx, actor, &req)
	}))
}

// GetDocument retrieves a document; the ETag is the content checksum
// GET /api/v1/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	doc, err := h.docs.GetDocument(r.Context(), actor, r.PathValue("id"),
		httputil.QueryBool(r, "include_raw"),
		httputil.QueryBool(r, "include_rendered"),
	)
	if err != nil {
		handleError(w, r, err)
		return
	}

	etag := fmt.Sprintf("%q", doc.Checksum)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument applies a partial update; new content appends a version
// PUT /api/v1/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	id := r.PathValue("id")
	guarded(w, r, h.idem, jsonOp(http.StatusOK, func(ctx context.Context) (any, error) {
		return h.docs.UpdateDocument(ctx, actor, id, &req)
	}))
}

// DeleteDocument soft-deletes a document
// DELETE /api/v1/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.docs.DeleteDocument(r.Context(), actor, r.PathValue("id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

type batchMoveRequest struct {
	IDs      []string `json:"ids"`
	FolderID *string  `json:"folder_id"` // nil or "" = root
}

// BatchDelete soft-deletes documents with per-item outcomes
// POST /api/v1/documents/batch-delete
func (h *DocumentHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req batchDeleteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil || len(req.IDs) == 0 {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "ids must be a non-empty array", "")
		return
	}

	results, err := h.docs.BatchDelete(r.Context(), actor, req.IDs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// BatchMove relocates documents with per-item outcomes
// POST /api/v1/documents/batch-move
func (h *DocumentHandler) BatchMove(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req batchMoveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil || len(req.IDs) == 0 {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "ids must be a non-empty array", "")
		return
	}

	results, err := h.docs.BatchMove(r.Context(), actor, req.IDs, req.FolderID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ListVersions returns a document's version chain
// GET /api/v1/documents/{id}/versions
func (h *DocumentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	versions, err := h.docs.ListVersions(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"data": versions})
}

// GetVersion returns one version with its content
// GET /api/v1/documents/{id}/versions/{number}
func (h *DocumentHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || n < 1 {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "version number must be a positive integer", "")
		return
	}

	version, err := h.docs.GetVersion(r.Context(), actor, r.PathValue("id"), n)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, version)
}

type rollbackRequest struct {
	TargetVersion int    `json:"target_version"`
	ChangeNote    string `json:"change_note,omitempty"`
}

// Rollback appends a new version with a prior version's content
// POST /api/v1/documents/{id}/rollback
func (h *DocumentHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req rollbackRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	id := r.PathValue("id")
	guarded(w, r, h.idem, jsonOp(http.StatusOK, func(ctx context.Context) (any, error) {
		return h.docs.Rollback(ctx, actor, id, req.TargetVersion, req.ChangeNote)
	}))
}

// Chunks returns token-budgeted, heading-tagged segments of the current
// content
// GET /api/v1/documents/{id}/chunks
func (h *DocumentHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	set, err := h.docs.Chunks(r.Context(), actor, r.PathValue("id"), httputil.QueryInt(r, "max_tokens", 0))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, set)
}

// HealthCheck responds with server status
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
