package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folders *service.FolderService
	logger  *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folders *service.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, logger: logger}
}

// ListFolders returns every folder with computed paths
// GET /api/v1/folders
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	folders, err := h.folders.ListFolders(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"data": folders})
}

// CreateFolder creates a folder
// POST /api/v1/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	folder, err := h.folders.CreateFolder(r.Context(), actor, &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder with its computed path
// GET /api/v1/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	folder, err := h.folders.GetFolder(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// UpdateFolder renames and/or reparents a folder, cascading to document
// locations
// PUT /api/v1/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	folder, err := h.folders.UpdateFolder(r.Context(), actor, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder removes a folder subtree, reparenting its documents
// DELETE /api/v1/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	removed, err := h.folders.DeleteFolder(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"folders_removed": removed})
}
