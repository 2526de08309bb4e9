package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// ShareHandler handles share link HTTP requests. Resolution is the one
// endpoint in the API that serves content without authentication.
type ShareHandler struct {
	shares *service.ShareService
	logger *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shares *service.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{shares: shares, logger: logger}
}

type createShareRequest struct {
	AccessCode *string `json:"access_code,omitempty"`
}

// CreateShare issues a share link for a document
// POST /api/v1/documents/{id}/share
func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req createShareRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
			return
		}
	}

	share, err := h.shares.CreateShare(r.Context(), actor, r.PathValue("id"), req.AccessCode)
	if err != nil {
		handleError(w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]any{
		"share": share,
		"url":   "/api/v1/share/" + share.Token,
	})
}

// ResolveShare serves a shared document, unauthenticated
// GET /api/v1/share/{token}
func (h *ShareHandler) ResolveShare(w http.ResponseWriter, r *http.Request) {
	doc, err := h.shares.ResolveShare(r.Context(), r.PathValue("token"), r.URL.Query().Get("code"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// RevokeShare deletes a share link
// DELETE /api/v1/share/{token}
func (h *ShareHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.shares.RevokeShare(r.Context(), actor, r.PathValue("token")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
