package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// AgentTokenHandler handles machine credential HTTP requests
type AgentTokenHandler struct {
	tokens *service.AgentTokenService
	logger *slog.Logger
}

// NewAgentTokenHandler creates a new agent token handler
func NewAgentTokenHandler(tokens *service.AgentTokenService, logger *slog.Logger) *AgentTokenHandler {
	return &AgentTokenHandler{tokens: tokens, logger: logger}
}

// CreateToken mints a credential. The plaintext secret appears only in
// this response.
// POST /api/v1/agents/tokens
func (h *AgentTokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.CreateAgentTokenRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	created, err := h.tokens.CreateToken(r.Context(), actor, &req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]any{
		"token":  created.Plaintext,
		"record": created.Token,
	})
}

// ListTokens lists credential records (never secrets or hashes)
// GET /api/v1/agents/tokens
func (h *AgentTokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	tokens, err := h.tokens.ListTokens(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"data": tokens})
}

// DeleteToken revokes a credential
// DELETE /api/v1/agents/tokens/{id}
func (h *AgentTokenHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.tokens.DeleteToken(r.Context(), actor, r.PathValue("id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
