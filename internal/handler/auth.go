package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// AuthHandler handles session HTTP requests
type AuthHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// Login verifies credentials and issues a session token
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	resp, err := h.users.Login(r.Context(), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Me returns the authenticated user
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if actor.Type != models.ActorUser {
		httputil.RespondError(w, r, http.StatusForbidden, "forbidden", "agent tokens have no user profile", "")
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, user)
}
