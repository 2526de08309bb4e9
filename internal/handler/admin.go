package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// AdminHandler handles user and settings administration HTTP requests
type AdminHandler struct {
	users    *service.UserService
	settings *service.SettingsService
	logger   *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users *service.UserService, settings *service.SettingsService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{users: users, settings: settings, logger: logger}
}

// ListUsers returns all user accounts
// GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	users, err := h.users.ListUsers(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": users})
}

// CreateUser creates a user account
// POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.CreateUserRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	user, err := h.users.CreateUser(r.Context(), actor, &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, user)
}

// UpdateUser updates a user account
// PUT /api/v1/admin/users/{username}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.UpdateUserRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	user, err := h.users.UpdateUser(r.Context(), actor, r.PathValue("username"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user account
// DELETE /api/v1/admin/users/{username}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), actor, r.PathValue("username")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns instance settings
// GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	settings, err := h.settings.Get(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, settings)
}

// UpdateSettings applies a partial settings change
// PUT /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req service.UpdateSettingsRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", "invalid request body", err.Error())
		return
	}

	settings, err := h.settings.Update(r.Context(), actor, &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, settings)
}
