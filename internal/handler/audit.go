package handler

import (
	"log/slog"
	"net/http"

	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	audit  *service.AuditService
	logger *slog.Logger
}

// NewAuditHandler creates a new audit log handler
func NewAuditHandler(audit *service.AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// ListAuditLogs returns one page of audit entries, newest first
// GET /api/v1/audit-logs
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := &repositories.AuditFilter{
		ActorType:    q.Get("actor_type"),
		ActorID:      q.Get("actor_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Page:         httputil.QueryInt(r, "page", 1),
		PageSize:     httputil.QueryInt(r, "page_size", 50),
	}

	entries, total, err := h.audit.List(r.Context(), actor, filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.AuditLogEntry{}
	}

	httputil.RespondJSON(w, http.StatusOK, httputil.ListEnvelope{
		Data: entries,
		Pagination: httputil.Pagination{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Total:    total,
		},
	})
}
