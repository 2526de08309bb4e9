package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/metrics"
)

// Audit actions, dotted verb.noun form.
const (
	ActionDocumentCreate   = "document.create"
	ActionDocumentUpdate   = "document.update"
	ActionDocumentDelete   = "document.delete"
	ActionDocumentRollback = "document.rollback"
	ActionFolderCreate     = "folder.create"
	ActionFolderUpdate     = "folder.update"
	ActionFolderDelete     = "folder.delete"
	ActionAgentTokenCreate = "agent_token.create"
	ActionAgentTokenDelete = "agent_token.delete"
	ActionShareCreate      = "share.create"
	ActionUserLogin        = "user.login"
	ActionUserCreate       = "user.create"
	ActionUserUpdate       = "user.update"
	ActionUserDelete       = "user.delete"
	ActionSettingsUpdate   = "settings.update"
)

// AuditService appends entries to the append-only audit log and serves
// filtered reads of it.
type AuditService struct {
	repo    repositories.AuditRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo repositories.AuditRepository, m *metrics.Metrics, logger *slog.Logger) *AuditService {
	return &AuditService{repo: repo, metrics: m, logger: logger}
}

// Record appends one audit entry. Fire-and-forget: a failed write never
// fails the business operation that triggered it, but it is always logged
// and counted.
func (s *AuditService) Record(ctx context.Context, actor *auth.Actor, action, resourceType, resourceID string, metadata map[string]any) {
	entry := &models.AuditLogEntry{
		ID:           ulid.Make().String(),
		ActorType:    models.ActorSystem,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if actor != nil {
		entry.ActorType = actor.Type
		entry.ActorID = actor.ID
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		s.logger.Error("audit write failed",
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
			"error", err,
		)
	}
}

// List returns one page of audit entries, newest first.
func (s *AuditService) List(ctx context.Context, actor *auth.Actor, filter *repositories.AuditFilter) ([]models.AuditLogEntry, int, error) {
	if err := actor.Require(auth.ScopeAuditRead); err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	return s.repo.List(ctx, filter)
}
