package repositories

import (
	"context"

	"mdbrowse/internal/domain/models"
)

// AuditRepository defines data access for the append-only audit log.
type AuditRepository interface {
	// Append inserts one audit entry
	Append(ctx context.Context, entry *models.AuditLogEntry) error

	// List returns one page of entries, newest first, plus the total match count
	List(ctx context.Context, filter *AuditFilter) ([]models.AuditLogEntry, int, error)
}
