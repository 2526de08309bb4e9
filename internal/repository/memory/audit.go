package memory

import (
	"context"

	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// AuditRepository implements repositories.AuditRepository over the
// in-memory store. The log is append-only; there is no update or delete.
type AuditRepository struct {
	store *Store
}

// NewAuditRepository creates a new in-memory audit repository.
func NewAuditRepository(store *Store) repositories.AuditRepository {
	return &AuditRepository{store: store}
}

func cloneAuditEntry(e *models.AuditLogEntry) *models.AuditLogEntry {
	clone := *e
	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	defer r.store.wlock(ctx)()

	r.store.audit = append(r.store.audit, cloneAuditEntry(entry))
	return nil
}

// List returns one page of entries, newest first, plus the total match count.
func (r *AuditRepository) List(ctx context.Context, filter *repositories.AuditFilter) ([]models.AuditLogEntry, int, error) {
	defer r.store.rlock(ctx)()

	var matched []*models.AuditLogEntry
	// Entries are stored oldest first; walk backwards for newest first.
	for i := len(r.store.audit) - 1; i >= 0; i-- {
		entry := r.store.audit[i]
		if filter.ActorType != "" && string(entry.ActorType) != filter.ActorType {
			continue
		}
		if filter.ActorID != "" && entry.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && entry.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && entry.ResourceID != filter.ResourceID {
			continue
		}
		if !filter.Since.IsZero() && entry.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && entry.CreatedAt.After(filter.Until) {
			continue
		}
		matched = append(matched, entry)
	}

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	page := make([]models.AuditLogEntry, 0, end-start)
	for _, entry := range matched[start:end] {
		page = append(page, *cloneAuditEntry(entry))
	}
	return page, total, nil
}
