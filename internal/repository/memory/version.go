package memory

import (
	"context"
	"fmt"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// VersionRepository implements repositories.VersionRepository over the
// in-memory store. Version rows are append-only.
type VersionRepository struct {
	store *Store
}

// NewVersionRepository creates a new in-memory version repository.
func NewVersionRepository(store *Store) repositories.VersionRepository {
	return &VersionRepository{store: store}
}

func cloneVersion(v *models.DocumentVersion) *models.DocumentVersion {
	clone := *v
	return &clone
}

// Append inserts a new version row. Numbers must arrive strictly
// increasing; the service computes them under its transaction scope.
func (r *VersionRepository) Append(ctx context.Context, version *models.DocumentVersion) error {
	defer r.store.wlock(ctx)()

	chain := r.store.versions[version.DocumentID]
	if n := len(chain); n > 0 && chain[n-1].VersionNumber >= version.VersionNumber {
		return fmt.Errorf("version %d for document %s: %w",
			version.VersionNumber, version.DocumentID, domain.ErrConflict)
	}
	r.store.versions[version.DocumentID] = append(chain, cloneVersion(version))
	return nil
}

// ListByDocument returns all versions ascending by number, content excluded.
func (r *VersionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	defer r.store.rlock(ctx)()

	chain := r.store.versions[documentID]
	results := make([]models.DocumentVersion, 0, len(chain))
	for _, v := range chain {
		clone := cloneVersion(v)
		clone.Content = ""
		results = append(results, *clone)
	}
	return results, nil
}

// GetByNumber retrieves one version with its content.
func (r *VersionRepository) GetByNumber(ctx context.Context, documentID string, versionNumber int) (*models.DocumentVersion, error) {
	defer r.store.rlock(ctx)()

	for _, v := range r.store.versions[documentID] {
		if v.VersionNumber == versionNumber {
			return cloneVersion(v), nil
		}
	}
	return nil, fmt.Errorf("version %d of document %s: %w", versionNumber, documentID, domain.ErrNotFound)
}
