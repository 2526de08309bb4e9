package repositories

import (
	"context"

	"mdbrowse/internal/domain/models"
)

// VersionRepository defines data access for the append-only version ledger.
// Rows are never updated or deleted.
type VersionRepository interface {
	// Append inserts a new version row
	Append(ctx context.Context, version *models.DocumentVersion) error

	// ListByDocument returns all versions ascending by version_number,
	// content excluded
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error)

	// GetByNumber retrieves one version with its content
	GetByNumber(ctx context.Context, documentID string, versionNumber int) (*models.DocumentVersion, error)
}
