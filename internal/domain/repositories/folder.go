package repositories

import (
	"context"

	"mdbrowse/internal/domain/models"
)

// FolderRepository defines data access for the placement hierarchy.
type FolderRepository interface {
	// Create inserts a new folder
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// Update persists changed folder fields
	Update(ctx context.Context, folder *models.Folder) error

	// Delete removes a folder row
	Delete(ctx context.Context, id string) error

	// ListChildren lists immediate child folders, parentID nil = root
	ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error)

	// ListAll returns every folder as a flat list
	ListAll(ctx context.Context) ([]models.Folder, error)
}
