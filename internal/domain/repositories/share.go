package repositories

import (
	"context"

	"mdbrowse/internal/domain/models"
)

// ShareRepository defines data access for public share links.
type ShareRepository interface {
	// Create inserts a new share
	Create(ctx context.Context, share *models.Share) error

	// GetByToken retrieves a share by its URL token
	GetByToken(ctx context.Context, token string) (*models.Share, error)

	// Delete removes a share
	Delete(ctx context.Context, id string) error
}
