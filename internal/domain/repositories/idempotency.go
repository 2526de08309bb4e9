package repositories

import (
	"context"

	"mdbrowse/internal/domain/models"
)

// IdempotencyRepository defines data access for stored responses of
// completed mutating requests.
type IdempotencyRepository interface {
	// Get retrieves the stored record for a key, ErrNotFound if absent
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)

	// Put stores a record under its key
	Put(ctx context.Context, record *models.IdempotencyRecord) error

	// Delete removes a record (used for lazy expiry)
	Delete(ctx context.Context, key string) error
}
