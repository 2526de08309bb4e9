package repositories

import (
	"context"
	"time"

	"mdbrowse/internal/domain/models"
)

// AgentTokenRepository defines data access for machine credentials.
type AgentTokenRepository interface {
	// Create inserts a new token record
	Create(ctx context.Context, token *models.AgentToken) error

	// GetByPrefix retrieves a token by its public lookup prefix
	GetByPrefix(ctx context.Context, prefix string) (*models.AgentToken, error)

	// List returns all token records (hashes included; callers must not
	// serialize TokenHash)
	List(ctx context.Context) ([]models.AgentToken, error)

	// Delete removes a token record
	Delete(ctx context.Context, id string) error

	// TouchLastUsed records a successful authentication. Best-effort: callers
	// log failures but do not fail the request.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
