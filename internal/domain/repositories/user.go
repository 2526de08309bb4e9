package repositories

import (
	"context"

	"mdbrowse/internal/domain/models"
)

// UserRepository defines data access for human accounts.
type UserRepository interface {
	// Create inserts a new user; duplicate usernames are a conflict
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List returns all users
	List(ctx context.Context) ([]models.User, error)

	// Update persists changed user fields
	Update(ctx context.Context, user *models.User) error

	// Delete removes a user
	Delete(ctx context.Context, id string) error

	// Count returns the number of users (used for first-run bootstrap)
	Count(ctx context.Context) (int, error)
}

// SettingsRepository defines data access for the single-row instance settings.
type SettingsRepository interface {
	// Get returns the current settings, creating defaults if none exist
	Get(ctx context.Context) (*models.Settings, error)

	// Update persists new settings
	Update(ctx context.Context, settings *models.Settings) error
}
