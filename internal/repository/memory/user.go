package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// UserRepository implements repositories.UserRepository over the in-memory
// store.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new in-memory user repository.
func NewUserRepository(store *Store) repositories.UserRepository {
	return &UserRepository{store: store}
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	return &clone
}

// Create inserts a new user; duplicate usernames are a conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	defer r.store.wlock(ctx)()

	if existingID, exists := r.store.usersByName[user.Username]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("username %q already exists", user.Username),
			ResourceType: "user",
			ResourceID:   existingID,
		}
	}
	r.store.users[user.ID] = cloneUser(user)
	r.store.usersByName[user.Username] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer r.store.rlock(ctx)()

	user, ok := r.store.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return cloneUser(user), nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.store.rlock(ctx)()

	id, ok := r.store.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return cloneUser(r.store.users[id]), nil
}

// List returns all users ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	defer r.store.rlock(ctx)()

	results := make([]models.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		results = append(results, *cloneUser(user))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Username < results[j].Username })
	return results, nil
}

// Update persists changed user fields.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	defer r.store.wlock(ctx)()

	existing, ok := r.store.users[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	if existing.Username != user.Username {
		if _, taken := r.store.usersByName[user.Username]; taken {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("username %q already exists", user.Username),
				ResourceType: "user",
				ResourceID:   r.store.usersByName[user.Username],
			}
		}
		delete(r.store.usersByName, existing.Username)
		r.store.usersByName[user.Username] = user.ID
	}
	r.store.users[user.ID] = cloneUser(user)
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	defer r.store.wlock(ctx)()

	user, ok := r.store.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.usersByName, user.Username)
	delete(r.store.users, id)
	return nil
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	defer r.store.rlock(ctx)()

	return len(r.store.users), nil
}

// SettingsRepository implements repositories.SettingsRepository over the
// in-memory store.
type SettingsRepository struct {
	store *Store
}

// NewSettingsRepository creates a new in-memory settings repository.
func NewSettingsRepository(store *Store) repositories.SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns the current settings, creating defaults if none exist.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	defer r.store.wlock(ctx)()

	if r.store.settings == nil {
		r.store.settings = &models.Settings{
			SiteName:          "md-browse",
			DefaultVisibility: models.VisibilityTeam,
			MaxUploadBytes:    10 << 20,
			UpdatedAt:         time.Now(),
		}
	}
	clone := *r.store.settings
	return &clone, nil
}

// Update persists new settings.
func (r *SettingsRepository) Update(ctx context.Context, settings *models.Settings) error {
	defer r.store.wlock(ctx)()

	clone := *settings
	r.store.settings = &clone
	return nil
}
