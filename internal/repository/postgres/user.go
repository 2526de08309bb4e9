package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

const userColumns = `id, username, role, password_hash, created_at, updated_at`

// UserRepository implements repositories.UserRepository over Postgres.
type UserRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &UserRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user; duplicate usernames are a conflict
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Users, userColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		user.ID, user.Username, user.Role, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("username %q is taken", user.Username),
				ResourceType: "user",
				ResourceID:   user.ID,
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, userColumns, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	user, err := scanUser(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1`, userColumns, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	user, err := scanUser(executor.QueryRow(ctx, query, username))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns all users ordered by username
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY username`, userColumns, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Update persists changed user fields
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		UPDATE %s SET username = $2, role = $3, password_hash = $4, updated_at = $5
		WHERE id = $1
	`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		user.ID, user.Username, user.Role, user.PasswordHash, user.UpdatedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("username %q is taken", user.Username),
				ResourceType: "user",
				ResourceID:   user.ID,
			}
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	var count int
	if err := executor.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// SettingsRepository implements repositories.SettingsRepository over a
// single-row Postgres table pinned at id = 1.
type SettingsRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(config *RepositoryConfig) repositories.SettingsRepository {
	return &SettingsRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get returns the current settings, creating defaults if none exist
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := fmt.Sprintf(`
		SELECT site_name, default_visibility, max_upload_bytes, updated_at
		FROM %s WHERE id = 1
	`, r.tables.Settings)

	executor := GetExecutor(ctx, r.pool)
	var s models.Settings
	err := executor.QueryRow(ctx, query).Scan(&s.SiteName, &s.DefaultVisibility, &s.MaxUploadBytes, &s.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			defaults := &models.Settings{
				SiteName:          "md-browse",
				DefaultVisibility: models.VisibilityTeam,
				MaxUploadBytes:    10 << 20,
				UpdatedAt:         time.Now().UTC(),
			}
			if err := r.Update(ctx, defaults); err != nil {
				return nil, err
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Update persists new settings
func (r *SettingsRepository) Update(ctx context.Context, settings *models.Settings) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, site_name, default_visibility, max_upload_bytes, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET site_name = EXCLUDED.site_name,
			default_visibility = EXCLUDED.default_visibility,
			max_upload_bytes = EXCLUDED.max_upload_bytes,
			updated_at = EXCLUDED.updated_at
	`, r.tables.Settings)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query,
		settings.SiteName, settings.DefaultVisibility, settings.MaxUploadBytes, settings.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
