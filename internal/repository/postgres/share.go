package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// ShareRepository implements repositories.ShareRepository over Postgres.
type ShareRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewShareRepository creates a new share link repository
func NewShareRepository(config *RepositoryConfig) repositories.ShareRepository {
	return &ShareRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new share link
func (r *ShareRepository) Create(ctx context.Context, share *models.Share) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, token, access_code_hash, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Shares)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		share.ID, share.DocumentID, share.Token, share.AccessCodeHash,
		share.CreatedBy, share.CreatedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "share token collides with an existing share",
				ResourceType: "share",
				ResourceID:   share.ID,
			}
		}
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// GetByToken retrieves a share link by its public token
func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, token, access_code_hash, created_by, created_at
		FROM %s WHERE token = $1
	`, r.tables.Shares)

	executor := GetExecutor(ctx, r.pool)
	var share models.Share
	err := executor.QueryRow(ctx, query, token).Scan(
		&share.ID, &share.DocumentID, &share.Token, &share.AccessCodeHash,
		&share.CreatedBy, &share.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("share: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get share: %w", err)
	}
	return &share, nil
}

// Delete revokes a share link
func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Shares)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
