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

// IdempotencyRepository implements repositories.IdempotencyRepository
// over Postgres.
type IdempotencyRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewIdempotencyRepository creates a new idempotency key repository
func NewIdempotencyRepository(config *RepositoryConfig) repositories.IdempotencyRepository {
	return &IdempotencyRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get retrieves a stored response by key
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	query := fmt.Sprintf(`
		SELECT key, status, body, created_at FROM %s WHERE key = $1
	`, r.tables.IdempotencyKeys)

	executor := GetExecutor(ctx, r.pool)
	var rec models.IdempotencyRecord
	err := executor.QueryRow(ctx, query, key).Scan(&rec.Key, &rec.Status, &rec.Body, &rec.CreatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("idempotency key: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return &rec, nil
}

// Put stores the canonical response for a key. A concurrent insert of
// the same key surfaces as a conflict so only one writer wins.
func (r *IdempotencyRepository) Put(ctx context.Context, record *models.IdempotencyRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, status, body, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.tables.IdempotencyKeys)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, record.Key, record.Status, record.Body, record.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "idempotency key already recorded",
				ResourceType: "idempotency_key",
				ResourceID:   record.Key,
			}
		}
		return fmt.Errorf("put idempotency record: %w", err)
	}
	return nil
}

// Delete drops an expired key
func (r *IdempotencyRepository) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, r.tables.IdempotencyKeys)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete idempotency record: %w", err)
	}
	return nil
}
