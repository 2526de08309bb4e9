package memory

import (
	"context"
	"fmt"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// IdempotencyRepository implements repositories.IdempotencyRepository over
// the in-memory store.
type IdempotencyRepository struct {
	store *Store
}

// NewIdempotencyRepository creates a new in-memory idempotency repository.
func NewIdempotencyRepository(store *Store) repositories.IdempotencyRepository {
	return &IdempotencyRepository{store: store}
}

func cloneIdempotencyRecord(rec *models.IdempotencyRecord) *models.IdempotencyRecord {
	clone := *rec
	clone.Body = append([]byte(nil), rec.Body...)
	return &clone
}

// Get retrieves the stored record for a key.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	defer r.store.rlock(ctx)()

	rec, ok := r.store.idempotency[key]
	if !ok {
		return nil, fmt.Errorf("idempotency key: %w", domain.ErrNotFound)
	}
	return cloneIdempotencyRecord(rec), nil
}

// Put stores a record under its key.
func (r *IdempotencyRepository) Put(ctx context.Context, record *models.IdempotencyRecord) error {
	defer r.store.wlock(ctx)()

	r.store.idempotency[record.Key] = cloneIdempotencyRecord(record)
	return nil
}

// Delete removes a record.
func (r *IdempotencyRepository) Delete(ctx context.Context, key string) error {
	defer r.store.wlock(ctx)()

	delete(r.store.idempotency, key)
	return nil
}
