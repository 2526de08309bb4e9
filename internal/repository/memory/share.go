package memory

import (
	"context"
	"fmt"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// ShareRepository implements repositories.ShareRepository over the
// in-memory store.
type ShareRepository struct {
	store *Store
}

// NewShareRepository creates a new in-memory share repository.
func NewShareRepository(store *Store) repositories.ShareRepository {
	return &ShareRepository{store: store}
}

func cloneShare(s *models.Share) *models.Share {
	clone := *s
	if s.AccessCodeHash != nil {
		hash := *s.AccessCodeHash
		clone.AccessCodeHash = &hash
	}
	return &clone
}

// Create inserts a new share.
func (r *ShareRepository) Create(ctx context.Context, share *models.Share) error {
	defer r.store.wlock(ctx)()

	if _, exists := r.store.sharesByToken[share.Token]; exists {
		return &domain.ConflictError{
			Message:      "share token collision",
			ResourceType: "share",
			ResourceID:   share.ID,
		}
	}
	r.store.shares[share.ID] = cloneShare(share)
	r.store.sharesByToken[share.Token] = share.ID
	return nil
}

// GetByToken retrieves a share by its URL token.
func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	defer r.store.rlock(ctx)()

	id, ok := r.store.sharesByToken[token]
	if !ok {
		return nil, fmt.Errorf("share: %w", domain.ErrNotFound)
	}
	return cloneShare(r.store.shares[id]), nil
}

// Delete removes a share.
func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	defer r.store.wlock(ctx)()

	share, ok := r.store.shares[id]
	if !ok {
		return fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.sharesByToken, share.Token)
	delete(r.store.shares, id)
	return nil
}
