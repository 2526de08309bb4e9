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

// AgentTokenRepository implements repositories.AgentTokenRepository over
// the in-memory store.
type AgentTokenRepository struct {
	store *Store
}

// NewAgentTokenRepository creates a new in-memory agent token repository.
func NewAgentTokenRepository(store *Store) repositories.AgentTokenRepository {
	return &AgentTokenRepository{store: store}
}

func cloneAgentToken(t *models.AgentToken) *models.AgentToken {
	clone := *t
	clone.Scopes = append([]string(nil), t.Scopes...)
	if t.ExpiresAt != nil {
		at := *t.ExpiresAt
		clone.ExpiresAt = &at
	}
	if t.LastUsedAt != nil {
		at := *t.LastUsedAt
		clone.LastUsedAt = &at
	}
	return &clone
}

// Create inserts a new token record.
func (r *AgentTokenRepository) Create(ctx context.Context, token *models.AgentToken) error {
	defer r.store.wlock(ctx)()

	if _, exists := r.store.tokensByPrefix[token.TokenPrefix]; exists {
		return &domain.ConflictError{
			Message:      "agent token prefix collision",
			ResourceType: "agent_token",
			ResourceID:   token.TokenPrefix,
		}
	}
	r.store.agentTokens[token.ID] = cloneAgentToken(token)
	r.store.tokensByPrefix[token.TokenPrefix] = token.ID
	return nil
}

// GetByPrefix retrieves a token by its public lookup prefix.
func (r *AgentTokenRepository) GetByPrefix(ctx context.Context, prefix string) (*models.AgentToken, error) {
	defer r.store.rlock(ctx)()

	id, ok := r.store.tokensByPrefix[prefix]
	if !ok {
		return nil, fmt.Errorf("agent token: %w", domain.ErrNotFound)
	}
	return cloneAgentToken(r.store.agentTokens[id]), nil
}

// List returns all token records, newest first.
func (r *AgentTokenRepository) List(ctx context.Context) ([]models.AgentToken, error) {
	defer r.store.rlock(ctx)()

	results := make([]models.AgentToken, 0, len(r.store.agentTokens))
	for _, token := range r.store.agentTokens {
		results = append(results, *cloneAgentToken(token))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// Delete removes a token record.
func (r *AgentTokenRepository) Delete(ctx context.Context, id string) error {
	defer r.store.wlock(ctx)()

	token, ok := r.store.agentTokens[id]
	if !ok {
		return fmt.Errorf("agent token %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.tokensByPrefix, token.TokenPrefix)
	delete(r.store.agentTokens, id)
	return nil
}

// TouchLastUsed records a successful authentication.
func (r *AgentTokenRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	defer r.store.wlock(ctx)()

	token, ok := r.store.agentTokens[id]
	if !ok {
		return fmt.Errorf("agent token %s: %w", id, domain.ErrNotFound)
	}
	used := at
	token.LastUsedAt = &used
	return nil
}
