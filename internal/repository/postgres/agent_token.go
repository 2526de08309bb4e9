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

const agentTokenColumns = `id, name, role, scopes, token_prefix, token_hash, created_at, expires_at, last_used_at`

// AgentTokenRepository implements repositories.AgentTokenRepository over
// Postgres.
type AgentTokenRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAgentTokenRepository creates a new agent token repository
func NewAgentTokenRepository(config *RepositoryConfig) repositories.AgentTokenRepository {
	return &AgentTokenRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanAgentToken(row pgx.Row) (*models.AgentToken, error) {
	var t models.AgentToken
	err := row.Scan(&t.ID, &t.Name, &t.Role, &t.Scopes, &t.TokenPrefix, &t.TokenHash,
		&t.CreatedAt, &t.ExpiresAt, &t.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new agent token record
func (r *AgentTokenRepository) Create(ctx context.Context, token *models.AgentToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.AgentTokens, agentTokenColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		token.ID, token.Name, token.Role, token.Scopes, token.TokenPrefix, token.TokenHash,
		token.CreatedAt, token.ExpiresAt, token.LastUsedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "agent token collides with an existing prefix",
				ResourceType: "agent_token",
				ResourceID:   token.ID,
			}
		}
		return fmt.Errorf("create agent token: %w", err)
	}
	return nil
}

// GetByPrefix retrieves a token record by its public prefix
func (r *AgentTokenRepository) GetByPrefix(ctx context.Context, prefix string) (*models.AgentToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE token_prefix = $1`, agentTokenColumns, r.tables.AgentTokens)

	executor := GetExecutor(ctx, r.pool)
	token, err := scanAgentToken(executor.QueryRow(ctx, query, prefix))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("agent token: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent token: %w", err)
	}
	return token, nil
}

// List returns all agent tokens, newest first
func (r *AgentTokenRepository) List(ctx context.Context) ([]models.AgentToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id ASC`, agentTokenColumns, r.tables.AgentTokens)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list agent tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.AgentToken
	for rows.Next() {
		token, err := scanAgentToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent token: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agent tokens: %w", err)
	}
	return tokens, nil
}

// Delete revokes an agent token
func (r *AgentTokenRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.AgentTokens)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete agent token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent token %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// TouchLastUsed records the token's most recent authentication
func (r *AgentTokenRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_used_at = $2 WHERE id = $1`, r.tables.AgentTokens)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch agent token: %w", err)
	}
	return nil
}
