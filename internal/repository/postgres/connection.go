package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"mdbrowse/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Documents       string
	Versions        string
	Folders         string
	AgentTokens     string
	AuditLog        string
	IdempotencyKeys string
	Shares          string
	Users           string
	Settings        string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Documents:       prefix + "documents",
		Versions:        prefix + "document_versions",
		Folders:         prefix + "folders",
		AgentTokens:     prefix + "agent_tokens",
		AuditLog:        prefix + "audit_log",
		IdempotencyKeys: prefix + "idempotency_keys",
		Shares:          prefix + "shares",
		Users:           prefix + "users",
		Settings:        prefix + "settings",
	}
}

// CreateConnectionPool creates a new pgx connection pool and verifies the
// connection. Table prefixes are interpolated into SQL before statements
// are prepared, so each environment gets its own statement cache entries.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction;
// otherwise the pool. This lets repositories automatically participate in
// transactions when they exist.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
